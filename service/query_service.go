package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/metislabs/rag-be/database"
	"github.com/metislabs/rag-be/types"
)

const systemPrompt = "You are a helpful AI assistant that answers questions based on the provided context. " +
	"If the context doesn't contain relevant information, say you don't know. " +
	"Always cite your sources by referring to the document names."

// NoResultsAnswer is returned when retrieval finds nothing relevant.
// It is a successful terminal state, not an error.
const NoResultsAnswer = "I couldn't find any relevant information to answer your question."

// QueryService orchestrates one question: retrieve passages, merge
// conversation history, build the prompt, generate, persist history.
type QueryService struct {
	index   database.VectorIndex
	history database.ConversationStore
	backend GenerationBackend
}

func NewQueryService(index database.VectorIndex, history database.ConversationStore, backend GenerationBackend) *QueryService {
	return &QueryService{
		index:   index,
		history: history,
		backend: backend,
	}
}

// Answer runs the full retrieval-augmented generation flow for one
// request. Failures surface as QueryError, except ModelNotFoundError
// which passes through unchanged; a failed history save is logged and
// never fails the query.
func (s *QueryService) Answer(ctx context.Context, req types.QueryRequest) (string, error) {
	return s.answerWith(ctx, req, func(messages []types.Message) (string, error) {
		return s.backend.Generate(ctx, messages, req.Model)
	})
}

// AnswerStream mirrors Answer but streams the generated tokens through
// handler. The full answer is still returned for history persistence.
func (s *QueryService) AnswerStream(ctx context.Context, req types.QueryRequest, handler types.StreamHandler) (string, error) {
	var sb strings.Builder
	answer, err := s.answerWith(ctx, req, func(messages []types.Message) (string, error) {
		err := s.backend.GenerateStream(ctx, messages, req.Model, func(token string) {
			sb.WriteString(token)
			handler(token)
		})
		return sb.String(), err
	})
	return answer, err
}

// answerWith factors the retrieval/prompt/persist flow so the blocking
// and streaming paths share it.
func (s *QueryService) answerWith(ctx context.Context, req types.QueryRequest, generate func([]types.Message) (string, error)) (string, error) {
	filter := make(map[string]any, len(req.Filters)+1)
	for key, value := range req.Filters {
		filter[key] = value
	}
	if req.DocID != "" {
		filter[types.MetaDocID] = req.DocID
	}

	docs, err := s.index.Search(ctx, req.Question, req.TopK, filter)
	if err != nil {
		return "", wrapQueryError(err)
	}
	if len(docs) == 0 {
		log.Printf("No relevant chunks found for question: %q", truncate(req.Question, 50))
		return NoResultsAnswer, nil
	}

	prior := req.History
	if req.SessionID != "" {
		loaded, err := s.history.Load(req.SessionID)
		if err != nil {
			log.Printf("Error loading chat history %s: %v", req.SessionID, err)
			loaded = nil
		}
		prior = loaded
	}

	messages := make([]types.Message, 0, len(prior)+2)
	messages = append(messages, types.Message{Role: types.RoleSystem, Content: systemPrompt})
	messages = append(messages, prior...)
	messages = append(messages, types.Message{
		Role:    types.RoleUser,
		Content: fmt.Sprintf("Context:\n%s\n\nQuestion:\n%s", formatContext(docs), req.Question),
	})

	answer, err := generate(messages)
	if err != nil {
		return "", wrapQueryError(err)
	}

	if req.SessionID != "" {
		if err := s.history.Append(req.SessionID, req.Question, answer, prior); err != nil {
			log.Printf("Error saving chat history %s: %v", req.SessionID, err)
		}
	}
	return answer, nil
}

// formatContext labels each passage with its document's display name,
// in ranked order, separated by blank lines.
func formatContext(docs []types.Chunk) string {
	parts := make([]string, 0, len(docs))
	for i, doc := range docs {
		fileName, _ := doc.Metadata[types.MetaFileName].(string)
		if fileName == "" {
			fileName = "Unknown file"
		}
		parts = append(parts, fmt.Sprintf("[Document %d from %s]\n%s", i+1, fileName, doc.Content))
	}
	return strings.Join(parts, "\n\n")
}

func wrapQueryError(err error) error {
	var notFound *types.ModelNotFoundError
	if errors.As(err, &notFound) {
		return notFound
	}
	return &types.QueryError{Err: err}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
