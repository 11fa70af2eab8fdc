package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/sashabaranov/go-openai"

	"github.com/metislabs/rag-be/types"
)

// OpenAIService talks to an OpenAI-compatible endpoint (a local
// llama.cpp/Ollama server or the hosted API) for both embeddings and
// chat completion.
type OpenAIService struct {
	client     *openai.Client
	model      string
	embedModel string
}

func NewOpenAIService(baseURL, apiKey, model, embedModel string) *OpenAIService {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL // Set this to your local LLM server URL
	client := openai.NewClientWithConfig(config)
	return &OpenAIService{
		client:     client,
		model:      model,
		embedModel: embedModel,
	}
}

// ModelName returns the embedding model identifier.
func (s *OpenAIService) ModelName() string { return s.embedModel }

// DefaultModel returns the configured chat model.
func (s *OpenAIService) DefaultModel() string { return s.model }

// Embed converts text to a vector using the embeddings endpoint.
func (s *OpenAIService) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(s.embedModel),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding returned")
	}
	return resp.Data[0].Embedding, nil
}

// ListModels returns the names of models published by the backend.
func (s *OpenAIService) ListModels(ctx context.Context) ([]string, error) {
	list, err := s.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	names := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		names = append(names, m.ID)
	}
	return names, nil
}

// resolveModel picks the model for a request. A non-default model is
// validated against the backend catalog before use.
func (s *OpenAIService) resolveModel(ctx context.Context, model string) (string, error) {
	if model == "" || model == s.model {
		return s.model, nil
	}
	names, err := s.ListModels(ctx)
	if err != nil {
		return "", err
	}
	for _, name := range names {
		if name == model {
			return model, nil
		}
	}
	return "", &types.ModelNotFoundError{Model: model}
}

func (s *OpenAIService) Generate(ctx context.Context, messages []types.Message, model string) (string, error) {
	model, err := s.resolveModel(ctx, model)
	if err != nil {
		return "", err
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Messages: toOpenAIMessages(messages),
		Model:    model,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response generated")
	}
	return resp.Choices[0].Message.Content, nil
}

func (s *OpenAIService) GenerateStream(ctx context.Context, messages []types.Message, model string, handler types.StreamHandler) error {
	model, err := s.resolveModel(ctx, model)
	if err != nil {
		return err
	}

	stream, err := s.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Messages: toOpenAIMessages(messages),
		Model:    model,
	})
	if err != nil {
		return err
	}
	defer stream.Close()
	for {
		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			log.Println("Error receiving response from stream:", err)
			return err
		}
		if len(resp.Choices) > 0 {
			handler(resp.Choices[0].Delta.Content)
		}
	}
}

func toOpenAIMessages(messages []types.Message) []openai.ChatCompletionMessage {
	openaiMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		role := msg.Role
		switch role {
		case types.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case types.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		default:
			role = openai.ChatMessageRoleUser
		}
		openaiMessages = append(openaiMessages, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}
	return openaiMessages
}
