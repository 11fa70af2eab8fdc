package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/metislabs/rag-be/types"
)

// FileConversationStore keeps one JSON file per session under a
// directory: an ordered array of {role, content} objects, rewritten
// whole on every append. Concurrent appends to the same session are
// last-write-wins.
type FileConversationStore struct {
	dir string
}

func NewFileConversationStore(dir string) (*FileConversationStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating chat history directory: %w", err)
	}
	return &FileConversationStore{dir: dir}, nil
}

func (s *FileConversationStore) Load(sessionID string) ([]types.Message, error) {
	data, err := os.ReadFile(s.sessionPath(sessionID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading chat history %s: %w", sessionID, err)
	}

	var messages []types.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("decoding chat history %s: %w", sessionID, err)
	}
	return messages, nil
}

func (s *FileConversationStore) Append(sessionID, question, answer string, prior []types.Message) error {
	messages := make([]types.Message, 0, len(prior)+2)
	messages = append(messages, prior...)
	messages = append(messages,
		types.Message{Role: types.RoleUser, Content: question},
		types.Message{Role: types.RoleAssistant, Content: answer},
	)

	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding chat history %s: %w", sessionID, err)
	}
	if err := os.WriteFile(s.sessionPath(sessionID), data, 0644); err != nil {
		return fmt.Errorf("writing chat history %s: %w", sessionID, err)
	}
	return nil
}

func (s *FileConversationStore) sessionPath(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}
