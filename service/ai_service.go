package service

import (
	"context"

	"github.com/metislabs/rag-be/types"
)

// GenerationBackend produces answers from prompt messages. The model
// argument selects a model per call; implementations validate it
// against their published catalog.
type GenerationBackend interface {
	Generate(ctx context.Context, messages []types.Message, model string) (string, error)
	GenerateStream(ctx context.Context, messages []types.Message, model string, handler types.StreamHandler) error
	ListModels(ctx context.Context) ([]string, error)
	DefaultModel() string
}
