package database

import (
	"context"

	"github.com/metislabs/rag-be/types"
)

// Embedder converts text into a fixed-dimension vector. Implementations
// must be deterministic for identical input so that search stays
// reproducible.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

// VectorIndex defines the interface for chunk storage and retrieval.
type VectorIndex interface {
	// Add embeds and persists chunks in fixed-size batches. A failure
	// mid-batch aborts further batches; prior batches stay persisted.
	Add(ctx context.Context, chunks []types.Chunk, batchSize int) error

	// Search returns up to k chunks most similar to the query text,
	// restricted to chunks whose metadata matches every filter pair.
	// An empty result is not an error.
	Search(ctx context.Context, query string, k int, filter map[string]any) ([]types.Chunk, error)

	// Stats reports read-only introspection of the index.
	Stats(ctx context.Context) (*types.IndexStats, error)

	// Clear destroys all persisted data and re-creates an empty index
	// at the same location. Not reversible.
	Clear(ctx context.Context) error

	// ListDocuments groups stored chunks by doc_id and returns the
	// groups sorted by source ascending. Cost is linear in stored
	// chunks.
	ListDocuments(ctx context.Context) ([]types.DocumentInfo, error)

	Close() error
}

// ConversationStore persists ordered turn history keyed by session id.
type ConversationStore interface {
	// Load returns the full history for a session, empty when no
	// record exists.
	Load(sessionID string) ([]types.Message, error)

	// Append rewrites the session's record as prior turns plus the new
	// question/answer pair.
	Append(sessionID, question, answer string, prior []types.Message) error
}
