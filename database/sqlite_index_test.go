package database

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metislabs/rag-be/types"
)

// hashEmbedder is a deterministic bag-of-words embedder. Texts sharing
// words get similar vectors, so ranking tests behave like a real model.
type hashEmbedder struct {
	mu    sync.Mutex
	calls int
}

const hashDims = 64

func (e *hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	vector := make([]float32, hashDims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		var h uint32 = 2166136261
		for i := 0; i < len(word); i++ {
			h ^= uint32(word[i])
			h *= 16777619
		}
		vector[h%hashDims]++
	}
	return vector, nil
}

func (e *hashEmbedder) ModelName() string { return "hash-embedder" }

// failAfterEmbedder succeeds for limit calls, then errors. Failing at
// a chosen chunk makes batch commit boundaries observable from the
// rows that survive.
type failAfterEmbedder struct {
	inner hashEmbedder
	limit int
	calls int
}

func (e *failAfterEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.calls > e.limit {
		return nil, fmt.Errorf("embedding backend unavailable")
	}
	return e.inner.Embed(ctx, text)
}

func (e *failAfterEmbedder) ModelName() string { return "fail-after-embedder" }

// failingEmbedder errors on every call.
type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("embedding backend unavailable")
}

func (failingEmbedder) ModelName() string { return "failing-embedder" }

func newTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	index, err := NewSQLiteIndex(t.TempDir(), &hashEmbedder{})
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })
	return index
}

func testChunk(content, docID, source string, extra map[string]any) types.Chunk {
	metadata := map[string]any{
		types.MetaDocID:    docID,
		types.MetaSource:   source,
		types.MetaFileName: source,
	}
	for k, v := range extra {
		metadata[k] = v
	}
	return types.Chunk{Content: content, Metadata: metadata}
}

func TestNewSQLiteIndexNilEmbedder(t *testing.T) {
	_, err := NewSQLiteIndex(t.TempDir(), nil)
	require.Error(t, err)
	var initErr *types.IndexInitError
	assert.ErrorAs(t, err, &initErr)
}

func TestAddAndSearchRanking(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	chunks := []types.Chunk{
		testChunk("the kubernetes cluster runs on three nodes", "doc1", "infra.md", nil),
		testChunk("bread recipes call for flour water salt and yeast", "doc2", "baking.md", nil),
		testChunk("the postgres replica lags behind the primary", "doc3", "db.md", nil),
	}
	require.NoError(t, index.Add(ctx, chunks, DefaultBatchSize))

	results, err := index.Search(ctx, "how many nodes does the kubernetes cluster have", 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Contains(t, results[0].Content, "kubernetes")
}

func TestSearchTopKBound(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Add(ctx, []types.Chunk{
		testChunk("one lonely chunk about gophers", "doc1", "a.txt", nil),
	}, 0))

	results, err := index.Search(ctx, "gophers", 10, nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchEmptyIndex(t *testing.T) {
	index := newTestIndex(t)
	results, err := index.Search(context.Background(), "anything", 4, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchMetadataFilter(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Add(ctx, []types.Chunk{
		testChunk("shared topic text about release notes", "doc1", "v1.md", map[string]any{types.MetaChunkIndex: 0}),
		testChunk("shared topic text about release notes", "doc2", "v2.md", map[string]any{types.MetaChunkIndex: 0}),
	}, DefaultBatchSize))

	results, err := index.Search(ctx, "release notes", 4, map[string]any{types.MetaDocID: "doc2"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc2", results[0].Metadata[types.MetaDocID])
}

func TestSearchFilterNumericNormalization(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Add(ctx, []types.Chunk{
		testChunk("first chunk of the document", "doc1", "a.txt", map[string]any{types.MetaChunkIndex: 0}),
		testChunk("second chunk of the document", "doc1", "a.txt", map[string]any{types.MetaChunkIndex: 1}),
	}, DefaultBatchSize))

	// Stored ints round-trip through JSON as float64; int filters must
	// still match.
	results, err := index.Search(ctx, "chunk", 4, map[string]any{types.MetaChunkIndex: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Content, "second")
}

func TestSearchFilterNoMatch(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Add(ctx, []types.Chunk{
		testChunk("some content", "doc1", "a.txt", nil),
	}, DefaultBatchSize))

	results, err := index.Search(ctx, "content", 4, map[string]any{types.MetaDocID: "absent"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAddEmptyNoOp(t *testing.T) {
	index := newTestIndex(t)
	require.NoError(t, index.Add(context.Background(), nil, DefaultBatchSize))

	stats, err := index.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalChunks)
}

func TestAddBatchingPersistsAll(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	chunks := make([]types.Chunk, 250)
	for i := range chunks {
		chunks[i] = testChunk(fmt.Sprintf("chunk number %d about topic alpha", i), "bulk", "bulk.txt",
			map[string]any{types.MetaChunkIndex: i})
	}
	require.NoError(t, index.Add(ctx, chunks, 100))

	stats, err := index.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 250, stats.TotalChunks)

	// Rows from the final partial batch are retrievable too.
	results, err := index.Search(ctx, "topic alpha", 4, map[string]any{types.MetaChunkIndex: 249})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Content, "chunk number 249")
}

func TestAddBatchBoundaries(t *testing.T) {
	ctx := context.Background()
	chunks := make([]types.Chunk, 250)
	for i := range chunks {
		chunks[i] = testChunk(fmt.Sprintf("chunk number %d", i), "bulk", "bulk.txt",
			map[string]any{types.MetaChunkIndex: i})
	}

	// A failure inside the second batch rolls that batch back but keeps
	// the first one: exactly 100 rows survive.
	embedder := &failAfterEmbedder{limit: 150}
	index, err := NewSQLiteIndex(t.TempDir(), embedder)
	require.NoError(t, err)
	defer index.Close()

	err = index.Add(ctx, chunks, 100)
	require.Error(t, err)
	var writeErr *types.IndexWriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Contains(t, err.Error(), "batch 100-200")

	stats, err := index.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, stats.TotalChunks)

	// A failure inside the trailing partial batch keeps the two full
	// batches: 200 rows, and the error names the 200-250 batch.
	embedder = &failAfterEmbedder{limit: 220}
	index2, err := NewSQLiteIndex(t.TempDir(), embedder)
	require.NoError(t, err)
	defer index2.Close()

	err = index2.Add(ctx, chunks, 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch 200-250")

	stats, err = index2.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 200, stats.TotalChunks)
}

func TestSearchEmbeddingFailure(t *testing.T) {
	index, err := NewSQLiteIndex(t.TempDir(), failingEmbedder{})
	require.NoError(t, err)
	defer index.Close()

	_, err = index.Search(context.Background(), "query", 4, nil)
	require.Error(t, err)
	var searchErr *types.IndexSearchError
	assert.ErrorAs(t, err, &searchErr)
}

func TestAddEmbeddingFailure(t *testing.T) {
	index, err := NewSQLiteIndex(t.TempDir(), failingEmbedder{})
	require.NoError(t, err)
	defer index.Close()

	err = index.Add(context.Background(), []types.Chunk{
		testChunk("content", "doc1", "a.txt", nil),
	}, DefaultBatchSize)
	require.Error(t, err)
	var writeErr *types.IndexWriteError
	assert.ErrorAs(t, err, &writeErr)
}

func TestClearResetsIndex(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Add(ctx, []types.Chunk{
		testChunk("content to be cleared", "doc1", "a.txt", nil),
	}, DefaultBatchSize))
	require.NoError(t, index.Clear(ctx))

	stats, err := index.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalChunks)

	docs, err := index.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	// Index stays writable after a clear.
	require.NoError(t, index.Add(ctx, []types.Chunk{
		testChunk("fresh content", "doc2", "b.txt", nil),
	}, DefaultBatchSize))
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	index, err := NewSQLiteIndex(dir, &hashEmbedder{})
	require.NoError(t, err)
	require.NoError(t, index.Add(ctx, []types.Chunk{
		testChunk("durable chunk about snapshots", "doc1", "a.txt", nil),
	}, DefaultBatchSize))
	require.NoError(t, index.Close())

	reopened, err := NewSQLiteIndex(dir, &hashEmbedder{})
	require.NoError(t, err)
	defer reopened.Close()

	results, err := reopened.Search(ctx, "snapshots", 4, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Content, "durable")
}

func TestListDocumentsGroupsAndSorts(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	addedAt := map[string]any{types.MetaProcessedAt: "2026-08-29T10:00:00Z", types.MetaFileType: ".txt"}
	require.NoError(t, index.Add(ctx, []types.Chunk{
		testChunk("zeta first", "docZ", "zeta.txt", addedAt),
		testChunk("zeta second", "docZ", "zeta.txt", addedAt),
		testChunk("alpha only", "docA", "alpha.txt", addedAt),
	}, DefaultBatchSize))

	docs, err := index.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "alpha.txt", docs[0].Source)
	assert.Equal(t, 1, docs[0].ChunkCount)
	assert.Equal(t, "zeta.txt", docs[1].Source)
	assert.Equal(t, 2, docs[1].ChunkCount)
	assert.Equal(t, "2026-08-29T10:00:00Z", docs[1].AddedAt)
}

func TestStatsFields(t *testing.T) {
	index := newTestIndex(t)
	stats, err := index.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hash-embedder", stats.EmbeddingModel)
	assert.Equal(t, "rag_documents", stats.Collection)
	assert.Contains(t, stats.StorePath, "index.db")
}

func TestSanitizeMetadata(t *testing.T) {
	sanitized := SanitizeMetadata(map[string]any{
		"string": "value",
		"int":    7,
		"float":  1.5,
		"bool":   true,
		"nil":    nil,
		"slice":  []string{"a", "b"},
		"map":    map[string]int{"x": 1},
	})

	assert.Equal(t, "value", sanitized["string"])
	assert.Equal(t, 7, sanitized["int"])
	assert.Equal(t, 1.5, sanitized["float"])
	assert.Equal(t, true, sanitized["bool"])
	assert.Nil(t, sanitized["nil"])
	assert.Equal(t, `["a","b"]`, sanitized["slice"])
	assert.Equal(t, `{"x":1}`, sanitized["map"])
}

func TestVectorEncodingRoundTrip(t *testing.T) {
	vector := []float32{0.1, -2.5, 3.75, 0}
	assert.Equal(t, vector, bytesToFloat32Slice(float32SliceToBytes(vector)))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
