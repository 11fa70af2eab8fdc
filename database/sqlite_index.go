package database

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/metislabs/rag-be/types"
)

const (
	DefaultBatchSize = 100
	DefaultTopK      = 4

	collectionName = "rag_documents"
	indexFileName  = "index.db"
)

const chunksSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	embedding BLOB NOT NULL,
	doc_id TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_chunks_doc_id ON chunks(doc_id);
`

// SQLiteIndex is a file-backed vector index. Chunks are stored with
// their embedding as a float32 BLOB and their sanitized metadata as
// JSON; similarity is brute-force cosine over all stored rows.
type SQLiteIndex struct {
	db       *sql.DB
	dir      string
	path     string
	embedder Embedder

	// Serializes Add batches so concurrent callers cannot interleave
	// partial writes into one collection.
	writeMu sync.Mutex
}

// NewSQLiteIndex opens the index at dir, creating an empty store when
// none exists there yet.
func NewSQLiteIndex(dir string, embedder Embedder) (*SQLiteIndex, error) {
	if embedder == nil {
		return nil, &types.IndexInitError{Err: fmt.Errorf("no embedding provider configured")}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &types.IndexInitError{Err: err}
	}

	path := filepath.Join(dir, indexFileName)
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, &types.IndexInitError{Err: err}
	}
	if _, err := db.Exec(chunksSchema); err != nil {
		db.Close()
		return nil, &types.IndexInitError{Err: err}
	}

	log.Printf("Opened vector index at %s (model %s)", path, embedder.ModelName())
	return &SQLiteIndex{
		db:       db,
		dir:      dir,
		path:     path,
		embedder: embedder,
	}, nil
}

func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

func (s *SQLiteIndex) Add(ctx context.Context, chunks []types.Chunk, batchSize int) error {
	if len(chunks) == 0 {
		log.Println("No chunks provided to Add")
		return nil
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	total := len(chunks)
	for start := 0; start < total; start += batchSize {
		end := start + batchSize
		if end > total {
			end = total
		}
		if err := s.insertBatch(ctx, chunks[start:end]); err != nil {
			return &types.IndexWriteError{Err: fmt.Errorf("batch %d-%d: %w", start, end, err)}
		}
		log.Printf("Inserted batch %d-%d of %d chunks", start, end, total)
	}
	return nil
}

func (s *SQLiteIndex) insertBatch(ctx context.Context, batch []types.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, content, embedding, doc_id, source, metadata)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, chunk := range batch {
		vector, err := s.embedder.Embed(ctx, chunk.Content)
		if err != nil {
			return fmt.Errorf("embedding chunk: %w", err)
		}

		metadata := SanitizeMetadata(chunk.Metadata)
		metadataJSON, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata: %w", err)
		}

		docID, _ := metadata[types.MetaDocID].(string)
		source, _ := metadata[types.MetaSource].(string)

		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), chunk.Content, float32SliceToBytes(vector),
			docID, source, string(metadataJSON)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) Search(ctx context.Context, query string, k int, filter map[string]any) ([]types.Chunk, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &types.IndexSearchError{Err: fmt.Errorf("embedding query: %w", err)}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT content, embedding, metadata FROM chunks ORDER BY rowid`)
	if err != nil {
		return nil, &types.IndexSearchError{Err: err}
	}
	defer rows.Close()

	type scored struct {
		chunk types.Chunk
		score float64
	}
	var matches []scored
	for rows.Next() {
		var content, metadataJSON string
		var embeddingBlob []byte
		if err := rows.Scan(&content, &embeddingBlob, &metadataJSON); err != nil {
			return nil, &types.IndexSearchError{Err: err}
		}

		var metadata map[string]any
		if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
			log.Printf("Skipping chunk with unreadable metadata: %v", err)
			continue
		}
		if !matchesFilter(metadata, filter) {
			continue
		}

		matches = append(matches, scored{
			chunk: types.Chunk{Content: content, Metadata: metadata},
			score: cosineSimilarity(queryVector, bytesToFloat32Slice(embeddingBlob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &types.IndexSearchError{Err: err}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if k > len(matches) {
		k = len(matches)
	}
	results := make([]types.Chunk, 0, k)
	for _, m := range matches[:k] {
		results = append(results, m.chunk)
	}
	return results, nil
}

func (s *SQLiteIndex) Stats(ctx context.Context) (*types.IndexStats, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}
	return &types.IndexStats{
		TotalChunks:    count,
		EmbeddingModel: s.embedder.ModelName(),
		StorePath:      s.path,
		Collection:     collectionName,
	}, nil
}

func (s *SQLiteIndex) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	log.Println("Clearing vector index")
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS chunks; DROP INDEX IF EXISTS idx_chunks_doc_id`); err != nil {
		return fmt.Errorf("dropping chunks table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, chunksSchema); err != nil {
		return fmt.Errorf("recreating chunks table: %w", err)
	}
	return nil
}

func (s *SQLiteIndex) ListDocuments(ctx context.Context) ([]types.DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc_id, metadata FROM chunks ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	groups := make(map[string]*types.DocumentInfo)
	var order []string
	for rows.Next() {
		var docID, metadataJSON string
		if err := rows.Scan(&docID, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		var metadata map[string]any
		if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
			continue
		}

		if info, ok := groups[docID]; ok {
			info.ChunkCount++
			continue
		}
		fileName, _ := metadata[types.MetaFileName].(string)
		fileType, _ := metadata[types.MetaFileType].(string)
		source, _ := metadata[types.MetaSource].(string)
		addedAt, _ := metadata[types.MetaProcessedAt].(string)
		groups[docID] = &types.DocumentInfo{
			DocID:      docID,
			Source:     source,
			FileName:   fileName,
			FileType:   fileType,
			ChunkCount: 1,
			AddedAt:    addedAt,
		}
		order = append(order, docID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}

	docs := make([]types.DocumentInfo, 0, len(order))
	for _, id := range order {
		docs = append(docs, *groups[id])
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Source < docs[j].Source
	})
	return docs, nil
}

// SanitizeMetadata flattens a metadata map to primitive scalars.
// Strings, numbers, booleans and nil pass through; anything else is
// stringified as JSON, or dropped when that fails.
func SanitizeMetadata(metadata map[string]any) map[string]any {
	sanitized := make(map[string]any, len(metadata))
	for key, value := range metadata {
		switch value.(type) {
		case nil, string, bool, int, int32, int64, float32, float64:
			sanitized[key] = value
		default:
			encoded, err := json.Marshal(value)
			if err != nil {
				log.Printf("Skipping complex metadata field: %s", key)
				continue
			}
			sanitized[key] = string(encoded)
		}
	}
	return sanitized
}

func matchesFilter(metadata, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := metadata[key]
		if !ok || !scalarEqual(got, want) {
			return false
		}
	}
	return true
}

// scalarEqual compares metadata scalars, normalizing numeric types so
// that values arriving via JSON (always float64) match stored ints.
func scalarEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
		return false
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// float32SliceToBytes encodes a vector as little-endian float32 bytes.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
