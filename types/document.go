package types

// Chunk is a bounded span of text cut from one source document. It is
// the unit of storage and retrieval in the vector index.
type Chunk struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// Standard metadata keys written by the document service.
const (
	MetaSource         = "source"
	MetaFileName       = "file_name"
	MetaFileType       = "file_type"
	MetaDocID          = "doc_id"
	MetaProcessedAt    = "processed_at"
	MetaChunkIndex     = "chunk_index"
	MetaTotalChunks    = "total_chunks"
	MetaChunkSize      = "chunk_size"
	MetaHeadingLevel   = "heading_level"
	MetaSectionName    = "section_name"
	MetaIsSectionStart = "is_section_start"
)

// DocumentInfo is one entry of the grouped document listing.
type DocumentInfo struct {
	DocID      string `json:"doc_id"`
	Source     string `json:"source"`
	FileName   string `json:"file_name"`
	FileType   string `json:"file_type"`
	ChunkCount int    `json:"chunk_count"`
	AddedAt    string `json:"added_at"`
}

// IndexStats reports read-only introspection of the vector index.
type IndexStats struct {
	TotalChunks    int    `json:"total_chunks"`
	EmbeddingModel string `json:"embedding_model"`
	StorePath      string `json:"store_path"`
	Collection     string `json:"collection"`
}

// DocumentServiceConfig contains configuration for document chunking.
type DocumentServiceConfig struct {
	ChunkSize        int      // Target chunk length in characters
	ChunkOverlap     int      // Overlap carried between consecutive chunks
	SupportedFormats []string // Allowed file extensions, lower case with dot
}

// IngestJob tracks one queued document ingestion.
type IngestJob struct {
	ID       string `json:"id"`
	FilePath string `json:"file_path"`
	FileName string `json:"file_name"`
	Status   string `json:"status"`
	Chunks   int    `json:"chunks"`
	Error    string `json:"error,omitempty"`
	QueuedAt int64  `json:"queued_at"`
	DoneAt   int64  `json:"done_at,omitempty"`
}

// Ingest job states.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)
