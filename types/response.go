package types

type DataResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type QueryResponse struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id,omitempty"`
}

type UploadResponse struct {
	OriginalName string `json:"original_name"`
	JobID        string `json:"job_id,omitempty"`
	Error        string `json:"error,omitempty"`
}

type DocumentListResponse struct {
	Documents      []DocumentInfo `json:"documents"`
	TotalDocuments int            `json:"total_documents"`
	TotalChunks    int            `json:"total_chunks"`
}

type StatsResponse struct {
	VectorStore       *IndexStats `json:"vector_store"`
	UploadedDocuments int         `json:"uploaded_documents"`
	ChatHistories     int         `json:"chat_histories"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type ModelListResponse struct {
	Models []string `json:"models"`
}
