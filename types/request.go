package types

// QueryRequest asks a question against the indexed corpus.
//
// SessionID selects a persisted conversation; when empty, History (if
// any) is used as in-memory context instead. DocID, when set, is merged
// into Filters as an equality constraint.
type QueryRequest struct {
	Question  string         `json:"question"`
	SessionID string         `json:"session_id,omitempty"`
	History   []Message      `json:"history,omitempty"`
	Filters   map[string]any `json:"filters,omitempty"`
	DocID     string         `json:"doc_id,omitempty"`
	Model     string         `json:"model,omitempty"`
	TopK      int            `json:"top_k,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
