package types

const (
	TypeWebsocketPing   = "ping"
	TypeWebsocketPong   = "pong"
	TypeWebsocketQuery  = "query"
	TypeWebsocketToken  = "token"
	TypeWebsocketAnswer = "answer"
	TypeWebsocketError  = "error"
)

type WebsocketRequest struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type WebSocketResponse struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type WebSocketTokenResponse struct {
	Token string `json:"token"`
}

type WebSocketAnswerResponse struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id,omitempty"`
}

type WebSocketErrorResponse struct {
	Message string `json:"message"`
}
