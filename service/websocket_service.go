package service

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/metislabs/rag-be/types"
)

// WebSocketService streams query answers token by token over a
// websocket connection.
type WebSocketService struct {
	queries  *QueryService
	upgrader websocket.Upgrader
}

func NewWebSocketService(queries *QueryService) *WebSocketService {
	return &WebSocketService{
		queries: queries,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins (adjust for production)
			},
		},
	}
}

func (s *WebSocketService) HandleQuery(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(512 * 1024) // 512KB max message size
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var req types.WebsocketRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			s.writeError(conn, "invalid message")
			continue
		}

		switch req.Type {
		case types.TypeWebsocketPing:
			conn.WriteJSON(types.WebSocketResponse{Type: types.TypeWebsocketPong})

		case types.TypeWebsocketQuery:
			payloadBytes, err := json.Marshal(req.Payload)
			if err != nil {
				s.writeError(conn, "invalid payload")
				continue
			}
			var query types.QueryRequest
			if err := json.Unmarshal(payloadBytes, &query); err != nil {
				s.writeError(conn, "invalid query payload")
				continue
			}

			answer, err := s.queries.AnswerStream(ctx, query, func(token string) {
				conn.WriteJSON(types.WebSocketResponse{
					Type:    types.TypeWebsocketToken,
					Payload: types.WebSocketTokenResponse{Token: token},
				})
			})
			if err != nil {
				log.Println("Query error:", err)
				s.writeError(conn, err.Error())
				continue
			}
			conn.WriteJSON(types.WebSocketResponse{
				Type: types.TypeWebsocketAnswer,
				Payload: types.WebSocketAnswerResponse{
					Answer:    answer,
					SessionID: query.SessionID,
				},
			})

		default:
			log.Println("Invalid message type:", req.Type)
		}
	}
}

func (s *WebSocketService) writeError(conn *websocket.Conn, message string) {
	conn.WriteJSON(types.WebSocketResponse{
		Type:    types.TypeWebsocketError,
		Payload: types.WebSocketErrorResponse{Message: message},
	})
}
