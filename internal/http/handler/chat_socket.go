package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"basegraph.app/intake/common/logger"
	"basegraph.app/intake/internal/http/dto"
	"basegraph.app/intake/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	maxSocketMessageBytes = 64 << 10
	socketWriteTimeout    = 10 * time.Second
)

type socketError struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// ChatSocketHandler carries the chat actions over a websocket. Each text frame
// is one ChatRequest; each reply is a ChatResponse or a socketError. respond and
// confirm frames without a session_id reuse the last session seen on the connection.
type ChatSocketHandler struct {
	chat     *IntakeHandler
	upgrader websocket.Upgrader
}

func NewChatSocketHandler(intake service.IntakeService) *ChatSocketHandler {
	return &ChatSocketHandler{
		chat: NewIntakeHandler(intake),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

func (h *ChatSocketHandler) Serve(c *gin.Context) {
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{
		Component: "intake.http.chat_socket",
	})

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		slog.WarnContext(ctx, "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxSocketMessageBytes)

	var sessionID string
	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.WarnContext(ctx, "websocket closed unexpectedly", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var req dto.ChatRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			if !h.write(ctx, conn, socketError{Error: "invalid json", Status: http.StatusBadRequest}) {
				return
			}
			continue
		}
		if req.SessionID == "" && req.Action != dto.ChatActionStart {
			req.SessionID = sessionID
		}

		resp, err := h.chat.dispatch(ctx, req)
		if err != nil {
			status, msg := chatError(err)
			if status == http.StatusInternalServerError {
				slog.ErrorContext(ctx, "chat turn failed", "error", err, "action", req.Action)
			}
			if !h.write(ctx, conn, socketError{Error: msg, Status: status}) {
				return
			}
			continue
		}

		sessionID = resp.SessionID
		if !h.write(ctx, conn, resp) {
			return
		}
	}
}

func (h *ChatSocketHandler) write(ctx context.Context, conn *websocket.Conn, v any) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
	if err := conn.WriteJSON(v); err != nil {
		slog.WarnContext(ctx, "websocket write failed", "error", err)
		return false
	}
	return true
}
