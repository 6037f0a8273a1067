package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/labstack/echo/v4"

	"github.com/swifttalkhq/swifttalk/internal/auth"
	"github.com/swifttalkhq/swifttalk/internal/chat"
	"github.com/swifttalkhq/swifttalk/internal/message"
	messageevent "github.com/swifttalkhq/swifttalk/internal/message/event"
)

const streamHeartbeatInterval = 20 * time.Second

// ConversationsHandler serves message history, sending, and live streams for
// two-party conversations. The peer is addressed by email in the path.
type ConversationsHandler struct {
	chatService *chat.Service
	logger      *slog.Logger
}

// NewConversationsHandler creates a conversations handler.
func NewConversationsHandler(log *slog.Logger, chatService *chat.Service) *ConversationsHandler {
	return &ConversationsHandler{
		chatService: chatService,
		logger:      log.With(slog.String("handler", "conversations")),
	}
}

// Register mounts the conversation routes on the Echo instance.
func (h *ConversationsHandler) Register(e *echo.Echo) {
	e.GET("/conversations/:peer/messages", h.History)
	e.POST("/conversations/:peer/messages", h.Send)
	e.GET("/conversations/:peer/events", h.StreamEvents)
	e.GET("/conversations/:peer/ws", h.StreamWebSocket)
}

// SendMessageRequest is the body of POST /conversations/:peer/messages.
type SendMessageRequest struct {
	Body string `json:"body"`
}

// History returns the full conversation with the peer, oldest first.
func (h *ConversationsHandler) History(c echo.Context) error {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return err
	}
	peer := c.Param("peer")
	messages, err := h.chatService.History(c.Request().Context(), identity, peer)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, messages)
}

// Send appends a message to the conversation with the peer.
func (h *ConversationsHandler) Send(c echo.Context) error {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return err
	}
	peer := c.Param("peer")
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	msg, err := h.chatService.Send(c.Request().Context(), identity, peer, req.Body)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, msg)
}

// StreamEvents streams the conversation over SSE: the persisted history is
// replayed first, then live messages as they arrive, each exactly once. A
// reconnecting client passes ?since= (RFC3339 or epoch millis) to skip the
// part of the history it already has.
func (h *ConversationsHandler) StreamEvents(c echo.Context) error {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return err
	}
	peer := c.Param("peer")

	since, hasSince, err := parseSinceParam(c.QueryParam("since"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session, err := h.chatService.Open(c.Request().Context(), identity, peer)
	if err != nil {
		return httpError(err)
	}
	defer session.Close()

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming not supported")
	}
	writer := bufio.NewWriter(c.Response().Writer)

	heartbeatTicker := time.NewTicker(streamHeartbeatInterval)
	defer heartbeatTicker.Stop()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case <-heartbeatTicker.C:
			if err := writeSSEJSON(writer, flusher, map[string]any{"type": "ping"}); err != nil {
				return nil
			}
		case msg, ok := <-session.Messages():
			if !ok {
				return nil
			}
			if hasSince && !msg.CreatedAt.After(since) {
				continue
			}
			payload := map[string]any{
				"type":    string(messageevent.TypeMessageCreated),
				"message": msg,
			}
			if err := writeSSEJSON(writer, flusher, payload); err != nil {
				return nil
			}
		}
	}
}

func parseSinceParam(raw string) (time.Time, bool, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, false, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		parsed, err := time.Parse(layout, trimmed)
		if err == nil {
			return parsed.UTC(), true, nil
		}
	}
	if epochMillis, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return time.UnixMilli(epochMillis).UTC(), true, nil
	}
	return time.Time{}, false, fmt.Errorf("invalid since parameter")
}

// wsEnvelope is the frame format on the WebSocket stream, both directions.
// Server to client frames carry type "message"; client to server frames carry
// type "send" with the body to append.
type wsEnvelope struct {
	Type    string           `json:"type"`
	Body    string           `json:"body,omitempty"`
	Message *message.Message `json:"message,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// StreamWebSocket serves the conversation over a WebSocket. The server
// replays history then pushes live messages; the client may send frames of
// the form {"type":"send","body":"..."} to append to the conversation.
func (h *ConversationsHandler) StreamWebSocket(c echo.Context) error {
	identity, err := auth.IdentityFromContext(c)
	if err != nil {
		return err
	}
	peer := c.Param("peer")
	session, err := h.chatService.Open(c.Request().Context(), identity, peer)
	if err != nil {
		return httpError(err)
	}
	defer session.Close()

	conn, err := websocket.Accept(c.Response().Writer, c.Request(), nil)
	if err != nil {
		return nil
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	go h.readWebSocket(ctx, cancel, conn, session)

	heartbeatTicker := time.NewTicker(streamHeartbeatInterval)
	defer heartbeatTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return nil
		case <-heartbeatTicker.C:
			if err := conn.Ping(ctx); err != nil {
				return nil
			}
		case msg, ok := <-session.Messages():
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return nil
			}
			frame := wsEnvelope{Type: "message", Message: &msg}
			if err := wsjson.Write(ctx, conn, frame); err != nil {
				return nil
			}
		}
	}
}

func (h *ConversationsHandler) readWebSocket(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, session *chat.Session) {
	defer cancel()
	for {
		var frame wsEnvelope
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			return
		}
		if frame.Type != "send" {
			continue
		}
		if _, err := session.Send(ctx, frame.Body); err != nil {
			errFrame := wsEnvelope{Type: "error", Error: err.Error()}
			if writeErr := wsjson.Write(ctx, conn, errFrame); writeErr != nil {
				return
			}
		}
	}
}

func writeSSEData(writer *bufio.Writer, flusher http.Flusher, payload string) error {
	if _, err := writer.WriteString(fmt.Sprintf("data: %s\n\n", payload)); err != nil {
		return err
	}
	if err := writer.Flush(); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func writeSSEJSON(writer *bufio.Writer, flusher http.Flusher, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return writeSSEData(writer, flusher, string(data))
}
