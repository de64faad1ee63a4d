package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"doclink/auth"
	"doclink/domain"
	"doclink/domain/event"
	"doclink/errors"
	"doclink/services"
)

const identityKey = "identity"

// Config bounds one connection's transport behavior. PongWait doubles as
// the heartbeat interval: a client that stops answering pings is forcibly
// disconnected, which drives the normal presence-cleanup path.
type Config struct {
	BufferSize     int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
}

type Handler struct {
	log  *slog.Logger
	chat services.IChatService
	cfg  Config
}

func NewHandler(log *slog.Logger, chat services.IChatService, cfg Config) *Handler {
	return &Handler{log: log, chat: chat, cfg: cfg}
}

// Upgrade authenticates the handshake before the protocol switch. A
// missing, malformed or expired credential refuses the connection outright:
// no handle, no presence entry, nothing to clean up. The server never
// retries authentication - reconnecting with a valid token is the client's
// job.
func (h *Handler) Upgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		token := c.Query("token")
		if token == "" {
			token = strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		}
		claims, err := auth.ValidateToken(token)
		if err != nil {
			h.log.Warn("Connection refused", "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   errors.CodeAuth,
				"message": errors.ErrInvalidCredential.Error(),
			})
		}

		c.Locals(identityKey, claims.UserID)
		return c.Next()
	}
}

// Serve returns the upgraded-connection handler.
func (h *Handler) Serve() fiber.Handler {
	return websocket.New(h.serve)
}

func (h *Handler) serve(conn *websocket.Conn) {
	identity, _ := conn.Locals(identityKey).(string)
	if identity == "" {
		_ = conn.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := NewSink(h.log, h.cfg.BufferSize)
	handle := h.chat.Connect(ctx, identity, sink)
	// The offline broadcast must go out even though this connection's
	// context is already torn down.
	defer h.chat.Disconnect(context.Background(), handle)

	go h.writePump(ctx, cancel, conn, sink)
	h.readLoop(ctx, conn, handle, sink)
}

// readLoop consumes client events until the transport closes. The read
// deadline advances on every pong; a silent client times out and falls
// into the regular disconnect path.
func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, handle *domain.Handle, sink *Sink) {
	conn.SetReadLimit(h.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("Connection read failed", "identity", handle.Identity, "error", err)
			}
			return
		}

		var envelope Envelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			h.reportError(ctx, sink, errors.CodeValidation, "malformed event envelope")
			continue
		}

		h.route(ctx, handle, sink, envelope)
	}
}

// route dispatches one client event by name. Every failure is reported to
// this connection only; nothing is ever broadcast.
func (h *Handler) route(ctx context.Context, handle *domain.Handle, sink *Sink, envelope Envelope) {
	switch envelope.Event {
	case "joinRoom":
		payload, err := decodePayload[JoinRoomPayload](envelope.Payload)
		if err != nil {
			h.reportError(ctx, sink, errors.CodeValidation, err.Error())
			return
		}
		if err := h.chat.JoinRoom(handle, domain.RoomID(payload.RoomID)); err != nil {
			h.reportError(ctx, sink, errors.WireCode(err), err.Error())
		}

	case "leaveRoom":
		payload, err := decodePayload[LeaveRoomPayload](envelope.Payload)
		if err != nil {
			h.reportError(ctx, sink, errors.CodeValidation, err.Error())
			return
		}
		h.chat.LeaveRoom(handle, domain.RoomID(payload.RoomID))

	case "sendMessage":
		payload, err := decodePayload[SendMessagePayload](envelope.Payload)
		if err != nil {
			h.reportError(ctx, sink, errors.CodeValidation, err.Error())
			return
		}
		msg, err := h.chat.Send(ctx, domain.SendMessageCommand{
			SenderID:    handle.Identity,
			RecipientID: payload.Recipient,
			Content:     payload.Content,
		})
		if err != nil {
			h.reportError(ctx, sink, errors.WireCode(err), err.Error())
			return
		}
		// Delivery confirmation to the sender. The regular newMessage
		// fan-out reaches this connection too when it joined the room.
		_ = sink.Consume(ctx, event.MessageAccepted{Message: msg})

	case "typing", "stopTyping":
		payload, err := decodePayload[TypingPayload](envelope.Payload)
		if err != nil {
			h.reportError(ctx, sink, errors.CodeValidation, err.Error())
			return
		}
		h.chat.Typing(ctx, handle, domain.RoomID(payload.RoomID), envelope.Event == "typing")

	default:
		h.reportError(ctx, sink, errors.CodeValidation, "unknown event: "+envelope.Event)
	}
}

// writePump is the only goroutine writing to the connection. It drains the
// sink, keeps the heartbeat alive and closes the transport when the
// connection context ends.
func (h *Handler) writePump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sink *Sink) {
	ticker := time.NewTicker(h.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		_ = conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(h.cfg.WriteWait))
			return
		case e := <-sink.Events:
			frame, err := encodeEvent(e)
			if err != nil {
				h.log.Error("Failed to encode event", "event", e.Name(), "error", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) reportError(ctx context.Context, sink *Sink, code, reason string) {
	_ = sink.Consume(ctx, event.DispatchFailed{Code: code, Reason: reason})
}
