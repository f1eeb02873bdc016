package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"socialgraph/internal/httputil"
	"socialgraph/internal/model"
	"socialgraph/internal/transport/http/middleware"
)

const participantCheckTimeout = 2 * time.Second

// ParticipantChecker authorizes typing relays. Implemented by
// service.ConversationService.
type ParticipantChecker interface {
	IsParticipant(ctx context.Context, conversationID uuid.UUID, userID int64) (bool, error)
}

type HandlerConfig struct {
	JWTSecret string
	// AllowedOrigins is the exact-match Origin allow-list.
	AllowedOrigins []string
	// AllowAnyOrigin skips the origin check. Development only.
	AllowAnyOrigin  bool
	SendBuffer      int
	MaxMessageBytes int64
}

// Handler serves GET /ws.
type Handler struct {
	cfg          HandlerConfig
	origins      map[string]struct{}
	registry     Registry
	dispatcher   *Dispatcher
	participants ParticipantChecker
	upgrader     websocket.Upgrader
	logger       *zap.Logger
}

func NewHandler(cfg HandlerConfig, registry Registry, dispatcher *Dispatcher, participants ParticipantChecker, logger *zap.Logger) *Handler {
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = 4096
	}
	origins := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		origins[o] = struct{}{}
	}
	return &Handler{
		cfg:          cfg,
		origins:      origins,
		registry:     registry,
		dispatcher:   dispatcher,
		participants: participants,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The origin has already been checked in ServeWS, before any upgrade.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.Named("ws"),
	}
}

func (h *Handler) originAllowed(origin string) bool {
	if h.cfg.AllowAnyOrigin {
		return true
	}
	_, ok := h.origins[origin]
	return ok
}

// ServeWS handles GET /ws?token=<jwt>. The origin and the token are both
// checked before the upgrade; a rejected client is never registered.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if !h.originAllowed(origin) {
		h.logger.Info("ws origin rejected", zap.String("origin", origin))
		httputil.WriteUnauthorizedWithCode(w, model.CodeOriginDenied, "Origin not allowed")
		return
	}

	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		tokenStr = middleware.BearerToken(r)
	}
	if tokenStr == "" {
		httputil.WriteUnauthorized(w, "Missing authentication token")
		return
	}

	claims, err := middleware.ParseToken(tokenStr, h.cfg.JWTSecret)
	if err != nil {
		middleware.WriteTokenError(w, err)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	conn := NewConn(claims.UserID, ws, h.cfg.SendBuffer, h.logger)
	h.registry.Register(claims.UserID, conn)
	conn.logger.Debug("ws connected")

	h.readPump(conn)
}

// readPump blocks until the connection ends.
func (h *Handler) readPump(c *Conn) {
	defer func() {
		// Unregister first so no delivery targets a handle that is going away.
		h.registry.UnregisterHandle(c.UserID, c)
		c.Close()
		c.logger.Debug("ws disconnected")
	}()

	c.ws.SetReadLimit(h.cfg.MaxMessageBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived) {
				c.logger.Debug("ws unexpected close", zap.Error(err))
			}
			return
		}
		h.handleFrame(c, raw)
	}
}

func (h *Handler) handleFrame(c *Conn, raw []byte) {
	var in InboundFrame
	if err := json.Unmarshal(raw, &in); err != nil {
		c.logger.Debug("ws bad frame", zap.Error(err))
		return
	}

	switch in.Type {
	case TypeStartTyping, TypeStopTyping:
		var req TypingRequest
		if err := json.Unmarshal(in.Payload, &req); err != nil {
			c.logger.Debug("ws bad typing payload", zap.Error(err))
			return
		}
		h.relayTyping(c.UserID, req, in.Type == TypeStartTyping)
	default:
		c.logger.Debug("ws unknown frame type", zap.String("type", in.Type))
	}
}

// relayTyping forwards the signal only when both users belong to the
// named conversation. Anything else is dropped silently.
func (h *Handler) relayTyping(senderID int64, req TypingRequest, isTyping bool) {
	if req.ConversationID == uuid.Nil || req.RecipientID == 0 || req.RecipientID == senderID {
		return
	}

	if h.participants != nil {
		ctx, cancel := context.WithTimeout(context.Background(), participantCheckTimeout)
		defer cancel()
		for _, id := range []int64{senderID, req.RecipientID} {
			ok, err := h.participants.IsParticipant(ctx, req.ConversationID, id)
			if err != nil {
				h.logger.Warn("typing participant check failed", zap.Error(err))
				return
			}
			if !ok {
				return
			}
		}
	}

	h.dispatcher.RelayTyping(senderID, req.RecipientID, req.ConversationID, isTyping)
}
