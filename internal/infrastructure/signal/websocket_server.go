package signal

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"roomchat/internal/core/domain"
	"roomchat/internal/core/ports"
	"roomchat/pkg/config"
	rlog "roomchat/pkg/logger"
	"roomchat/pkg/tracing"
	"roomchat/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options tunes connection handling.
type Options struct {
	PingInterval   time.Duration
	PongTimeout    time.Duration
	WriteTimeout   time.Duration
	SendBuffer     int
	MaxMessageSize int64
	AllowedOrigins []string

	// Per-connection frame rate; zero disables limiting.
	MessagesPerSecond float64
	Burst             int
	// Zero means unlimited.
	MaxConnections int
}

// OptionsFromConfig maps the websocket, auth and rate limiting sections.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		PingInterval:   cfg.WebSocket.PingInterval,
		PongTimeout:    cfg.WebSocket.PongTimeout,
		WriteTimeout:   cfg.WebSocket.WriteTimeout,
		SendBuffer:     cfg.WebSocket.SendBuffer,
		MaxMessageSize: cfg.WebSocket.MaxMessageSizeBytes,
		AllowedOrigins: cfg.Auth.AllowedOrigins,
	}
	if cfg.RateLimiting.Enabled {
		opts.MessagesPerSecond = cfg.RateLimiting.WebSocket.MessagesPerSecond
		opts.Burst = cfg.RateLimiting.WebSocket.Burst
		opts.MaxConnections = cfg.RateLimiting.WebSocket.MaxConcurrent
	}
	return opts
}

// WebSocketServer admits room connections and dispatches their frames to the
// room registry.
type WebSocketServer struct {
	registry ports.RoomRegistry
	verifier ports.TokenVerifier
	metrics  ports.MetricsRecorder
	opts     Options
	upgrader websocket.Upgrader
	slots    chan struct{}

	// connections and closing are guarded by mu. wg counts handlers from
	// upgrade to return and only grows while closing is false.
	connections map[*wsTransport]struct{}
	closing     bool
	mu          sync.Mutex
	wg          sync.WaitGroup

	newMessageID func() domain.MessageID
	now          func() time.Time

	logger *zap.SugaredLogger
	clog   *rlog.ContextLogger
}

func NewWebSocketServer(registry ports.RoomRegistry, verifier ports.TokenVerifier, metrics ports.MetricsRecorder, opts Options, logger *zap.Logger) *WebSocketServer {
	s := &WebSocketServer{
		registry:     registry,
		verifier:     verifier,
		metrics:      metrics,
		opts:         opts,
		connections:  make(map[*wsTransport]struct{}),
		newMessageID: func() domain.MessageID { return domain.MessageID(uuid.NewString()) },
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger.Sugar(),
		clog:         rlog.NewContextLogger(logger),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin:     s.checkOrigin,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if opts.MaxConnections > 0 {
		s.slots = make(chan struct{}, opts.MaxConnections)
	}
	return s
}

func (s *WebSocketServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return true
	}
	return false
}

// HandleWebSocket serves GET /ws/:room/:username.
func (s *WebSocketServer) HandleWebSocket(c *gin.Context) {
	room := domain.RoomName(c.Param("room"))
	username := c.Param("username")
	token := tokenFromRequest(c.Query("token"), c.GetHeader("Authorization"))

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warnw("websocket upgrade failed", "room", room, "user", username, "error", err)
		return
	}

	if !s.enter() {
		s.reject(conn, room, username, &Rejection{Code: websocket.CloseGoingAway, Reason: "server shutting down"})
		return
	}
	defer s.wg.Done()

	if !s.acquireSlot() {
		s.reject(conn, room, username, &Rejection{Code: websocket.CloseTryAgainLater, Reason: "too many connections"})
		return
	}
	defer s.releaseSlot()

	ctx := c.Request.Context()
	state, rejection := admit(ctx, s.verifier, room, username, token)
	if rejection != nil {
		s.reject(conn, room, username, rejection)
		return
	}

	s.serve(ctx, conn, room, username, state)
}

func (s *WebSocketServer) reject(conn *websocket.Conn, room domain.RoomName, username string, r *Rejection) {
	s.metrics.AdmissionRejected(r.MetricLabel())
	s.logger.Infow("connection rejected",
		"room", room,
		"user", username,
		"state", StateRejected,
		"code", r.Code,
		"reason", r.Reason,
	)

	reason := r.Reason
	if len(reason) > maxCloseReason {
		reason = reason[:maxCloseReason]
	}
	deadline := time.Now().Add(s.opts.WriteTimeout)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(r.Code, reason), deadline)
	conn.Close()
}

func (s *WebSocketServer) serve(ctx context.Context, conn *websocket.Conn, room domain.RoomName, username string, state AdmissionState) {
	transport := newWSTransport(conn, s.opts.SendBuffer, s.opts.WriteTimeout, s.opts.PingInterval, s.logger)
	go transport.writePump()

	if !s.track(transport) {
		transport.Close(websocket.CloseGoingAway, "server shutting down")
		transport.Wait()
		return
	}
	defer s.untrack(transport)

	c, online := s.registry.Connect(ctx, room, username, transport)
	state = StateJoined

	ctx = rlog.WithConnection(ctx, string(c.ID), string(room), username)
	log := s.clog.Sugar(ctx)
	log.Infow("connection joined", "state", state, "online", len(online))

	s.readLoop(ctx, conn, c, log)

	state = StateClosed
	transport.Close(websocket.CloseNormalClosure, "")
	s.registry.Disconnect(context.WithoutCancel(ctx), room, c.ID)
	transport.Wait()
	log.Infow("connection closed", "state", state)
}

func (s *WebSocketServer) readLoop(ctx context.Context, conn *websocket.Conn, c *domain.Connection, log *zap.SugaredLogger) {
	conn.SetReadLimit(s.opts.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
		return nil
	})

	var limiter *rate.Limiter
	if s.opts.MessagesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.opts.MessagesPerSecond), s.opts.Burst)
	}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				s.clog.LogError(ctx, err, "unexpected websocket close")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))

		if messageType != websocket.TextMessage {
			s.dropFrame(log, "binary", domain.ErrMalformedFrame)
			continue
		}
		if limiter != nil && !limiter.Allow() {
			s.dropFrame(log, "rate_limited", domain.ErrFrameRateExceeded)
			continue
		}

		frame, err := DecodeFrame(data)
		if err != nil {
			reason := "malformed"
			if errors.Is(err, domain.ErrUnknownFrameType) {
				reason = "unknown_type"
			}
			s.dropFrame(log, reason, err, "frame", utils.TruncateString(string(data), 256))
			continue
		}

		s.dispatch(ctx, c, frame, log)
	}
}

// dispatch applies one frame to the room. Errors are diagnostics only; the
// connection stays open.
func (s *WebSocketServer) dispatch(ctx context.Context, c *domain.Connection, frame Frame, log *zap.SugaredLogger) {
	ctx, span := tracing.TraceWebSocketMessage(ctx, string(frame.Type()), string(c.Room), string(c.ID))
	defer span.End()
	defer tracing.MeasureDuration(ctx, time.Now(), "dispatch")

	var err error
	switch f := frame.(type) {
	case MessageFrame:
		msg := &domain.Message{
			ID:        s.newMessageID(),
			Room:      c.Room,
			Author:    c.Username,
			Content:   f.Content,
			CreatedAt: s.now(),
			ViewOnce:  f.ViewOnce,
		}
		tracing.AddSpanAttributes(ctx, tracing.MessageIDKey.String(string(msg.ID)))
		err = s.registry.PostMessage(ctx, msg)

	case AddReactionFrame:
		tracing.AddSpanAttributes(ctx, tracing.MessageIDKey.String(string(f.MessageID)))
		_, err = s.registry.React(ctx, c.Room, f.MessageID, f.Emoji, c.Username, true)

	case RemoveReactionFrame:
		tracing.AddSpanAttributes(ctx, tracing.MessageIDKey.String(string(f.MessageID)))
		_, err = s.registry.React(ctx, c.Room, f.MessageID, f.Emoji, c.Username, false)
	}

	if err != nil {
		tracing.RecordError(ctx, err)
		reason := "rejected"
		switch {
		case errors.Is(err, domain.ErrMessageNotFound):
			reason = "message_not_found"
		case errors.Is(err, domain.ErrUserNotPresent):
			reason = "user_not_present"
		case errors.Is(err, domain.ErrReactionNotFound):
			reason = "reaction_not_found"
		}
		s.dropFrame(log, reason, err, "type", frame.Type())
	}
}

func (s *WebSocketServer) dropFrame(log *zap.SugaredLogger, reason string, err error, kv ...interface{}) {
	s.metrics.FrameRejected(reason)
	log.Warnw("frame dropped", append([]interface{}{"reason", reason, "error", err}, kv...)...)
}

func (s *WebSocketServer) acquireSlot() bool {
	if s.slots == nil {
		return true
	}
	select {
	case s.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *WebSocketServer) releaseSlot() {
	if s.slots != nil {
		<-s.slots
	}
}

// enter counts a handler in for Shutdown to wait on. It fails once shutdown
// has begun.
func (s *WebSocketServer) enter() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *WebSocketServer) track(t *wsTransport) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.connections[t] = struct{}{}
	return true
}

func (s *WebSocketServer) untrack(t *wsTransport) {
	s.mu.Lock()
	delete(s.connections, t)
	s.mu.Unlock()
}

// Shutdown refuses new connections, closes every live one with a going-away
// code and waits for all handlers to finish or ctx to end.
func (s *WebSocketServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	for t := range s.connections {
		t.Close(websocket.CloseGoingAway, "server shutting down")
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HealthCheck reports registry size.
func (s *WebSocketServer) HealthCheck(c *gin.Context) {
	stats := s.registry.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now().Unix(),
		"rooms":       stats.Rooms,
		"connections": stats.Connections,
	})
}
