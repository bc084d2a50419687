package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xhad/sitechat/pkg/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Message is one websocket frame in either direction.
type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

// Inbound frame types.
const (
	TypeCredential = "credential"
	TypeURL        = "url"
	TypeMessage    = "message"
)

// Outbound frame types.
const (
	TypeStatus   = "status"
	TypeResponse = "response"
	TypeError    = "error"
)

// SessionFactory creates the session backing one connection.
type SessionFactory func() (*session.Session, error)

type Config struct {
	Address         string
	ShutdownTimeout time.Duration
}

type WSServer struct {
	config     Config
	newSession SessionFactory
	registry   *prometheus.Registry
	metrics    *metrics

	// Hijacked connections are invisible to http.Server.Shutdown, so they are tracked here.
	mu       sync.Mutex
	conns    map[*websocket.Conn]struct{}
	closing  bool
	handlers sync.WaitGroup
}

type metrics struct {
	connections prometheus.Gauge
	frames      *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sitechat",
			Name:      "active_connections",
			Help:      "Open websocket connections.",
		}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitechat",
			Name:      "frames_total",
			Help:      "Inbound frames by type.",
		}, []string{"type"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitechat",
			Name:      "failures_total",
			Help:      "Failed operations by type.",
		}, []string{"type"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sitechat",
			Name:      "operation_duration_seconds",
			Help:      "Time spent indexing websites and answering questions.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"type"}),
	}
	reg.MustRegister(m.connections, m.frames, m.failures, m.duration)
	return m
}

func NewWSServer(config Config, newSession SessionFactory) (*WSServer, error) {
	if newSession == nil {
		return nil, errors.New("session factory is required")
	}
	if config.Address == "" {
		config.Address = ":8080"
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &WSServer{
		config:     config,
		newSession: newSession,
		registry:   reg,
		metrics:    newMetrics(reg),
		conns:      make(map[*websocket.Conn]struct{}),
	}, nil
}

// Handler serves /ws, /health and /metrics.
func (s *WSServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (s *WSServer) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled. On shutdown every
// websocket is closed and Serve returns only after each session has been closed.
func (s *WSServer) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	srv.RegisterOnShutdown(s.closeConnections)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting websocket server", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.closeConnections()
		s.handlers.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down websocket server")
		err := srv.Shutdown(shutdownCtx)
		// RegisterOnShutdown hooks run asynchronously; make sure they have happened.
		s.closeConnections()
		if werr := s.waitHandlers(shutdownCtx); err == nil {
			err = werr
		}
		return err
	}
}

// track registers conn unless the server is shutting down.
func (s *WSServer) track(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[conn] = struct{}{}
	s.handlers.Add(1)
	return true
}

func (s *WSServer) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.handlers.Done()
}

func (s *WSServer) closeConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closing = true
	for conn := range s.conns {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
	}
}

func (s *WSServer) waitHandlers(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.handlers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sessions still open after shutdown: %w", ctx.Err())
	}
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	if !s.track(conn) {
		return
	}
	defer s.untrack(conn)

	sess, err := s.newSession()
	if err != nil {
		log.Error("failed to create session", "err", err)
		s.sendMessage(conn, TypeError, session.MsgGeneric, nil)
		return
	}
	defer sess.Close()

	s.metrics.connections.Inc()
	defer s.metrics.connections.Dec()

	log.Debug("session opened", "session", sess.ID(), "remote", r.RemoteAddr)

	for _, m := range sess.Messages() {
		s.sendMessage(conn, TypeResponse, m.Content, nil)
	}

	// Frames are handled in order; a session is never used by two goroutines.
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("error reading message", "session", sess.ID(), "err", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendMessage(conn, TypeError, "Malformed message.", nil)
			continue
		}

		s.handleMessage(r.Context(), conn, sess, msg)
	}

	log.Debug("session closed", "session", sess.ID())
}

func (s *WSServer) handleMessage(ctx context.Context, conn *websocket.Conn, sess *session.Session, msg Message) {
	switch msg.Type {
	case TypeCredential, TypeURL, TypeMessage:
		s.metrics.frames.WithLabelValues(msg.Type).Inc()
	default:
		s.metrics.frames.WithLabelValues("unknown").Inc()
	}

	switch msg.Type {
	case TypeCredential:
		sess.SetCredential(msg.Content)
		s.sendMessage(conn, TypeStatus, "API key set.", nil)

	case TypeURL:
		s.sendMessage(conn, TypeStatus, fmt.Sprintf("Processing URL: %s", msg.Content), nil)

		start := time.Now()
		info, err := sess.SubmitURL(ctx, msg.Content)
		s.metrics.duration.WithLabelValues(TypeURL).Observe(time.Since(start).Seconds())
		if err != nil {
			s.fail(conn, sess, TypeURL, err)
			return
		}
		s.sendMessage(conn, TypeStatus, "Website content loaded and processed successfully!", info)

	case TypeMessage:
		start := time.Now()
		reply, err := sess.Ask(ctx, msg.Content)
		s.metrics.duration.WithLabelValues(TypeMessage).Observe(time.Since(start).Seconds())
		if err != nil {
			s.fail(conn, sess, TypeMessage, err)
			return
		}
		s.sendMessage(conn, TypeResponse, reply, nil)

	default:
		s.sendMessage(conn, TypeError, fmt.Sprintf("Unknown message type %q.", msg.Type), nil)
	}
}

func (s *WSServer) fail(conn *websocket.Conn, sess *session.Session, op string, err error) {
	s.metrics.failures.WithLabelValues(op).Inc()
	log.Warn("request failed", "session", sess.ID(), "type", op, "err", err)
	s.sendMessage(conn, TypeError, session.UserMessage(err), nil)
}

func (s *WSServer) sendMessage(conn *websocket.Conn, msgType string, content string, data interface{}) {
	msg := Message{
		Type:    msgType,
		Content: content,
		Data:    data,
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Debug("error sending message", "type", msgType, "err", err)
	}
}
