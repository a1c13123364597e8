// Package gateway serves the streaming chat API: bearer authentication,
// access gating, request validation and the SSE/WebSocket relay surface.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tempopilot/coach-gateway/internal/access"
	"github.com/tempopilot/coach-gateway/internal/azure"
	"github.com/tempopilot/coach-gateway/internal/config"
	"github.com/tempopilot/coach-gateway/internal/domain"
	"github.com/tempopilot/coach-gateway/internal/logging"
	"github.com/tempopilot/coach-gateway/internal/relay"
	"github.com/tempopilot/coach-gateway/internal/tools"
	"github.com/tempopilot/coach-gateway/internal/version"
)

// ChatStarter opens one upstream stream with retry and fallback applied.
type ChatStarter interface {
	Start(ctx context.Context, msgs []domain.Message, defs []tools.Definition) (*azure.Stream, error)
}

// UsageRecorder persists one usage row per completed request.
type UsageRecorder interface {
	Record(ctx context.Context, rec domain.UsageRecord) error
}

// Server is the coach gateway HTTP server.
type Server struct {
	cfg      config.Config
	log      *logging.Logger
	auth     access.Authenticator
	gate     access.Gate
	starter  ChatStarter
	relay    *relay.Relay
	registry *tools.Registry
	recorder UsageRecorder

	startedAt  time.Time
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// ServerOption configures optional server dependencies.
type ServerOption func(*Server)

// WithRecorder enables usage recording. Without it completed requests are
// only logged.
func WithRecorder(rec UsageRecorder) ServerOption {
	return func(s *Server) {
		s.recorder = rec
	}
}

// New creates the gateway server around its access and upstream dependencies.
func New(
	cfg config.Config,
	log *logging.Logger,
	auth access.Authenticator,
	gate access.Gate,
	starter ChatStarter,
	registry *tools.Registry,
	opts ...ServerOption,
) *Server {
	s := &Server{
		cfg:      cfg,
		log:      log.Sub("gateway"),
		auth:     auth,
		gate:     gate,
		starter:  starter,
		relay:    relay.New(registry, log),
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkWebSocketOrigin(cfg.Gateway.AllowedOrigins),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// checkWebSocketOrigin returns a function that validates WebSocket Origin
// headers. Same-origin and non-browser clients (no Origin header) always
// pass; browser origins must be configured explicitly.
func checkWebSocketOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return isOriginAllowed(origin, allowed)
	}
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.GatewayConfig) string {
	switch cfg.Bind {
	case "lan":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, cfg.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/chat", s.handleChat)
	mux.HandleFunc("GET /v1/chat/ws", s.handleChatWS)
	mux.HandleFunc("GET /health", s.handleHealth)

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}

// Handler returns the full middleware-wrapped handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerHTTPRoutes(mux)
	return withMiddleware(mux, s.log, s.cfg.Gateway.AllowedOrigins)
}

// Start begins listening for HTTP connections. It blocks until the context
// is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg.Gateway)

	// No WriteTimeout: SSE responses stay open for the life of a completion.
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.startedAt = time.Now()
	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Gateway.Bind).
		Str("version", version.Version).
		Msg("gateway server ready")

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down gateway server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}
