package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// ServerConfig bundles what NewServer needs beyond the engine.
type ServerConfig struct {
	RateLimit      RateLimitConfig
	Hub            HubConfig
	CORSOrigins    []string
	DisableLogging bool
}

// DefaultServerConfig returns production defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		RateLimit: DefaultRateLimitConfig,
		Hub:       DefaultHubConfig(),
	}
}

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with the WebSocket hub for real-time updates.
type Server struct {
	engine      EngineInterface
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter

	mu         sync.Mutex
	httpServer *http.Server
}

// NewServer creates a new API server.
//
// IMPORTANT: The hub's background loops do NOT start until Start() is called.
// Tests can construct the server, call Hub().Start() and serve Router()
// through httptest without opening a listener.
func NewServer(engine EngineInterface, cfg ServerConfig) *Server {
	s := &Server{
		engine:      engine,
		wsHub:       NewWebSocketHub(engine, cfg.Hub),
		rateLimiter: NewIPRateLimiter(cfg.RateLimit),
	}

	s.router = NewRouter(RouterConfig{
		Engine:         engine,
		Clients:        s.wsHub,
		RateLimiter:    s.rateLimiter,
		CORSOrigins:    cfg.CORSOrigins,
		DisableLogging: cfg.DisableLogging,
	})

	// Add WebSocket routes (these need the wsHub instance)
	s.setupWebSocketRoutes()

	return s
}

// setupWebSocketRoutes adds WebSocket-specific routes to the router.
func (s *Server) setupWebSocketRoutes() {
	s.router.Get("/ws", s.wsHub.HandleWebSocket)
}

// Start begins the HTTP server AND starts the hub.
// It blocks until the listener fails or Shutdown is called; a clean
// shutdown returns nil.
func (s *Server) Start(addr string) error {
	s.wsHub.Start()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("🔌 WebSocket: ws://localhost%s/ws", addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Shutdown stops accepting requests, closes every WebSocket (running each
// disconnect hook), and stops background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	s.wsHub.Stop()
	s.rateLimiter.Stop()
	return err
}
