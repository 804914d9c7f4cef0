package api

import (
	"net/http"

	"cell-arena/internal/game"
	"cell-arena/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineInterface is the slice of *game.Engine the transport uses.
// Tests substitute a mock holding a fixed snapshot.
type EngineInterface interface {
	Snapshot() *game.WorldSnapshot
	GetEventLogStats() map[string]interface{}
	OnConnect(id game.Identity)
	OnDisconnect(id game.Identity) bool
	Dispatch(id game.Identity, req game.Request) (bool, error)
}

// ClientCounter reports live WebSocket clients for /api/stats.
type ClientCounter interface {
	ClientCount() int
}

// RouterConfig wires NewRouter. Only Engine is required.
type RouterConfig struct {
	Engine  EngineInterface
	Clients ClientCounter // nil reports zero connections

	// RateLimiter is shared with the owning Server so Shutdown can stop it.
	// When nil, one is built from RateLimitConfig (or the defaults).
	RateLimiter     *IPRateLimiter
	RateLimitConfig *RateLimitConfig

	CORSOrigins    []string // nil uses AllowedOrigins
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router.
type routerHandlers struct {
	engine  EngineInterface
	clients ClientCounter
}

// NewRouter builds the read-only HTTP surface. It opens no listener, so
// tests can mount it on httptest.NewServer directly.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(requestMetrics)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = AllowedOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	h := &routerHandlers{
		engine:  cfg.Engine,
		clients: cfg.Clients,
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/config", h.handleGetConfig)
		r.Get("/state", h.handleGetState)
		r.Get("/stats", h.handleGetStats)
		r.Get("/leaderboard", h.handleGetLeaderboard)
		r.Get("/view", h.handleGetView)
	})

	r.Get("/health", h.handleHealth)

	return r
}

// requestMetrics counts responses by method and status.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordRequest(r.Method, status)
	})
}
