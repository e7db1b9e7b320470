// Package http serves the ledger as a JSON API. Every browser session gets
// its own application controller.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"meudinheiro/internal/app"
	"meudinheiro/internal/cache"
	"meudinheiro/internal/identity"
	"meudinheiro/internal/log"
	"meudinheiro/internal/metrics"
	"meudinheiro/internal/middleware/ratelimit"
	"meudinheiro/internal/middleware/security"
	"meudinheiro/internal/prefs"
)

// PreferenceStore persists the display preference of each browser.
type PreferenceStore interface {
	Get(clientID string) prefs.Preferences
	SetDarkMode(clientID string, on bool) error
	Toggle(clientID string) (bool, error)
}

// TokenVerifier turns a bearer token into an identity.
type TokenVerifier interface {
	Verify(token string) (identity.Identity, error)
}

// Deps are the collaborators of the server. NewController and Logger are
// required; everything else is optional.
type Deps struct {
	NewController func() *app.Controller
	Preferences   PreferenceStore
	Verifier      TokenVerifier
	Metrics       *metrics.Metrics
	Logger        *log.Logger
	// Ready reports whether the backing stores are reachable.
	Ready func(ctx context.Context) error

	SessionTTL         time.Duration
	MaxSessions        int
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	deps     Deps
	sessions *sessionStore
	limiter  *ratelimit.Limiter
	detector *security.Detector
	caches   *cache.Manager
	logger   *log.Logger

	shutdownOnce sync.Once
}

// NewServer builds the router and starts the session sweeper.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Discard()
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = 12 * time.Hour
	}
	if deps.MaxSessions <= 0 {
		deps.MaxSessions = 1000
	}
	logger := deps.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		deps:     deps,
		sessions: newSessionStore(deps.NewController, deps.MaxSessions, deps.SessionTTL, deps.Metrics, logger),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
		detector: security.NewDetector(deps.Logger),
		caches:   cache.NewManager(deps.Logger),
		logger:   logger,
	}
	s.caches.Register(s.sessions.controllers)
	s.caches.Start(context.Background(), time.Minute)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(log.Middleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.observe)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limitMutations)

		r.Get("/state", s.handleState)
		r.Get("/icons", s.handleIcons)
		r.Get("/summary", s.handleSummary)
		r.Get("/breakdown", s.handleBreakdown)
		r.Post("/advice", s.handleAdvice)

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Post("/parse", s.handleParseTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
			r.Post("/{id}/toggle", s.handleToggleTransaction)
		})

		r.Route("/months", func(r chi.Router) {
			r.Get("/", s.handleListMonths)
			r.Post("/", s.handleAddMonth)
			r.Put("/selected", s.handleSelectMonth)
			r.Delete("/{id}", s.handleDeleteMonth)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleAddCategory)
			r.Delete("/{type}/{name}", s.handleDeleteCategory)
		})

		r.Get("/preferences/theme", s.handleGetTheme)
		r.Put("/preferences/theme", s.handleSetTheme)
		r.Post("/preferences/theme/toggle", s.handleToggleTheme)

		r.Route("/session", func(r chi.Router) {
			r.Post("/signin", s.handleSignIn)
			r.Post("/demo", s.handleDemoSignIn)
			r.Post("/signout", s.handleSignOut)
		})
	})

	return r
}

// limitMutations applies the rate limiter to everything but reads.
func (s *Server) limitMutations(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ClientIP(r), log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
	})(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			limited.ServeHTTP(w, r)
		}
	})
}

// observe records request latency by route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		s.deps.Metrics.ObserveRequest(r.Method, route, time.Since(start))
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Shutdown stops accepting requests, then closes every session. Pending
// debounced saves are dropped.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
		s.caches.Stop()
		s.limiter.Stop()
		s.sessions.closeAll()
	})
	return err
}
