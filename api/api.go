// Package api exposes the validation engine over HTTP: the main pipeline,
// the gateway perimeter check, and registry management.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"veritas/config"
	"veritas/core"
	"veritas/gateway"
	"veritas/validate"
)

// rateLimiterEntry holds a per-client limiter with its last-seen time so
// stale entries can be evicted.
type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Server is the HTTP surface of the engine.
type Server struct {
	cfg      *config.Config
	engine   *validate.Engine
	registry *core.RuleRegistry
	gateway  *gateway.Validator
	logger   *zap.SugaredLogger

	router *mux.Router
	server *http.Server

	limiterMu sync.Mutex
	limiters  map[string]*rateLimiterEntry

	cleanupCancel context.CancelFunc
}

// NewServer builds the router and middleware but does not listen yet.
func NewServer(cfg *config.Config, engine *validate.Engine, registry *core.RuleRegistry, gw *gateway.Validator, logger *zap.SugaredLogger) *Server {
	s := &Server{
		cfg:      cfg,
		engine:   engine,
		registry: registry,
		gateway:  gw,
		logger:   logger,
		router:   mux.NewRouter(),
		limiters: make(map[string]*rateLimiterEntry),
	}
	s.routes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(cfg.API.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.API.WriteTimeout) * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.Use(s.loggingMiddleware, s.rateLimitMiddleware)
	v1.HandleFunc("/validate", s.handleValidate).Methods(http.MethodPost)
	v1.HandleFunc("/gateway/validate", s.handleGatewayValidate).Methods(http.MethodPost)
	v1.HandleFunc("/rules", s.handleListRules).Methods(http.MethodGet)
	v1.HandleFunc("/rules", s.handleCreateRule).Methods(http.MethodPost)
	v1.HandleFunc("/rules/{id}", s.handleGetRule).Methods(http.MethodGet)
	v1.HandleFunc("/rules/{id}", s.handleUpdateRule).Methods(http.MethodPatch)
	v1.HandleFunc("/schemas/{module}/{operation}", s.handleRegisterSchema).Methods(http.MethodPut)
}

// Start listens until the context is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	cleanupCtx, cancel := context.WithCancel(ctx)
	s.cleanupCancel = cancel
	go s.cleanupLimiters(cleanupCtx)

	s.logger.Infow("API server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.cleanupCancel != nil {
		s.cleanupCancel()
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debugw("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"duration", time.Since(start))
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.allow(clientIP(r)) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allow(client string) bool {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()

	entry, ok := s.limiters[client]
	if !ok {
		entry = &rateLimiterEntry{
			limiter: rate.NewLimiter(
				rate.Limit(s.cfg.API.RateLimit.RequestsPerSecond),
				s.cfg.API.RateLimit.Burst),
		}
		s.limiters[client] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

// cleanupLimiters evicts limiter entries not seen for ten minutes.
func (s *Server) cleanupLimiters(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-10 * time.Minute)
			s.limiterMu.Lock()
			for client, entry := range s.limiters {
				if entry.lastSeen.Before(cutoff) {
					delete(s.limiters, client)
				}
			}
			s.limiterMu.Unlock()
		}
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
