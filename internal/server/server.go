// Package server собирает справочный backend: маршруты, middleware, realtime-хаб и graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/campussync/internal/config"
	"github.com/iudanet/campussync/internal/gate"
	"github.com/iudanet/campussync/internal/server/handlers"
	"github.com/iudanet/campussync/internal/server/middleware"
	"github.com/iudanet/campussync/internal/server/realtime"
	"github.com/iudanet/campussync/internal/server/storage"
)

const sessionPath = "/api/v1/auth/session"

// Store хранилище сервера с проверкой доступности для health check
type Store interface {
	storage.Storage
	handlers.Pinger
}

// Server справочный сервер ленты
type Server struct {
	logger      *slog.Logger
	hub         *realtime.Hub
	handler     http.Handler
	gates       []*gate.Gate
	cfg         config.Server
	readTimeout time.Duration
}

// New собирает сервер. Хранилищем владеет вызывающий; Close освобождает gate.
func New(cfg config.Server, store Store, logger *slog.Logger, version string) *Server {
	s := &Server{
		cfg:         cfg,
		logger:      logger,
		hub:         realtime.NewHub(logger),
		readTimeout: 15 * time.Second,
	}

	jwtConfig := handlers.JWTConfig{
		Secret:         []byte(cfg.JWTSecret),
		AccessTokenTTL: cfg.AccessTokenTTL,
	}

	sessionHandler := handlers.NewSessionHandler(logger, jwtConfig)
	healthHandler := handlers.NewHealthHandler(logger, store, version)
	postsHandler := handlers.NewPostsHandler(logger, store, s.hub)
	realtimeHandler := handlers.NewRealtimeHandler(logger, s.hub)

	auth := middleware.AuthMiddleware(logger, jwtConfig)

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+sessionPath, sessionHandler.CreateSession)
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)
	mux.Handle("GET /api/v1/posts", auth(http.HandlerFunc(postsHandler.ListPosts)))
	mux.Handle("POST /api/v1/posts", auth(http.HandlerFunc(postsHandler.CreatePost)))
	mux.Handle("GET /api/v1/posts/{id}/reaction", auth(http.HandlerFunc(postsHandler.GetReaction)))
	mux.Handle("POST /api/v1/posts/{id}/reaction", auth(http.HandlerFunc(postsHandler.AddReaction)))
	mux.Handle("DELETE /api/v1/posts/{id}/reaction", auth(http.HandlerFunc(postsHandler.RemoveReaction)))
	mux.Handle("POST /api/v1/posts/{id}/comments", auth(http.HandlerFunc(postsHandler.AddComment)))
	mux.Handle("GET /api/v1/realtime", auth(http.HandlerFunc(realtimeHandler.ServeWS)))

	defaultGate := gate.New(cfg.RateLimit, gate.WithLogger(logger))
	sessionGate := gate.New(cfg.SessionRateLimit, gate.WithLogger(logger))
	s.gates = []*gate.Gate{defaultGate, sessionGate}

	s.handler = chain(mux, logger, defaultGate, sessionGate)

	return s
}

// chain оборачивает маршруты в общие middleware.
// Порядок: recovery -> logging -> rate limit -> mux
func chain(next http.Handler, logger *slog.Logger, defaultGate, sessionGate *gate.Gate) http.Handler {
	h := middleware.RateLimitByPathMiddleware([]middleware.PathRateLimit{
		{Path: sessionPath, Gate: sessionGate},
	}, defaultGate, logger)(next)
	h = middleware.LoggingWithSkip(logger, []string{"/api/v1/health"})(h)
	return middleware.RecoveryMiddleware(logger)(h)
}

// Handler возвращает корневой http.Handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub возвращает realtime-хаб
func (s *Server) Hub() *realtime.Hub {
	return s.hub
}

// Serve обслуживает ln до отмены ctx, затем корректно останавливается
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.readTimeout,
	}

	hubCtx, stopHub := context.WithCancel(context.WithoutCancel(ctx))
	defer stopHub()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.hub.Run(hubCtx)
		return nil
	})
	g.Go(func() error {
		s.logger.Info("Server listening", "addr", ln.Addr().String())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down server")

		// Websocket-соединения сервер не отслеживает: их закрывает остановка хаба
		stopHub()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// ListenAndServe слушает cfg.Addr
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Close останавливает фоновую очистку rate limit
func (s *Server) Close() {
	for _, g := range s.gates {
		g.Stop()
	}
}
