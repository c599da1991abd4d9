package httpgateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joripage/exposure-gate/pkg/logging"
	"github.com/joripage/exposure-gate/pkg/metrics"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// NewRouter wires the handler routes, the metrics endpoint and the shared
// middleware stack.
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/health", h.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/order", h.CreateOrder)
		r.Get("/exposure", h.ListExposure)
		r.Get("/exposure/{symbol}", h.GetExposure)
	})

	if len(allowedOrigins) == 0 {
		return r
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(r)
}

type Server struct {
	srv    *http.Server
	logger *logging.Logger
}

func NewServer(cfg ServerConfig, h *Handler, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Server{
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           NewRouter(h, cfg.AllowedOrigins),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start serves in the background; listen errors other than a clean shutdown
// are logged.
func (s *Server) Start() {
	go func() {
		s.logger.Info(context.Background(), "http server starting", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
