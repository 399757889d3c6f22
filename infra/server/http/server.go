package httpsrv

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/webitel/event-broker/config"
	"github.com/webitel/event-broker/internal/handler/diag"
	"go.uber.org/fx"
)

// Server exposes the diagnostics router. A zero Addr leaves it disabled.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewRouter mounts health, broker stats and prometheus metrics.
func NewRouter(stats *diag.StatsHandler, gatherer prometheus.Gatherer) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	diag.RegisterRoutes(r, stats)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

func NewServer(cfg *config.Config, router chi.Router, logger *slog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger.With("component", "http"),
	}
}

func (s *Server) Enabled() bool { return s.srv.Addr != "" }

// Start binds the listener synchronously so address errors fail the app start.
func (s *Server) Start() error {
	if !s.Enabled() {
		s.logger.Info("HTTP_DISABLED")
		return nil
	}

	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP_SERVE_FAILED", "err", err)
		}
	}()

	s.logger.Info("HTTP_LISTENING", "addr", ln.Addr().String())
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

var Module = fx.Module("http-server",
	fx.Provide(
		diag.NewStatsHandler,
		NewRouter,
		NewServer,
	),
	fx.Invoke(func(lc fx.Lifecycle, s *Server) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error { return s.Start() },
			OnStop:  s.Stop,
		})
	}),
)
