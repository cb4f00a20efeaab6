package server

import (
	"context"
	"errors"
	"fmt"
	"helixclips/app/client/twitch"
	"helixclips/app/http/handler"
	"helixclips/app/http/middleware"
	"helixclips/app/repository/catalog"
	"helixclips/app/storage"
	"helixclips/pkg/config"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/do"
)

type Server struct {
	cfg *config.Config
	app *fiber.App
}

func New(di *do.Injector) (*Server, error) {
	reg := do.MustInvoke[*prometheus.Registry](di)

	var media handler.MediaLinker
	objStore, err := do.Invoke[storage.Storage](di)
	if err != nil {
		slog.Warn("Media links disabled", slog.Any("error", err))
	} else {
		media = objStore
	}

	return NewServer(
		do.MustInvoke[*config.Config](di),
		reg,
		do.MustInvoke[*twitch.Client](di),
		do.MustInvoke[*catalog.Catalog](di),
		media,
	)
}

// NewServer builds the fiber app. media may be nil.
func NewServer(cfg *config.Config, reg *prometheus.Registry, clips handler.ClipsAPI, cat handler.Catalog, media handler.MediaLinker) (*Server, error) {
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return nil, fmt.Errorf("register http metrics: %w", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          handler.ErrorHandler(),
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	app.Use(middleware.Tracing(nil))
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	handler.RegisterRoutes(app, clips, cat, media)

	return &Server{cfg: cfg, app: app}, nil
}

func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		slog.Info("Starting HTTP server", slog.String("addr", s.cfg.HTTP.Addr))
		errChan <- s.app.Listen(s.cfg.HTTP.Addr)
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
