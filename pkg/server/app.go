package server

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"FinWatch/internal/usecase"
	"FinWatch/pkg/config"
	xhttp "FinWatch/pkg/http"
	pkgkafka "FinWatch/pkg/kafka"
	"FinWatch/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// App owns the process lifecycle: HTTP server, liveness sweeper and the
// optional Kafka control consumer.
type App struct {
	cfg      *config.Config
	registry *usecase.Registry
	http     *xhttp.Server
	consumer *pkgkafka.Consumer
	log      *logger.Logger
}

// New creates a new App instance with all dependencies. consumer may be nil.
func New(
	cfg *config.Config,
	registry *usecase.Registry,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	log *logger.Logger,
) *App {
	if log == nil {
		log = logger.Nop()
	}
	return &App{
		cfg:      cfg,
		registry: registry,
		http:     srv,
		consumer: consumer,
		log:      log,
	}
}

// Registry exposes the session registry, e.g. to start a default session.
func (a *App) Registry() *usecase.Registry { return a.registry }

// Run blocks until SIGINT/SIGTERM or until a component fails.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext runs until ctx is done, then shuts everything down.
func (a *App) RunContext(ctx context.Context) error {
	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer start: %w", err)
		}
		a.log.Info("kafka control consumer started", logger.String("topic", a.cfg.Kafka.Control.Topic))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.http.Run()
	})

	g.Go(func() error {
		a.registry.RunSweeper(gctx, a.cfg.Monitor.SweepInterval)
		return nil
	})

	a.log.Info("finwatch started",
		logger.String("source", a.cfg.Source.Type),
		logger.Int("port", a.cfg.Server.Port),
	)

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// shutdown stops accepting control requests first, then tears down every
// session.
func (a *App) shutdown() error {
	a.log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.http.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("kafka consumer stop: %w", err))
		}
	}

	n := a.registry.Len()
	a.registry.StopAll()
	a.log.Info("shutdown complete", logger.Int("sessions_stopped", n))
	return errors.Join(errs...)
}
