package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SetupScan/internal/service/ratelimit"
	"SetupScan/internal/usecase"
	"SetupScan/pkg/config"
	xhttp "SetupScan/pkg/http"
	applogger "SetupScan/pkg/logger"
)

const (
	sweepEvery = time.Minute
	sweepIdle  = 10 * time.Minute
)

// Lifetime is the process-wide context background scans run under.
type Lifetime struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func NewLifetime() *Lifetime {
	ctx, cancel := context.WithCancel(context.Background())
	return &Lifetime{ctx: ctx, cancel: cancel}
}

func (l *Lifetime) Context() context.Context { return l.ctx }

// Cancel aborts any scan still running.
func (l *Lifetime) Cancel() { l.cancel() }

type resource struct {
	name string
	c    io.Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	life       *Lifetime
	httpServer *xhttp.Server
	svc        *usecase.ScanService
	limiter    *ratelimit.Limiter
	log        *applogger.Logger
	resources  []resource
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	life *Lifetime,
	httpServer *xhttp.Server,
	svc *usecase.ScanService,
	limiter *ratelimit.Limiter,
	log *applogger.Logger,
) *App {
	if log == nil {
		log = applogger.NewNop()
	}
	return &App{
		cfg:        cfg,
		life:       life,
		httpServer: httpServer,
		svc:        svc,
		limiter:    limiter,
		log:        log,
	}
}

// AddCloser registers a resource closed on shutdown, in reverse registration order.
func (a *App) AddCloser(name string, c io.Closer) {
	if c == nil {
		return
	}
	a.resources = append(a.resources, resource{name: name, c: c})
}

// Service exposes the scan service for the one-shot CLI commands.
func (a *App) Service() *usecase.ScanService { return a.svc }

func (a *App) Logger() *applogger.Logger { return a.log }

// Run starts the HTTP server and blocks until ctx ends or an interrupt arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	if a.limiter != nil {
		go a.sweep(ctx)
	}
	a.log.Info("setupscan started",
		applogger.String("addr", a.httpServer.Addr()),
		applogger.String("env", a.cfg.Environment),
		applogger.String("archive", a.cfg.Archive.Type),
		applogger.Bool("kafka", a.cfg.Kafka.Enabled),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown cancels the running scan first so open event streams reach their terminal event.
func (a *App) shutdown() error {
	a.life.Cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	err := a.Close()
	a.log.Info("shutdown complete")
	return err
}

// Close releases infrastructure clients once the running scan has finished exporting.
// The log collector is drained before its producer closes.
func (a *App) Close() error {
	a.life.Cancel()
	if a.svc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		if err := a.svc.Wait(ctx); err != nil {
			a.log.Warn("scan still exporting at shutdown", applogger.Error(err))
		}
		cancel()
	}
	a.log.RemoveCollector()

	var errs []error
	for i := len(a.resources) - 1; i >= 0; i-- {
		r := a.resources[i]
		if err := r.c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", r.name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", r.name, err))
		}
	}
	a.resources = nil
	return errors.Join(errs...)
}

func (a *App) sweep(ctx context.Context) {
	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.limiter.Sweep(sweepIdle); n > 0 {
				a.log.Debug("rate limiter swept", applogger.Int("buckets", n))
			}
		}
	}
}
