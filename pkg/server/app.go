package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	domsvc "LGDPulse/internal/domain/service"
	"LGDPulse/internal/usecase"
	"LGDPulse/pkg/config"
	xhttp "LGDPulse/pkg/http"
	applogger "LGDPulse/pkg/logger"
)

// App encapsulates the application lifecycle: one monitoring cycle for the
// configured model, then the read-only HTTP surface until interrupted.
type App struct {
	cfg   *config.Config
	log   *applogger.Logger
	run   *usecase.ValidationRun
	model domsvc.Model

	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
	closers     []io.Closer
}

// New creates a new App instance.
func New(cfg *config.Config, log *applogger.Logger, run *usecase.ValidationRun, model domsvc.Model) *App {
	return &App{cfg: cfg, log: log, run: run, model: model}
}

// SetHTTPHandler allows DI to inject the HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// AddCloser registers an infrastructure client to close on shutdown.
func (a *App) AddCloser(c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, c)
	}
}

// Run executes the monitoring cycle and serves results until interrupted.
// A fatal cycle error (schema or model contract) stops the app; otherwise
// the HTTP surface stays up for dashboard collaborators.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	cycleErr := make(chan error, 1)
	go func() {
		bundle, err := a.run.Execute(ctx, a.model)
		if err != nil {
			cycleErr <- err
			return
		}
		a.log.Info("monitoring cycle complete",
			applogger.String("run_id", bundle.RunID),
			applogger.String("overall", string(bundle.Verdict.Overall)),
			applogger.Strings("skipped", bundle.Skipped))
		cycleErr <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-cycleErr:
		if err != nil {
			a.log.Error("monitoring cycle failed", applogger.Error(err))
			_ = a.shutdown(ctx)
			return err
		}
		<-sigCh
	case <-sigCh:
	}

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops the HTTP server and closes infrastructure clients.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Warn("close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
