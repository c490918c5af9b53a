package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/runnerr0/sitetime/internal/config"
	"github.com/runnerr0/sitetime/internal/ingest"
	"github.com/runnerr0/sitetime/internal/storage"
	"github.com/runnerr0/sitetime/internal/tracker"
)

const (
	readTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
	idleTimeout  = 60 * time.Second
)

// Execute implements the go-flags Commander interface for DaemonCommand.
func (c *DaemonCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Daemon.Port = c.Port
	}
	if c.LogLevel != "" {
		cfg.Logging.Level = c.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg, c.globals, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.Daemon.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Daemon.Addr(), err)
	}
	return serve(ctx, cfg, ln, logger, c.version)
}

// serve runs the tracker and HTTP server on ln until ctx is done. The server
// is shut down before the tracker so no event arrives after its final flush.
func serve(ctx context.Context, cfg *config.Config, ln net.Listener, logger *slog.Logger, version string) error {
	var store storage.Store
	sqlStore, db, err := openStore(cfg)
	if err != nil {
		logger.Error("open database failed; durations will not survive a restart", "error", err)
		store = storage.NewMemoryStore(nil)
	} else {
		defer db.Close()
		defer sqlStore.Close()
		store = sqlStore
	}

	source := ingest.NewSource()
	tr, err := tracker.New(tracker.Options{
		Store:        store,
		Source:       source,
		Normalizer:   tracker.NewNormalizer(cfg.Tracker.StripWWW, cfg.Tracker.Ignored()),
		Logger:       logger.With("component", "tracker"),
		TickInterval: cfg.Tracker.TickInterval(),
		QueueSize:    cfg.Tracker.QueueSize,
	})
	if err != nil {
		ln.Close()
		return err
	}

	scfg := ingest.ServerConfig{
		Address:        ln.Addr().String(),
		AuthToken:      cfg.Daemon.AuthToken,
		MaxRequestSize: int64(cfg.Daemon.MaxRequestSize),
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    idleTimeout,
	}
	handler := ingest.NewHandler(scfg, source, tr, logger.With("component", "ingest"), version)
	srv := ingest.NewHTTPServer(scfg, handler.Routes())

	trCtx, cancelTracker := context.WithCancel(context.Background())
	defer cancelTracker()
	trDone := make(chan error, 1)
	go func() { trDone <- tr.Run(trCtx) }()

	srvDone := make(chan error, 1)
	go func() { srvDone <- srv.Serve(ln) }()

	logger.Info("daemon listening", "addr", scfg.Address, "session", handler.SessionID(), "version", version)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-srvDone:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			runErr = fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Daemon.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", "error", err)
	}

	cancelTracker()
	if err := <-trDone; err != nil && runErr == nil {
		runErr = err
	}

	logger.Info("daemon stopped")
	return runErr
}
