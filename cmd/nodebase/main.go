package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	app "github.com/nodebase/engine"
	"github.com/nodebase/engine/internal/archive"
	"github.com/nodebase/engine/internal/config"
	"github.com/nodebase/engine/internal/engine"
	"github.com/nodebase/engine/internal/executors"
	"github.com/nodebase/engine/internal/server"
	"github.com/nodebase/engine/internal/status"
	"github.com/nodebase/engine/internal/store"
	"github.com/nodebase/engine/pkg/log"
)

type nodebase struct {
	cfg        *config.Config
	store      *store.RedisStore
	hub        *status.Hub
	archiver   *archive.BlobArchiver
	engine     *engine.Engine
	apiServer  *server.Server
	httpServer *http.Server
	quit       chan os.Signal
}

var (
	ErrConnectStore  = errors.New("failed to connect to store")
	ErrCreateArchive = errors.New("failed to open archive bucket")
)

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &nodebase{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		os.Exit(1)
	}
}

func (s *nodebase) run() error {
	if err := s.initializeStores(); err != nil {
		return err
	}

	s.initializeEngine()
	s.startServer()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *nodebase) setupLogging() {
	level := log.ParseLevel(s.cfg.LogLevel)
	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("Nodebase Engine starting",
		slog.String("log_level", s.cfg.LogLevel))

	slog.Info("Configuration loaded",
		slog.String("redis_addr", s.cfg.Redis.Addr),
		slog.Int("redis_db", s.cfg.Redis.DB),
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort))
}

func (s *nodebase) initializeStores() error {
	s.store = store.New(s.cfg.Redis)
	if err := s.store.Ping(context.Background()); err != nil {
		_ = s.store.Close()
		return fmt.Errorf("%w: %w", ErrConnectStore, err)
	}

	if s.cfg.ArchiveBucketURL != "" {
		archiver, err := archive.NewBlobArchiver(
			context.Background(), s.cfg.ArchiveBucketURL, s.cfg.ArchivePrefix,
		)
		if err != nil {
			_ = s.store.Close()
			return fmt.Errorf("%w: %w", ErrCreateArchive, err)
		}
		s.archiver = archiver
	}

	return nil
}

func (s *nodebase) initializeEngine() {
	s.hub = status.NewHub()

	deps := engine.Dependencies{
		Store:    s.store,
		Hub:      s.hub,
		Registry: executors.NewRegistry(),
	}
	if s.archiver != nil {
		deps.Archiver = s.archiver
	}

	s.engine = engine.New(s.cfg, deps)
	s.engine.Start()
}

func (s *nodebase) startServer() {
	s.apiServer = server.NewServer(s.engine, s.store, s.hub, s.cfg)
	mux := s.apiServer.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: mux,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *nodebase) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	s.apiServer.CloseWebSockets()

	if err := s.engine.Stop(); err != nil {
		slog.Error("Engine shutdown failed", log.Error(err))
	}

	s.hub.Close()
	if s.archiver != nil {
		_ = s.archiver.Close()
	}
	_ = s.store.Close()

	slog.Info("Server exited")
}
