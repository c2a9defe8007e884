package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-admin-console/auth"
	"github.com/jrsteele09/go-admin-console/directory"
	"github.com/jrsteele09/go-admin-console/internal/config"
	"github.com/jrsteele09/go-admin-console/internal/metrics"
	"github.com/jrsteele09/go-admin-console/server"
	"github.com/jrsteele09/go-admin-console/session"
	"github.com/jrsteele09/go-admin-console/session/boltstore"
	"github.com/jrsteele09/go-admin-console/session/redisstore"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("error running console")
	}
	log.Info().Msg("console stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	configureLogging(cfg.LogLevel)
	displayAppname(cfg.AppName)

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := context.Background()

	// Authentication settles before the tenant session may initialize: the
	// persisted credential is recovered first and the readiness barrier is
	// lifted only afterwards.
	persistedCredential, err := store.LoadCredential(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("loading persisted credential failed, starting unauthenticated")
	}
	creds := auth.NewCredentials(persistedCredential)
	creds.FinishStartup()

	directoryClient := directory.NewHTTPClient(
		cfg.DirectoryBaseURL,
		directory.WithTokenSource(creds),
		directory.WithRequestTimeout(cfg.DirectoryTimeout),
		directory.WithLogger(log.With().Str("component", "directory").Logger()),
	)

	registry := prometheus.NewRegistry()
	manager, err := session.NewManager(
		directoryClient,
		store,
		creds,
		creds,
		session.WithLogger(log.With().Str("component", "session").Logger()),
		session.WithMetrics(metrics.NewSessionMetrics(registry)),
	)
	if err != nil {
		return fmt.Errorf("creating session manager: %w", err)
	}
	session.NewAutoSelectPolicy(manager, session.WithPolicyLogger(log.With().Str("component", "autoselect").Logger()))

	if err := manager.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing session: %w", err)
	}

	apiServer, err := server.New(
		manager,
		server.WithLogger(log.With().Str("component", "server").Logger()),
		server.WithMetricsHandler(registry),
	)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: apiServer}
	go listenAndServe(httpServer)
	waitForStopSignal()
	return shutdown(httpServer)
}

func openStore(cfg *config.Config) (session.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreBolt:
		store, err := boltstore.Open(cfg.BoltPath, boltstore.WithLogger(log.With().Str("component", "boltstore").Logger()))
		if err != nil {
			return nil, nil, fmt.Errorf("opening session store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		store := redisstore.NewStore(client, cfg.RedisKeyPrefix, log.With().Str("component", "redisstore").Logger())
		return store, func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store backend %q", cfg.StoreBackend)
	}
}

func configureLogging(level string) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}

func listenAndServe(httpServer *http.Server) {
	log.Info().Str("addr", httpServer.Addr).Msg("console listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
