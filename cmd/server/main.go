package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ichi0g0y/spy-party/internal/clock"
	"github.com/ichi0g0y/spy-party/internal/directory"
	"github.com/ichi0g0y/spy-party/internal/env"
	"github.com/ichi0g0y/spy-party/internal/game"
	"github.com/ichi0g0y/spy-party/internal/localdb"
	"github.com/ichi0g0y/spy-party/internal/router"
	"github.com/ichi0g0y/spy-party/internal/settings"
	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"github.com/ichi0g0y/spy-party/internal/shared/paths"
	"github.com/ichi0g0y/spy-party/internal/transport"
	"github.com/ichi0g0y/spy-party/internal/version"
	"github.com/ichi0g0y/spy-party/internal/webserver"
	"go.uber.org/zap"
)

const (
	defaultTokenMaxAge = 30 * 24 * time.Hour
	shutdownTimeout    = 5 * time.Second
)

func main() {
	logger.Init(false)
	defer logger.Sync()

	logger.Info("Starting spy-party server", zap.String("version", version.String()))

	if err := paths.EnsureDataDirs(); err != nil {
		logger.Fatal("Failed to ensure data directories", zap.Error(err))
	}

	db, err := localdb.SetupDB(paths.GetDBPath())
	if err != nil {
		logger.Fatal("Failed to setup database", zap.Error(err))
	}

	manager := settings.NewSettingsManager(db)
	if err := manager.MigrateFromEnv(); err != nil {
		logger.Warn("Failed to migrate settings from environment", zap.Error(err))
	}

	// env.LoadEnv must run after DB initialization.
	env.LoadEnv()
	if env.Value.DebugMode {
		logger.Init(true)
		logger.Info("Debug mode enabled")
	}

	if status, err := manager.CheckFeatureStatus(); err == nil {
		for _, w := range status.Warnings {
			logger.Warn(w)
		}
		if len(status.MissingSettings) > 0 {
			logger.Info("Settings not configured", zap.Strings("keys", status.MissingSettings))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mux := transport.NewMux(nil)
	dir := directory.New()

	engine := game.New(gameConfig(), clock.New(), mux, dir, game.FileSnapshot{Path: paths.GetSnapshotPath()})
	engine.OnMaintenanceChange = func(on bool) {
		if err := manager.SetSetting("MAINTENANCE_MODE", fmt.Sprintf("%t", on)); err != nil {
			logger.Warn("Failed to persist maintenance mode", zap.Error(err))
		}
	}
	engine.Startup()
	if env.Value.MaintenanceMode {
		engine.SetMaintenance(true)
	}

	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		engine.Run(ctx)
	}()

	r := router.New(engine, dir)

	var hub *webserver.WSHub
	hub = webserver.NewWSHub(r.Dispatch, func(userID int64) { mux.Bind(userID, hub) })
	go hub.Run(ctx)

	secret := ""
	if env.Value.WSJWTSecret != nil {
		secret = *env.Value.WSJWTSecret
	}
	if secret == "" {
		logger.Warn("WS_JWT_SECRET is empty, websocket clients cannot authenticate")
	}
	tokens := webserver.NewTokenManager(secret, defaultTokenMaxAge)

	server := webserver.NewServer(engine, hub, tokens, env.Value.DebugMode)
	if err := server.Start(env.Value.ServerPort); err != nil {
		logger.Fatal("Failed to start web server", zap.Error(err))
	}

	twitch := startTwitch(ctx, mux, r.Dispatch)

	logger.Info("Server started",
		zap.Int("port", env.Value.ServerPort),
		zap.String("websocket", fmt.Sprintf("ws://localhost:%d/ws", env.Value.ServerPort)))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()

	twitch.stop()
	server.Shutdown(shutdownCtx)
	cancel()

	select {
	case <-engineDone:
	case <-shutdownCtx.Done():
		logger.Warn("Engine did not stop in time")
	}

	logger.Info("Shutdown complete")
}

func gameConfig() game.Config {
	cfg := game.DefaultConfig()
	cfg.RoundDuration = time.Duration(env.Value.RoundSeconds) * time.Second
	cfg.TestRoundDuration = time.Duration(env.Value.TestRoundSeconds) * time.Second
	cfg.QueueTimeout = time.Duration(env.Value.QueueTimeoutSeconds) * time.Second
	cfg.RoomExpiry = time.Duration(env.Value.RoomExpiryMinutes) * time.Minute
	cfg.SaveInterval = time.Duration(env.Value.SaveIntervalSeconds) * time.Second
	cfg.AdminIDs = env.Value.AdminIDs
	return cfg
}
