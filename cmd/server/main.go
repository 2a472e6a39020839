package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/DaddyAndYungeenCoders/jamify-websocket/internal/adapters/http"
	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/adapters/ws"
	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/app"
	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/config"
	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/domain"
	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/queue"
	"github.com/DaddyAndYungeenCoders/jamify-websocket/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	processID := domain.ProcessID(uuid.NewString())
	log.Info().Str("process_id", string(processID)).Msg("starting relay server")

	storeCtx, storeCancel := context.WithTimeout(ctx, cfg.CallTimeout)
	rdb, err := store.NewClient(storeCtx, store.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	storeCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	// Explicit wiring, leaves first. No service locator.
	registry := app.NewConnectionRegistry(rdb)
	directory := app.NewRoomDirectory(rdb)
	hub := ws.NewHub()
	relay := app.NewMessageRelay(registry, directory, hub, processID)

	bridge := queue.NewBridge(cfg.AmqpURL, cfg.CallTimeout)
	envRouter := queue.NewEnvelopeRouter(relay)
	if err := bridge.RegisterHandler(ctx, cfg.ChatQueue, envRouter.HandleChatMessage); err != nil {
		log.Fatal().Err(err).Msg("failed to register chat handler")
	}
	if err := bridge.RegisterHandler(ctx, cfg.NotificationQueue, envRouter.HandleNotification); err != nil {
		log.Fatal().Err(err).Msg("failed to register notification handler")
	}
	if err := bridge.Connect(ctx, cfg.ConnectAttempts, cfg.ConnectBackoff); err != nil {
		log.Fatal().Err(err).Msg("broker connection failed")
	}
	defer bridge.Close()

	wsCtl := ws.NewController(hub, relay, cfg.ReadLimit, cfg.CallTimeout)
	handlers := &router.RoomHandlers{
		Directory:   directory,
		Relay:       relay,
		CallTimeout: cfg.CallTimeout,
	}
	r := router.SetupRouter(ctx, cfg, handlers, wsCtl)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("relay server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited gracefully")
}
