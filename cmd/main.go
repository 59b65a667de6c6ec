/*
Package main is the entry point for the StudySync realtime service.

It is responsible for loading configuration, initializing the global logging system,
connecting to PostgreSQL and object storage, wiring the realtime runtime (hub, presence,
typing, message pipeline, notifier), setting up the HTTP server, and gracefully handling
operating system interrupt signals (SIGINT, SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studysync/internal/app/chat"
	"studysync/internal/app/crypto"
	"studysync/internal/app/db"
	"studysync/internal/app/storage"
	"studysync/internal/app/store"
	"studysync/internal/configs"
	"studysync/internal/handler"
	"studysync/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL and run migrations
	pool, err := db.NewPool(cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to connect to database")
	}
	defer pool.Close()

	// Connect to object storage
	storageService, err := storage.NewService(storage.ServiceConfig{
		S3BucketName:      cfg.S3BucketName,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		logx.Fatal(err, "Failed to initialize storage service")
	}

	// Content encryption for persisted messages
	cipher, err := crypto.NewAESCipher(cfg.MessageKey)
	if err != nil {
		logx.Fatal(err, "Failed to initialize message cipher")
	}

	// Wire the realtime runtime
	directory := store.NewUserDirectory(pool)
	gate := chat.NewAccessGate(store.NewMembershipStore(pool))
	hub := chat.NewHub()
	notifier := chat.NewNotifier(store.NewNotificationStore(pool), hub, gate)
	pipeline := chat.NewMessagePipeline(store.NewMessageLog(pool), cipher, hub, notifier, cfg.MaxMessageChars)

	runtime := &chat.Runtime{
		Hub:          hub,
		Presence:     chat.NewPresenceStore(),
		Typing:       chat.NewTypingTracker(),
		Pipeline:     pipeline,
		Notifier:     notifier,
		Gate:         gate,
		TypingTTL:    cfg.TypingTTL,
		HistoryLimit: cfg.HistoryLimit,
	}

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		Runtime:   runtime,
		Config:    cfg,
		Storage:   storageService,
		Directory: directory,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("StudySync Realtime starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	hub.Shutdown()

	logx.Info("Server gracefully stopped.")
}
