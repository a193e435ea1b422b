/*
Package main is the entry point for the chat synchronization server.

It is responsible for loading configuration, initializing the global logging system and tracing,
opening the message store and optional attachment storage, starting the chat Hub,
setting up the HTTP server, and gracefully handling operating system interrupt signals
(SIGINT, SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"chatsync/internal/app/chat"
	"chatsync/internal/app/storage"
	"chatsync/internal/app/store"
	"chatsync/internal/configs"
	"chatsync/internal/handler"
	"chatsync/internal/pkg/auth/jwt"
	"chatsync/internal/pkg/logx"
	"chatsync/internal/pkg/otelx"
)

const serviceName = "chatsync"

func main() {
	// A missing .env file is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "WARN: Failed to read .env file: %v\n", err)
	}

	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(logx.Options{Development: cfg.IsDevelopment()})
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("store_driver", cfg.StoreDriver).
		Bool("s3_enabled", cfg.S3Enabled()).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otelx.Setup(ctx, serviceName, cfg.OtelEndpoint, cfg.OtelEnabled)
	if err != nil {
		logx.Fatal(err, "Failed to set up tracing")
	}

	retryPolicy := store.RetryPolicy{
		Attempts: cfg.StoreRetryAttempts,
		Base:     cfg.StoreRetryBase,
		Timeout:  cfg.StoreTimeout,
	}

	messages, err := store.Open(ctx, store.Options{
		Driver:      cfg.StoreDriver,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseDSN,
		Retry:       retryPolicy,
	})
	if err != nil {
		logx.Fatal(err, "Failed to open message store", "driver", cfg.StoreDriver)
	}

	var blobs storage.BlobStore
	if cfg.S3Enabled() {
		blobs, err = storage.NewBlobStore(ctx, storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3Region:          cfg.S3Region,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize attachment storage")
		}
	}

	// Initialize the chat hub
	hub := chat.NewHub(chat.Options{
		Store:         messages,
		Blobs:         blobs,
		Tokens:        jwt.NewIssuer(cfg.JWTSecret, cfg.TokenTTL),
		TypingTTL:     cfg.TypingTTL,
		MaxTextBytes:  cfg.MaxTextBytes,
		MaxFileBytes:  cfg.MaxFileBytes,
		OpTimeout:     retryPolicy.Budget(),
		UploadTimeout: cfg.UploadTimeout,
	})
	go hub.Run()

	// Setup HTTP server and routes; the rate limiters stop with the signal context.
	router := handler.Router(ctx, &handler.AppDeps{
		Hub:    hub,
		Config: cfg,
		Store:  messages,
		Blobs:  blobs,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Chat server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	// Hijacked websocket connections are not tracked by the server; the hub closes them.
	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	if err := hub.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Hub did not stop cleanly")
	}

	if err := messages.Close(); err != nil {
		logx.Error(err, "Failed to close message store")
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		logx.Error(err, "Failed to flush traces")
	}

	logx.Info("Server gracefully stopped.")
}
