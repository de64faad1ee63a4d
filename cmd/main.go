package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"doclink/infrastructure/httpapi"
	"doclink/infrastructure/ws"
	"doclink/moderation"
	"doclink/repositories"
	"doclink/runtime"
	"doclink/runtime/workers"
	"doclink/search"
	"doclink/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting. Returning the error (instead of os.Exit or
// panic) guarantees the defers run, so the stores close cleanly on every
// exit path.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Stores (BadgerDB + Bluge)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	index, err := search.Open(config.BlugeFilepath, log)
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = index.Close()
	}()

	// 3. Repositories
	messageRepository := repositories.NewMessageRepository(db, log, config.LimitMessages)
	connectionRepository := repositories.NewConnectionRepository(db)
	userRepository := repositories.NewUserRepository(db)

	// 4. Moderation (config gated)
	var moderator *moderation.Moderator
	if config.EnableModeration {
		maskChar, err := characterRune(config.ModerationCharReplacement)
		if err != nil {
			return err
		}
		data, err := moderation.LoadCensoredWords()
		if err != nil {
			return fmt.Errorf("censored words loading failed: %w", err)
		}
		m, err := moderation.NewModerator(data.Words, maskChar)
		if err != nil {
			return fmt.Errorf("moderator building failed: %w", err)
		}
		moderator = &m
		log.Info("Moderation enabled", "words", len(data.Words), "languages", data.Languages)
	}

	// 5. Runtime core
	registry := runtime.NewRegistry()
	dispatcher := runtime.NewDispatcher(log, registry, messageRepository,
		connectionRepository, moderator, config.MaxContentLength)
	dispatcher.Add(search.NewIndexSink(index))

	// 6. Services
	chatService := services.NewChatService(log, registry, dispatcher)
	authService := services.NewAuthService(userRepository, config.AuthTokenDuration)
	conversationService := services.NewConversationService(messageRepository, connectionRepository)

	// 7. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 8. Supervised background workers
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		workers.NewBadgerGCWorker(db, log, config.GCInterval),
		workers.NewSelfStatsWorker(log, config.StatsInterval),
	)
	go sup.Run(ctx)

	// 9. HTTP & WebSocket surface
	app := fiber.New(fiber.Config{
		AppName:               config.AppName,
		DisableStartupMessage: true,
	})

	handlers := httpapi.NewHandlers(log, authService, chatService,
		conversationService, connectionRepository, index)
	httpapi.RegisterRoutes(app, handlers)

	wsHandler := ws.NewHandler(log, chatService, ws.Config{
		BufferSize:     config.ConnectionBufferSize,
		MaxMessageSize: config.MaxMessageSize,
		WriteWait:      config.WriteWait,
		PongWait:       config.PongWait,
		PingPeriod:     config.PingPeriod,
	})
	app.Use("/ws", wsHandler.Upgrade())
	app.Get("/ws", wsHandler.Serve())

	// Use an error channel to capture Listen() issues
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting server", "address", address, "at", time.Now().UTC())
		if err := app.Listen(address); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// 10. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 11. Final Cleanup
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Warn("Server shutdown incomplete", "error", err)
	}
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
