package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avlasov/newsgate/app/api"
	"github.com/avlasov/newsgate/app/bot"
	"github.com/avlasov/newsgate/app/cfg"
	"github.com/avlasov/newsgate/app/content"
	"github.com/avlasov/newsgate/app/database"
	"github.com/avlasov/newsgate/app/llm"
	"github.com/avlasov/newsgate/app/notify"
	"github.com/avlasov/newsgate/app/pipeline"
	"github.com/avlasov/newsgate/app/source"
	"github.com/avlasov/newsgate/app/storagesvc"
	"github.com/avlasov/newsgate/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	setupLogger(appCfg.Debug)
	slog.Info("Starting NewsGate server", "version", appCfg.Version)

	db, err := database.NewConnection(
		appCfg.DBHost, appCfg.DBPort, appCfg.DBUser,
		appCfg.DBPassword, appCfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("Connected to database")

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migrations applied", "version", version, "dirty", dirty)

	profileCache := bot.NewProfileCache(appCfg.BotsDir)
	if err := profileCache.Run(); err != nil {
		slog.Error("Failed to load bot profiles", "error", err)
		os.Exit(1)
	}
	slog.Info("Bot profiles loaded", "count", profileCache.GetProfileCount())

	botRepo := database.NewBotRepository(db)
	articleRepo := database.NewArticleRepository(db)

	httpClient := &http.Client{Timeout: 60 * time.Second}
	llmClient := llm.NewClient(appCfg.OpenAIEndpoint, appCfg.OpenAIKey,
		appCfg.ChatModel, appCfg.EmbeddingModel, appCfg.ImageModel)

	var notifier pipeline.Notifier
	if appCfg.TelegramToken != "" && appCfg.TelegramChatID != "" {
		notifier = notify.NewTelegramNotifier(appCfg.TelegramToken, appCfg.TelegramChatID)
	} else {
		slog.Warn("Telegram notifications disabled (token or chat ID not set)")
	}

	pipe := pipeline.New(pipeline.Deps{
		Source:      source.NewReader(httpClient, appCfg.UserAgent),
		Resolver:    content.NewResolver(30*time.Second, appCfg.UserAgent),
		Extractor:   content.NewExtractor(30*time.Second, appCfg.UserAgent),
		Scorer:      llmClient,
		Analyzer:    llmClient,
		ImageGen:    llmClient,
		Uploader:    storagesvc.NewUploader(appCfg.StorageEndpoint, appCfg.StorageKey, appCfg.StorageBucket),
		Notifier:    notifier,
		Store:       articleRepo,
		WorkerCount: appCfg.WorkerCount,
	})

	scheduler := tasks.NewScheduler(profileCache, botRepo, pipe)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Background scheduler started", "interval_seconds", appCfg.SchedulerInterval)

	apiHandler := api.NewHandler(profileCache, botRepo, articleRepo, scheduler)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
