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
	"time"

	"github.com/lysyi3m/paper-comb/app/api"
	"github.com/lysyi3m/paper-comb/app/cfg"
	"github.com/lysyi3m/paper-comb/app/database"
	"github.com/lysyi3m/paper-comb/app/documents"
	"github.com/lysyi3m/paper-comb/app/feed"
	"github.com/lysyi3m/paper-comb/app/fetcher"
	"github.com/lysyi3m/paper-comb/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	setupLogger(appCfg.Debug)
	api.SetMode(appCfg)

	slog.Info("Starting Paper Comb server", "version", appCfg.Version)

	configCache := feed.NewConfigCache(appCfg.FeedsDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load feed configurations", "dir", appCfg.FeedsDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Feed configurations loaded", "count", configCache.GetConfigCount(), "enabled", len(configCache.GetEnabledConfigs()))

	templateStore := feed.NewTemplateStore(appCfg.TemplatesDir)
	slog.Info("Templates available", "templates", templateStore.Names())

	pipeline := feed.NewPipeline(feed.NewParser(), feed.NewRenderer(templateStore))

	feedFetcher := fetcher.NewFetcher(&http.Client{}, fetcher.Options{
		UserAgent:       appCfg.UserAgent,
		RequestInterval: appCfg.GetRequestInterval(),
		MaxRetries:      appCfg.MaxRetries,
		MaxBodyBytes:    appCfg.MaxBodyBytes,
	})

	var docRepo database.DocumentRepository
	if appCfg.DBPath != "" {
		db, err := database.NewConnection(appCfg.DBPath)
		if err != nil {
			slog.Error("Failed to connect to database", "path", appCfg.DBPath, "error", err)
			os.Exit(1)
		}
		defer db.Close()

		version, dirty, err := database.RunMigrations(db)
		if err != nil {
			slog.Error("Failed to run database migrations", "error", err)
			os.Exit(1)
		}
		slog.Info("Document cache ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

		docRepo = database.NewDocumentRepository(db)
	} else {
		slog.Info("Document cache disabled (DB_PATH not set)")
	}

	service := documents.NewService(pipeline, feedFetcher, docRepo)

	if docRepo != nil {
		scheduler := tasks.NewScheduler(configCache, service, docRepo, tasks.SchedulerOptions{
			Interval:    appCfg.GetSchedulerInterval(),
			WorkerCount: appCfg.WorkerCount,
			CacheTTL:    appCfg.GetCacheTTL(),
		})
		scheduler.Start()
		defer scheduler.Stop()
		slog.Info("Background scheduler started", "workers", appCfg.WorkerCount, "interval", appCfg.GetSchedulerInterval().String())
	}

	handler := api.NewHandler(service, templateStore, configCache, docRepo, appCfg.MaxBodyBytes)
	server := api.NewServer(handler, appCfg.APIAccessKey, appCfg.Version)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port, "api_enabled", appCfg.APIAccessKey != "")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}
