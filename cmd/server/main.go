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

	"github.com/lysyi3m/rss-reader/app/api"
	"github.com/lysyi3m/rss-reader/app/cfg"
	"github.com/lysyi3m/rss-reader/app/feed"
	"github.com/lysyi3m/rss-reader/app/render"
	"github.com/lysyi3m/rss-reader/app/session"
	"github.com/lysyi3m/rss-reader/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting RSS Reader server", "version", appCfg.Version, "timezone", appCfg.Timezone)

	catalog, err := render.NewCatalog(appCfg.Language)
	if err != nil {
		slog.Error("Failed to load messages", "error", err)
		os.Exit(1)
	}
	if appCfg.MessagesFile != "" {
		if err := catalog.LoadFile(appCfg.MessagesFile); err != nil {
			slog.Error("Failed to load messages file", "file", appCfg.MessagesFile, "error", err)
			os.Exit(1)
		}
	}
	slog.Info("Messages loaded", "languages", len(catalog.Languages()), "default", appCfg.Language)

	httpClient := &http.Client{}
	fetcher := feed.NewFetcher(httpClient, appCfg.UserAgent, appCfg.ProxyPrefix, appCfg.GetFetchTimeout())

	var scheduler tasks.TaskSchedulerInterface = tasks.NewScheduler(fetcher, appCfg.WorkerCount, appCfg.QueueSize)
	scheduler.Start()
	slog.Info("Fetch workers started", "workers", appCfg.WorkerCount, "queue_size", appCfg.QueueSize)

	sessions := session.NewManager(feed.NewParser(), scheduler, appCfg.GetSessionTTL())
	sessions.Start()

	handler := api.NewHandler(sessions, catalog, appCfg.BaseUrl)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	// No WriteTimeout: event streams stay open for the life of a session.
	httpServer := &http.Server{
		Addr:              ":" + appCfg.Port,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port, "reader", fmt.Sprintf("http://localhost:%s/new", appCfg.Port))
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

	slog.Info("Shutting down server gracefully")

	// Closing sessions first ends their event streams so Shutdown does not
	// wait on them.
	sessions.Stop()
	slog.Info("Sessions closed")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	scheduler.Stop()
	slog.Info("Fetch workers stopped")

	slog.Info("RSS Reader server shutdown complete")
}
