package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lysyi3m/rss-reader/app/cfg"
	"github.com/lysyi3m/rss-reader/app/feed"
	"github.com/lysyi3m/rss-reader/app/reader"
	"github.com/lysyi3m/rss-reader/app/render"
	"github.com/lysyi3m/rss-reader/app/tui"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	// The terminal belongs to the UI; logs go to a file in debug mode only.
	var logOutput io.Writer = io.Discard
	if appCfg.Debug {
		f, err := tea.LogToFile("rss-reader-debug.log", "")
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to open debug log:", err)
			os.Exit(1)
		}
		defer f.Close()
		logOutput = f
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: slog.LevelDebug})))

	catalog, err := render.NewCatalog(appCfg.Language)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load messages:", err)
		os.Exit(1)
	}
	if appCfg.MessagesFile != "" {
		if err := catalog.LoadFile(appCfg.MessagesFile); err != nil {
			fmt.Fprintln(os.Stderr, "failed to load messages file:", err)
			os.Exit(1)
		}
	}
	lang := catalog.Negotiate(appCfg.Language)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := feed.NewFetcher(&http.Client{}, appCfg.UserAgent, appCfg.ProxyPrefix, appCfg.GetFetchTimeout())

	// Fetches run as tea commands, so the controller gets no runner.
	controller := reader.NewController(reader.NewStore(), feed.NewParser(), nil)
	model := tui.NewModel(ctx, controller, fetcher, catalog, lang)

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
