package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fragmede/instalight/internal/api"
	"github.com/fragmede/instalight/internal/app"
	"github.com/fragmede/instalight/internal/auth"
	"github.com/fragmede/instalight/internal/cache"
	"github.com/fragmede/instalight/internal/config"
	"github.com/fragmede/instalight/internal/monitor"
	"github.com/fragmede/instalight/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		log.Fatalf("creating cache dir: %v", err)
	}

	// The TUI owns the terminal; logs go to a file.
	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
		log.Fatalf("creating log dir: %v", err)
	}
	logFile, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		log.Fatalf("opening log: %v", err)
	}
	defer logFile.Close()
	log.SetOutput(logFile)
	log.Printf("[INFO] starting, api=%s", cfg.APIBaseURL)

	db, err := cache.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("opening cache: %v", err)
	}
	defer db.Close()

	client := api.NewClient(cfg.APIBaseURL, api.NewHTTPClient(cfg.RequestTimeout))
	svc := app.NewService(client, db, app.Options{UserTTL: cfg.UserTTL, PostTTL: cfg.PostTTL})

	session := auth.NewSession(cfg.SessionPath)
	if session.Load() {
		log.Printf("[INFO] restored session for %s", session.Credential().Username)
	}

	mon := monitor.New(svc, db, session, cfg.WatchInterval, cfg.FeedPageSize)
	root := ui.NewApp(cfg, svc, session, mon)
	defer root.Close()

	p := tea.NewProgram(root, tea.WithAltScreen(), tea.WithMouseCellMotion())
	root.SetProgram(p)
	if _, err := p.Run(); err != nil {
		log.Printf("[ERROR] %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
