package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/clouddeck/stackd/internal/api"
	"github.com/clouddeck/stackd/internal/config"
	"github.com/clouddeck/stackd/internal/events"
	"github.com/clouddeck/stackd/internal/history"
	"github.com/clouddeck/stackd/internal/log"
	"github.com/clouddeck/stackd/internal/stack"
	"github.com/clouddeck/stackd/internal/supervisor"
	"github.com/clouddeck/stackd/internal/tui/watch"
)

const defaultConfigPath = "/etc/stackd/stackd.yaml"

func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("STACKD_CONFIG"); env != "" {
		return env
	}
	return defaultConfigPath
}

func runServe(args []string) int {
	fs := newFlagSet("serve")
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	cfg, err := config.Load(resolveConfigPath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("stackd starting", "version", version, "container_dir", cfg.Workspaces.ContainerDir)

	if !cfg.API.Enabled {
		logger.Error("api.enabled is false; serve has nothing to do")
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sup := supervisor.New()
	hub := events.NewHub(256)

	opts := []stack.Option{
		stack.WithBinary(cfg.Workspaces.Binary),
		stack.WithSupervisor(sup),
		stack.WithHub(hub),
	}

	if cfg.History.Path != "" {
		store, err := history.Open(ctx, cfg.History.Path)
		if err != nil {
			logger.Error("failed to open history store", "path", cfg.History.Path, "error", err)
			return 1
		}
		defer store.Close()
		logger.Info("history store opened", "path", cfg.History.Path)
		opts = append(opts, stack.WithHistory(store))
	}

	mgr, err := stack.NewManager(cfg.Workspaces.ContainerDir, opts...)
	if err != nil {
		logger.Error("failed to initialize workspace manager", "container_dir", cfg.Workspaces.ContainerDir, "error", err)
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)

	apiServer := api.New(api.Config{
		Listen: cfg.API.Listen,
		APIKey: cfg.API.APIKey,
	}, mgr, hub, log.WithComponent("api"))
	go func() {
		if err := apiServer.Start(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("api: %w", err)
		}
	}()
	logger.Info("API server enabled", "listen", cfg.API.Listen)

	logger.Info("stackd running (press Ctrl+C to stop)")

	code := 0
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		cancel()
		code = 1
	}

	// Wait for in-flight provisioning runs before exiting so completion
	// callbacks get to persist terminal states.
	if n := sup.Len(); n > 0 {
		logger.Info("draining in-flight operations", "count", n)
	}
	sup.Shutdown()

	logger.Info("stackd stopped")
	return code
}

func runWatch(args []string) int {
	fs := newFlagSet("watch")
	apiURL := fs.String("api-url", "http://localhost:8787", "Daemon API URL")
	apiKey := fs.String("api-key", os.Getenv("STACKD_API_KEY"), "API Bearer Token")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	if *apiKey == "" {
		fmt.Fprintln(os.Stderr, "Error: API key required. Use --api-key or STACKD_API_KEY env var.")
		return 1
	}

	m := watch.New(*apiURL, *apiKey)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return 1
	}
	return 0
}
