package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/waypane/waypane/internal/app"
	"github.com/waypane/waypane/internal/config"
	"github.com/waypane/waypane/internal/paint"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.config/waypane/config.yaml)")
	logLevel := flag.String("log-level", "", "override log level (debug, info, warn, error)")
	pattern := flag.String("pattern", "", "override content pattern (gradient, checker)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *pattern != "" {
		cfg.Pattern = *pattern
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := newLogger(cfg.LogLevel)

	producer, err := paint.New(cfg.Pattern)
	if err != nil {
		log.Fatalf("Failed to set up content producer: %v", err)
	}

	a := app.New(cfg, producer, logger)
	if err := a.Connect(); err != nil {
		log.Fatalf("Failed to connect to compositor: %v", err)
	}
	defer a.Close()

	if err := a.Negotiate(); err != nil {
		a.Close()
		log.Fatalf("Failed to negotiate capabilities: %v", err)
	}
	a.CreateWindow()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("waypane started", "title", cfg.Title, "fps", cfg.TargetFPS)
	if err := a.Run(ctx); err != nil {
		logger.Error("presentation loop failed", "error", err)
		// os.Exit skips the deferred Close; tear down here so the
		// destruction requests still reach the compositor.
		a.Close()
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// newLogger builds the process logger: human-readable text on a
// terminal, JSON when stderr is redirected.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
