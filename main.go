package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"

	"openchat/internal/config"
)

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	logger := zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(logger, &zeroslog.HandlerOptions{Level: slog.LevelInfo}),
	))
}

func main() {
	_ = godotenv.Load()

	loader, err := config.NewLoader()
	if err != nil {
		slog.Error("config loader failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	cfg, err := loader.Load()
	if err != nil {
		slog.Error("config load failed",
			slog.String("path", loader.FilePath()),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("startup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		slog.Error("run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
