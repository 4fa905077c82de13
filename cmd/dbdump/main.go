// Package main печатает содержимое таблиц хранилища для отладки.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/photobot/store/internal/config"
	"github.com/photobot/store/internal/diagnostics"
	"github.com/photobot/store/internal/lib/sl"
	"github.com/photobot/store/internal/storage/postgresql"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgresql.New(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to storage", sl.Err(err))
		os.Exit(1)
	}
	defer db.Close()

	if err := diagnostics.Dump(ctx, db, os.Stdout); err != nil {
		logger.Error("failed to dump tables", sl.Err(err))
		db.Close()
		os.Exit(1)
	}
}
