// Package main is the entry point for the farmer assistance server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agrimitra/config"
	"agrimitra/internal/app"
	"agrimitra/internal/logging"
	"agrimitra/internal/version"
)

func main() {
	versionFlag := flag.Bool("version", false, "Print version information")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		// Logging is not configured yet.
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		slog.Error("invalid log level", "error", err)
		os.Exit(1)
	}
	handler, err := logging.New(cfg.Logging.Format, level, os.Stdout)
	if err != nil {
		slog.Error("invalid log format", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("starting agrimitra",
		"version", version.Version,
		"commit", version.Commit,
		"build_date", version.Date,
	)

	application, err := app.New(cfg, app.Options{})
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := application.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := application.Start(":" + cfg.Server.Port); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
