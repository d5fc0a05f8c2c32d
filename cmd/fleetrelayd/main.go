// Copyright (c) 2025 fleetrelay contributors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	xglog "github.com/fleetrelay/fleetrelay/internal/log"
	"github.com/fleetrelay/fleetrelay/internal/version"
)

func main() {
	// "report" is a one-shot read of the report mirror against a running
	// (or previously-run) data directory; it never touches the coordinator
	// or audit log, so it's dispatched before flag.Parse like the teacher's
	// "config" subcommand in cmd/daemon/main.go.
	if len(os.Args) > 1 && os.Args[1] == "report" {
		os.Exit(runReportCLI(os.Args[2:]))
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("fleetrelayd %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	xglog.Configure(xglog.Config{Level: "info", Service: "fleetrelayd", Version: version.Version})
	logger := xglog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Service: "fleetrelayd", Version: cfg.Version})
	logger = xglog.WithComponent("main")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("data_dir", cfg.DataDir).Msg("failed to create data directory")
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("listen_addr", cfg.ListenAddr).
		Str("data_dir", cfg.DataDir).
		Msg("starting fleetrelayd")

	deps, err := wireApp(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to wire application")
	}
	defer deps.Close()

	app := NewApp(logger, cfg, deps)
	if err := app.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("fleetrelayd exited with error")
	}

	logger.Info().Msg("fleetrelayd exited cleanly")
}

func reportDBPath(dataDir string) string {
	return filepath.Join(dataDir, "report.db")
}
