// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

// Package main is the entry point for starctl, the Starfield operator CLI.
//
// starctl works directly on the files the server uses: it inspects and
// maintains the durable result cache, runs queries against the local
// catalog, and writes synthetic catalogs for development.
//
//	starctl seed --out /data/stars.duckdb --count 50000
//	starctl query cone --ra 266.4 --dec -29 --radius 2
//	starctl cache stats --path /data/cache
//
// The server must be stopped before touching its cache directory; BadgerDB
// holds an exclusive lock on it.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/starfield/cmd/starctl/commands"
	"github.com/tomtom215/starfield/internal/config"
	"github.com/tomtom215/starfield/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return 1
	}

	// Diagnostics go to stderr so stdout stays machine-readable.
	logging.Init(logging.Config{
		Level:  "warn",
		Format: "console",
		Output: os.Stderr,
	})

	cli := commands.New(cfg, version)
	if err := cli.Execute(ctx); err != nil {
		logging.Error().Err(err).Msg("Command failed")
		return 1
	}
	return 0
}
