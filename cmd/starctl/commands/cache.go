// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/tomtom215/starfield/internal/cache"
)

func (c *CLI) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the durable result cache",
	}
	cmd.PersistentFlags().String("path", "", "BadgerDB cache directory (default: CACHE_DB_PATH)")

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show cache entry counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withCache(cmd, func(rc *cache.Cache) error {
				return printJSON(cmd, rc.Stats(cmd.Context()))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Remove expired cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withCache(cmd, func(rc *cache.Cache) error {
				result := rc.Sweep(cmd.Context())
				if err := printJSON(cmd, result); err != nil {
					return err
				}
				if result.DurableError != "" {
					return errors.New(result.DurableError)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cache entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withCache(cmd, func(rc *cache.Cache) error {
				result := rc.Clear(cmd.Context())
				if err := printJSON(cmd, result); err != nil {
					return err
				}
				if result.DurableError != "" {
					return errors.New(result.DurableError)
				}
				return nil
			})
		},
	})

	return cmd
}

// withCache opens the durable cache directory, runs fn and closes it.
func (c *CLI) withCache(cmd *cobra.Command, fn func(*cache.Cache) error) error {
	path, _ := cmd.Flags().GetString("path")
	if path == "" {
		path = c.cfg.Cache.DurablePath
	}
	if path == "" {
		return errors.New("no durable cache path configured (set --path or CACHE_DB_PATH)")
	}

	store, err := cache.OpenBadger(path)
	if err != nil {
		return err
	}

	cfg := c.cfg.Cache
	cfg.Enabled = true
	rc := cache.New(&cfg, store)

	runErr := fn(rc)
	if err := rc.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
