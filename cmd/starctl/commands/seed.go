// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/starfield/internal/catalog"
)

func (c *CLI) newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write a synthetic star catalog file",
		Long: "Write a DuckDB catalog of synthetic stars. The same seed always " +
			"produces the same catalog.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, _ := cmd.Flags().GetString("out")
			count, _ := cmd.Flags().GetInt("count")
			seed, _ := cmd.Flags().GetUint64("seed")

			if out == "" {
				return errors.New("--out is required")
			}
			if count < 1 {
				return fmt.Errorf("--count must be positive, got %d", count)
			}

			if err := catalog.WriteSample(cmd.Context(), out, count, seed); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d stars to %s\n", count, out)
			return nil
		},
	}

	cmd.Flags().StringP("out", "o", "", "Catalog file to create")
	cmd.Flags().IntP("count", "n", c.cfg.Catalog.SeedCount, "Number of stars")
	cmd.Flags().Uint64("seed", 42, "Random seed")

	return cmd
}
