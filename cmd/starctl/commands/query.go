// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/starfield/internal/catalog"
	"github.com/tomtom215/starfield/internal/celestial"
	"github.com/tomtom215/starfield/internal/models"
	"github.com/tomtom215/starfield/internal/query"
	"github.com/tomtom215/starfield/internal/spatial"
)

// queryOutput is what query subcommands print.
type queryOutput struct {
	Count       int           `json:"count"`
	Source      string        `json:"source"`
	QueryTimeMs float64       `json:"query_time_ms"`
	Stars       []models.Star `json:"stars"`
}

func (c *CLI) newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the local star catalog",
		Long: "Run a query against the local catalog only. The result cache and " +
			"the upstream archive are not consulted.",
	}
	cmd.PersistentFlags().String("catalog", "", "Catalog file (default: CATALOG_PATH)")
	cmd.PersistentFlags().Int("max-stars", 1000, "Maximum stars to return")

	cmd.AddCommand(c.newQueryConeCmd())
	cmd.AddCommand(c.newQueryRegionCmd())
	cmd.AddCommand(c.newQueryBrightCmd())
	return cmd
}

func (c *CLI) newQueryConeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cone",
		Short: "Stars within a radius of a sky position",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ra, _ := cmd.Flags().GetFloat64("ra")
			dec, _ := cmd.Flags().GetFloat64("dec")
			radius, _ := cmd.Flags().GetFloat64("radius")
			faint, _ := cmd.Flags().GetFloat64("faint-limit")
			maxStars, _ := cmd.Flags().GetInt("max-stars")

			return c.runQuery(cmd, models.Cone{
				RA:         ra,
				Dec:        dec,
				Radius:     radius,
				FaintLimit: faint,
				MaxCount:   maxStars,
			})
		},
	}
	cmd.Flags().Float64("ra", 0, "Right ascension in degrees")
	cmd.Flags().Float64("dec", 0, "Declination in degrees")
	cmd.Flags().Float64("radius", 1, "Cone radius in degrees")
	cmd.Flags().Float64("faint-limit", c.cfg.Query.DefaultFaintLimit, "Faintest magnitude to include")
	_ = cmd.MarkFlagRequired("ra")
	_ = cmd.MarkFlagRequired("dec")
	return cmd
}

func (c *CLI) newQueryRegionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "region",
		Short: "Stars within a distance of a point in parsecs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			x, _ := cmd.Flags().GetFloat64("x")
			y, _ := cmd.Flags().GetFloat64("y")
			z, _ := cmd.Flags().GetFloat64("z")
			maxDistance, _ := cmd.Flags().GetFloat64("max-distance")
			bright, _ := cmd.Flags().GetFloat64("bright-limit")
			maxStars, _ := cmd.Flags().GetInt("max-stars")

			return c.runQuery(cmd, models.Region{
				Origin:      celestial.Vector3{X: x, Y: y, Z: z},
				MaxDistance: maxDistance,
				BrightLimit: bright,
				MaxCount:    maxStars,
			})
		},
	}
	cmd.Flags().Float64("x", 0, "Origin X in parsecs")
	cmd.Flags().Float64("y", 0, "Origin Y in parsecs")
	cmd.Flags().Float64("z", 0, "Origin Z in parsecs")
	cmd.Flags().Float64("max-distance", 100, "Search radius in parsecs")
	cmd.Flags().Float64("bright-limit", c.cfg.Query.DefaultFaintLimit, "Faintest magnitude to include")
	return cmd
}

func (c *CLI) newQueryBrightCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bright",
		Short: "Stars brighter than a magnitude",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			magLimit, _ := cmd.Flags().GetFloat64("mag-limit")
			maxStars, _ := cmd.Flags().GetInt("max-stars")
			return c.runQuery(cmd, models.Bright{MagLimit: magLimit, MaxCount: maxStars})
		},
	}
	cmd.Flags().Float64("mag-limit", 7, "Faintest magnitude to include")
	return cmd
}

// runQuery opens the catalog, answers q locally and prints the result.
func (c *CLI) runQuery(cmd *cobra.Command, q models.Query) error {
	catalogCfg := c.cfg.Catalog
	if path, _ := cmd.Flags().GetString("catalog"); path != "" {
		catalogCfg.Path = path
	}

	db, err := catalog.New(&catalogCfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if !db.Available() {
		return fmt.Errorf("%w: %s", catalog.ErrCatalogUnavailable, catalogCfg.Path)
	}

	svc := query.NewService(spatial.NewEngine(db), nil, nil, catalogCfg.LocalMagLimit)
	result, err := svc.Execute(cmd.Context(), q)
	if err != nil {
		return err
	}

	return printJSON(cmd, queryOutput{
		Count:       result.Count,
		Source:      result.Source,
		QueryTimeMs: result.QueryTimeMs(),
		Stars:       result.Stars,
	})
}
