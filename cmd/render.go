package main

import (
	"fmt"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/countymap/internal/config"
	"github.com/sells-group/countymap/internal/pipeline"
)

var (
	renderState   string
	renderMethod  string
	renderClasses int
	renderOut     string
	renderFormat  string
	renderMaps    []string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the configured choropleth maps",
	Long: `Loads county boundaries and the GDP and population tables, keeps the lower 48
states (or the --state given), joins the tables onto counties, dissolves states,
reprojects into the target CRS and writes one image plus a YAML sidecar per map.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := applyRenderFlags(cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		log := zap.L().With(zap.String("command", "render"))
		log.Info("starting render",
			zap.String("out_dir", cfg.Render.OutDir),
			zap.Int("maps", len(cfg.Maps)),
			zap.Int("target_srid", cfg.Projection.TargetSRID),
		)

		res, err := pipeline.Run(ctx, cfg)
		if err != nil {
			return eris.Wrap(err, "render")
		}

		printRenderResult(res)
		return nil
	},
}

// applyRenderFlags layers command-line overrides onto the loaded config.
func applyRenderFlags(c *config.Config) error {
	if renderState != "" {
		c.Regions.State = renderState
	}
	if renderOut != "" {
		c.Render.OutDir = renderOut
	}
	if renderFormat != "" {
		c.Render.Format = strings.ToLower(renderFormat)
	}
	if len(renderMaps) > 0 {
		want := make(map[string]bool, len(renderMaps))
		for _, m := range renderMaps {
			want[m] = true
		}
		var kept []config.MapConfig
		for _, m := range c.Maps {
			if want[m.Name] {
				kept = append(kept, m)
				delete(want, m.Name)
			}
		}
		if len(want) > 0 {
			missing := make([]string, 0, len(want))
			for name := range want {
				missing = append(missing, name)
			}
			sort.Strings(missing)
			return eris.Errorf("render: no map named %s in config", strings.Join(missing, ", "))
		}
		c.Maps = kept
	}
	for i := range c.Maps {
		if renderMethod != "" {
			c.Maps[i].Method = renderMethod
		}
		if renderClasses > 0 {
			c.Maps[i].Classes = renderClasses
		}
	}
	return nil
}

func printRenderResult(res *pipeline.Result) {
	fmt.Printf("Counties: %d read, %d kept in %d regions\n", res.CountiesRead, res.CountiesKept, res.Regions)
	for _, s := range res.Stats {
		fmt.Printf("  %-12s matched=%d unmatched=%d suppressed=%d unused=%d\n",
			s.Table, s.Matched, s.Unmatched, s.Suppressed, s.Unused)
	}
	fmt.Println()
	fmt.Printf("%-14s %-8s %s\n", "Map", "Classes", "Image")
	fmt.Println(strings.Repeat("-", 60))
	for _, o := range res.Outputs {
		fmt.Printf("%-14s %-8d %s\n", o.Name, o.Classes, o.Image)
	}
	fmt.Printf("\nDone in %s\n", res.Duration.Round(time.Millisecond))
}

func init() {
	renderCmd.Flags().StringVar(&renderState, "state", "", "render a single state (abbreviation or FIPS code)")
	renderCmd.Flags().StringVar(&renderMethod, "method", "", "classification method for every map: jenks, quantile or equal")
	renderCmd.Flags().IntVar(&renderClasses, "classes", 0, "number of classes for every map (default: from config)")
	renderCmd.Flags().StringVar(&renderOut, "out", "", "output directory (default: from config)")
	renderCmd.Flags().StringVar(&renderFormat, "format", "", "image format: png, svg or pdf (default: from config)")
	renderCmd.Flags().StringSliceVar(&renderMaps, "maps", nil, "comma-separated map names to render (default: all)")
	rootCmd.AddCommand(renderCmd)
}
