package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/countymap/internal/config"
	"github.com/sells-group/countymap/internal/fetcher"
	"github.com/sells-group/countymap/internal/tiger"
)

var (
	fetchYear       int
	fetchResolution string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the county boundaries and attribute tables",
	Long: `Downloads the Census county boundary archive for the configured year and
resolution into the inputs directory and extracts it. The GDP and population
tables are downloaded too when gdp.url and population.url are set. Files that
already exist are kept.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if fetchYear != 0 {
			cfg.Fetch.Year = fetchYear
		}
		if cmd.Flags().Changed("resolution") {
			cfg.Fetch.Resolution = fetchResolution
		}

		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:   cfg.Fetch.UserAgent,
			Timeout:     time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			MaxRetries:  cfg.Fetch.MaxRetries,
			RatePerHost: cfg.Fetch.RatePerHost,
		})

		paths, err := fetchAll(ctx, f, cfg)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Println(p)
		}
		return nil
	},
}

// fetchAll downloads the boundary archive and any attribute table with a URL,
// returning the local paths.
func fetchAll(ctx context.Context, f fetcher.Fetcher, c *config.Config) ([]string, error) {
	log := zap.L().With(zap.String("command", "fetch"))

	b := c.Fetch.Boundary()
	if err := b.Validate(); err != nil {
		return nil, err
	}

	var shpPath, gdpPath, popPath string
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := tiger.Download(gctx, f, b.URL(), c.Inputs.Dir)
		if err != nil {
			return err
		}
		shpPath = p
		return nil
	})
	g.Go(func() error {
		p, err := fetchTable(gctx, f, c.GDP, c.Inputs)
		gdpPath = p
		return eris.Wrap(err, "fetch: gdp")
	})
	g.Go(func() error {
		p, err := fetchTable(gctx, f, c.Population, c.Inputs)
		popPath = p
		return eris.Wrap(err, "fetch: population")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("inputs fetched",
		zap.String("counties", shpPath),
		zap.String("gdp", gdpPath),
		zap.String("population", popPath),
	)

	paths := []string{shpPath}
	for _, p := range []string{gdpPath, popPath} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// fetchTable downloads an attribute table to its configured path. Sources
// without a URL are skipped.
func fetchTable(ctx context.Context, f fetcher.Fetcher, src config.SourceConfig, in config.InputsConfig) (string, error) {
	if src.URL == "" {
		return "", nil
	}
	dest := in.Path(src.Path)
	if _, err := f.DownloadToFile(ctx, src.URL, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func init() {
	fetchCmd.Flags().IntVar(&fetchYear, "year", 0, "boundary vintage (default: from config)")
	fetchCmd.Flags().StringVar(&fetchResolution, "resolution", "", "cartographic boundary resolution: 500k, 5m, 20m, or empty for TIGER/Line")
	rootCmd.AddCommand(fetchCmd)
}
