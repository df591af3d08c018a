package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/countymap/internal/pipeline"
	"github.com/sells-group/countymap/internal/store"
)

var (
	publishDriver string
	publishDSN    string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Write the county and region layers to a spatial database",
	Long: `Runs the load, filter, join, dissolve and reproject stages and writes the
joined county layer and the dissolved region layer to PostGIS or SQLite under a
new run id. Rows are upserted by GEOID and region code.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if publishDriver != "" {
			cfg.Store.Driver = publishDriver
		}
		if publishDSN != "" {
			cfg.Store.DatabaseURL = publishDSN
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfg.ValidateStore(); err != nil {
			return err
		}

		log := zap.L().With(zap.String("command", "publish"), zap.String("driver", cfg.Store.Driver))

		in, err := pipeline.LoadInputs(ctx, cfg)
		if err != nil {
			return eris.Wrap(err, "publish")
		}
		layers, err := pipeline.Build(ctx, cfg, in)
		if err != nil {
			return eris.Wrap(err, "publish")
		}
		counties, err := store.CountyRows(layers.GDP, layers.Population)
		if err != nil {
			return eris.Wrap(err, "publish")
		}

		st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, layers.SRID)
		if err != nil {
			return eris.Wrap(err, "publish: open store")
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "publish: migrate")
		}

		res, err := store.Publish(ctx, st, counties, store.RegionRows(layers.Regions), layers.SRID, cfg.Inputs.Path(cfg.Inputs.Counties))
		if err != nil {
			return eris.Wrap(err, "publish")
		}

		log.Info("layers published",
			zap.String("run_id", res.RunID),
			zap.Int64("counties", res.Counties),
			zap.Int64("regions", res.Regions),
		)
		fmt.Printf("Run %s: %d counties, %d regions\n", res.RunID, res.Counties, res.Regions)
		return nil
	},
}

func init() {
	publishCmd.Flags().StringVar(&publishDriver, "driver", "", "store driver: postgres or sqlite (default: from config)")
	publishCmd.Flags().StringVar(&publishDSN, "dsn", "", "database URL or SQLite path (default: from config)")
	rootCmd.AddCommand(publishCmd)
}
