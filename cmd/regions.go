package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/countymap/internal/pipeline"
	"github.com/sells-group/countymap/internal/proj"
	"github.com/sells-group/countymap/internal/store"
)

var regionsState string

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "List the dissolved regions with county counts and areas",
	Long: `Runs the load, filter, join and dissolve stages and prints one line per region.
Areas are measured in the CONUS Albers equal-area projection regardless of the
configured target CRS.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if regionsState != "" {
			cfg.Regions.State = regionsState
		}
		cfg.Projection.TargetSRID = proj.ConusAlbers
		if err := cfg.Validate(); err != nil {
			return err
		}

		in, err := pipeline.LoadInputs(ctx, cfg)
		if err != nil {
			return eris.Wrap(err, "regions")
		}
		layers, err := pipeline.Build(ctx, cfg, in)
		if err != nil {
			return eris.Wrap(err, "regions")
		}

		printRegions(os.Stdout, store.RegionRows(layers.Regions))
		return nil
	},
}

func printRegions(w io.Writer, rows []store.RegionRow) {
	p := message.NewPrinter(language.English)
	_, _ = p.Fprintf(w, "%-5s %-6s %9s %14s\n", "Code", "State", "Counties", "Area (km²)")
	_, _ = fmt.Fprintln(w, strings.Repeat("-", 37))

	var counties int
	var area float64
	for _, r := range rows {
		_, _ = p.Fprintf(w, "%-5s %-6s %9d %14.0f\n", r.Code, r.Abbr, r.Counties, r.AreaKM2)
		counties += r.Counties
		area += r.AreaKM2
	}
	_, _ = fmt.Fprintln(w, strings.Repeat("-", 37))
	_, _ = p.Fprintf(w, "%-12s %9d %14.0f\n", "Total", counties, area)
}

func init() {
	regionsCmd.Flags().StringVar(&regionsState, "state", "", "list a single state (abbreviation or FIPS code)")
	rootCmd.AddCommand(regionsCmd)
}
