// Package pipeline wires the county map stages: load, filter, join,
// dissolve, reproject and render.
package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/plot/vg"

	"github.com/sells-group/countymap/internal/attr"
	"github.com/sells-group/countymap/internal/classify"
	"github.com/sells-group/countymap/internal/config"
	"github.com/sells-group/countymap/internal/dissolve"
	"github.com/sells-group/countymap/internal/geoid"
	"github.com/sells-group/countymap/internal/model"
	"github.com/sells-group/countymap/internal/proj"
	"github.com/sells-group/countymap/internal/render"
	"github.com/sells-group/countymap/internal/tiger"
)

// Inputs are the raw layers read from disk.
type Inputs struct {
	Counties   []model.County
	GDP        *attr.Table
	Population *attr.Table
}

// Layers are the joined, dissolved and reprojected layers ready to render.
// GDP and Population list the same counties in the same order.
type Layers struct {
	GDP        []model.Joined
	Population []model.Joined
	Regions    []model.Region
	Stats      []attr.JoinStats
	SRID       int
}

// Attribute returns the joined rows for a map attribute.
func (l *Layers) Attribute(name string) ([]model.Joined, error) {
	switch name {
	case config.AttributeGDP:
		return l.GDP, nil
	case config.AttributePopulation:
		return l.Population, nil
	}
	return nil, eris.Errorf("pipeline: unknown attribute %q", name)
}

// Output is one rendered map.
type Output struct {
	Name    string
	Image   string
	Sidecar string
	Classes int
}

// Result summarizes a run.
type Result struct {
	CountiesRead int
	CountiesKept int
	Regions      int
	Stats        []attr.JoinStats
	Outputs      []Output
	Duration     time.Duration
}

// LoadInputs reads the county boundaries and both attribute tables
// concurrently.
func LoadInputs(ctx context.Context, cfg *config.Config) (*Inputs, error) {
	var in Inputs
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		counties, err := tiger.ReadCounties(cfg.Inputs.Path(cfg.Inputs.Counties), tiger.ReadOptions{
			IDField: cfg.Inputs.IDField,
			SRID:    cfg.Projection.SourceSRID,
		})
		if err != nil {
			return eris.Wrap(err, "pipeline: load counties")
		}
		in.Counties = counties
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		tbl, err := attr.LoadGDP(cfg.GDP.Source(cfg.Inputs))
		if err != nil {
			return eris.Wrap(err, "pipeline: load gdp")
		}
		in.GDP = tbl
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		tbl, err := attr.LoadPopulation(cfg.Population.Source(cfg.Inputs))
		if err != nil {
			return eris.Wrap(err, "pipeline: load population")
		}
		in.Population = tbl
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &in, nil
}

// FilterCounties keeps the counties whose state code is in allow.
func FilterCounties(counties []model.County, allow geoid.AllowList) []model.County {
	return geoid.Filter(counties, allow, func(c model.County) string { return c.RegionCode() })
}

// Join left-joins both attribute tables onto counties.
func Join(counties []model.County, gdp, population *attr.Table) (*Layers, error) {
	g, gStats, err := attr.LeftJoin(counties, gdp)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: join gdp")
	}
	p, pStats, err := attr.LeftJoin(counties, population)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: join population")
	}
	return &Layers{
		GDP:        g,
		Population: p,
		Stats:      []attr.JoinStats{gStats, pStats},
	}, nil
}

// Reproject transforms every county and region geometry of l into target.
// Geometries shared between the GDP and population rows are transformed once.
func Reproject(l *Layers, target int) error {
	done := make(map[*geom.MultiPolygon]*geom.MultiPolygon)
	transform := func(g *geom.MultiPolygon) (*geom.MultiPolygon, error) {
		if g == nil {
			return nil, nil
		}
		if out, ok := done[g]; ok {
			return out, nil
		}
		out, err := proj.Transform(g, target)
		if err != nil {
			return nil, err
		}
		done[g] = out
		return out, nil
	}

	for _, rows := range [][]model.Joined{l.GDP, l.Population} {
		for i := range rows {
			g, err := transform(rows[i].Geom)
			if err != nil {
				return eris.Wrapf(err, "pipeline: reproject county %s", rows[i].GEOID)
			}
			rows[i].Geom = g
		}
	}
	for i := range l.Regions {
		g, err := transform(l.Regions[i].Geom)
		if err != nil {
			return eris.Wrapf(err, "pipeline: reproject region %s", l.Regions[i].Code)
		}
		l.Regions[i].Geom = g
	}
	l.SRID = target
	return nil
}

// Build runs every stage up to rendering: filter, join, dissolve and
// reproject into the configured target CRS.
func Build(ctx context.Context, cfg *config.Config, in *Inputs) (*Layers, error) {
	log := zap.L().With(zap.String("component", "pipeline"))

	allow, err := cfg.Regions.AllowList()
	if err != nil {
		return nil, err
	}
	counties := FilterCounties(in.Counties, allow)
	log.Info("counties filtered",
		zap.Int("read", len(in.Counties)),
		zap.Int("kept", len(counties)),
		zap.Int("regions_allowed", len(allow)),
	)
	if len(counties) == 0 {
		return nil, eris.New("pipeline: no counties left after region filter")
	}

	layers, err := Join(counties, in.GDP, in.Population)
	if err != nil {
		return nil, err
	}
	for _, s := range layers.Stats {
		log.Info("table joined",
			zap.String("table", s.Table),
			zap.Int("matched", s.Matched),
			zap.Int("unmatched", s.Unmatched),
			zap.Int("suppressed", s.Suppressed),
			zap.Int("unused", s.Unused),
		)
	}

	regions, err := dissolve.Dissolve(ctx, counties, dissolve.Options{Concurrency: cfg.Dissolve.Concurrency})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: dissolve")
	}
	layers.Regions = regions

	if err := Reproject(layers, cfg.Projection.TargetSRID); err != nil {
		return nil, err
	}
	return layers, nil
}

// RenderOptions converts the render config into renderer options.
func RenderOptions(cfg config.RenderConfig) render.Options {
	return render.Options{
		Palette:   cfg.Palette,
		Width:     vg.Length(cfg.WidthInches) * vg.Inch,
		Precision: cfg.Precision,
	}
}

// RenderMaps classifies and renders every map into cfg.Render.OutDir.
func RenderMaps(ctx context.Context, cfg *config.Config, l *Layers) ([]Output, error) {
	log := zap.L().With(zap.String("component", "pipeline"))
	opts := RenderOptions(cfg.Render)

	outputs := make([]Output, 0, len(cfg.Maps))
	for _, mc := range cfg.Maps {
		if err := ctx.Err(); err != nil {
			return outputs, err
		}
		out, err := renderMap(mc, cfg.Render, opts, l)
		if err != nil {
			return outputs, eris.Wrapf(err, "pipeline: map %s", mc.Name)
		}
		log.Info("map rendered",
			zap.String("map", out.Name),
			zap.String("image", out.Image),
			zap.Int("classes", out.Classes),
		)
		outputs = append(outputs, out)
	}
	return outputs, nil
}

func renderMap(mc config.MapConfig, rc config.RenderConfig, opts render.Options, l *Layers) (Output, error) {
	rows, err := l.Attribute(mc.Attribute)
	if err != nil {
		return Output{}, err
	}
	method, err := classify.ParseMethod(mc.Method)
	if err != nil {
		return Output{}, err
	}
	result, err := classify.Classify(model.Values(rows), mc.Classes, method)
	if err != nil {
		return Output{}, err
	}

	m := render.Map{
		Name:     mc.Name,
		Title:    mc.Title,
		Counties: rows,
		Regions:  l.Regions,
		Result:   result,
	}
	p, err := render.Choropleth(m, opts)
	if err != nil {
		return Output{}, err
	}

	image := filepath.Join(rc.OutDir, mc.Name+"."+rc.Format)
	sidecar, err := render.Save(p, m, opts, image)
	if err != nil {
		return Output{}, err
	}
	return Output{Name: mc.Name, Image: image, Sidecar: sidecar, Classes: result.K()}, nil
}

// Run executes the full pipeline once.
func Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	start := time.Now()
	log := zap.L().With(zap.String("component", "pipeline"))

	in, err := LoadInputs(ctx, cfg)
	if err != nil {
		return nil, err
	}
	layers, err := Build(ctx, cfg, in)
	if err != nil {
		return nil, err
	}
	outputs, err := RenderMaps(ctx, cfg, layers)
	if err != nil {
		return nil, err
	}

	res := &Result{
		CountiesRead: len(in.Counties),
		CountiesKept: len(layers.GDP),
		Regions:      len(layers.Regions),
		Stats:        layers.Stats,
		Outputs:      outputs,
		Duration:     time.Since(start),
	}
	log.Info("pipeline complete",
		zap.Int("counties", res.CountiesKept),
		zap.Int("regions", res.Regions),
		zap.Int("maps", len(res.Outputs)),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}
