package render

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gonum.org/v1/plot"
	"gopkg.in/yaml.v3"
)

// Formats are the image extensions Save writes.
var Formats = map[string]bool{"png": true, "svg": true, "pdf": true}

// Sidecar describes a rendered map image.
type Sidecar struct {
	Name    string    `yaml:"name"`
	Title   string    `yaml:"title"`
	Image   string    `yaml:"image"`
	SRID    int       `yaml:"srid"`
	Method  string    `yaml:"method"`
	Classes int       `yaml:"classes"`
	Breaks  []float64 `yaml:"breaks"`
	Counts  []int     `yaml:"counts"`
	Labels  []string  `yaml:"labels"`
	GVF     float64   `yaml:"gvf"`
}

// Save writes p to path, sized to m's aspect ratio, plus a YAML sidecar next
// to it. Returns the sidecar path.
func Save(p *plot.Plot, m Map, opts Options, path string) (string, error) {
	opts = opts.withDefaults()

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if !Formats[ext] {
		return "", eris.Errorf("render: unsupported image format %q", ext)
	}
	srid, err := m.SRID()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", eris.Wrapf(err, "render: create %s", filepath.Dir(path))
	}

	w, h := m.Size(opts.Width)
	if err := p.Save(w, h, path); err != nil {
		return "", eris.Wrapf(err, "render: save %s", path)
	}

	side := Sidecar{
		Name:  m.Name,
		Title: m.Title,
		Image: filepath.Base(path),
		SRID:  srid,
	}
	if r := m.Result; r != nil {
		side.Method = string(r.Method)
		side.Classes = r.K()
		side.Breaks = r.Breaks
		side.Counts = r.Counts
		side.Labels = Labels(r, opts.Precision)
		side.GVF = r.GVF
	}
	data, err := yaml.Marshal(side)
	if err != nil {
		return "", eris.Wrap(err, "render: encode sidecar")
	}

	sidePath := strings.TrimSuffix(path, filepath.Ext(path)) + ".yaml"
	if err := os.WriteFile(sidePath, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "render: write %s", sidePath)
	}
	return sidePath, nil
}
