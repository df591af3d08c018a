package config

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/countymap/internal/attr"
	"github.com/sells-group/countymap/internal/classify"
	"github.com/sells-group/countymap/internal/geoid"
	"github.com/sells-group/countymap/internal/proj"
	"github.com/sells-group/countymap/internal/render"
	"github.com/sells-group/countymap/internal/tiger"
)

// Attribute names a map can colour by.
const (
	AttributeGDP        = "gdp"
	AttributePopulation = "population"
)

// maxClasses is the largest ColorBrewer sequential scheme.
const maxClasses = 9

// AllowList resolves the region selection.
func (c RegionsConfig) AllowList() (geoid.AllowList, error) {
	if c.State != "" {
		code, err := geoid.StateFIPS(c.State)
		if err != nil {
			return nil, eris.Wrap(err, "config: regions.state")
		}
		return geoid.NewAllowList(code)
	}
	if len(c.Allow) == 0 {
		return geoid.Lower48(), nil
	}
	allow, err := geoid.NewAllowList(c.Allow...)
	return allow, eris.Wrap(err, "config: regions.allow")
}

// Boundary returns the configured county boundary product.
func (c FetchConfig) Boundary() tiger.Boundary {
	return tiger.Boundary{Year: c.Year, Resolution: c.Resolution}
}

// Validate checks the settings the render pipeline depends on.
func (c *Config) Validate() error {
	if c.Inputs.Counties == "" {
		return eris.New("config: inputs.counties is required")
	}
	if err := validateSource("gdp", c.GDP); err != nil {
		return err
	}
	if err := validateSource("population", c.Population); err != nil {
		return err
	}
	if _, err := c.Regions.AllowList(); err != nil {
		return err
	}

	if !proj.Supported(c.Projection.SourceSRID) {
		return eris.Errorf("config: projection.source_srid %d is not supported", c.Projection.SourceSRID)
	}
	if !proj.Supported(c.Projection.TargetSRID) {
		return eris.Errorf("config: projection.target_srid %d is not supported", c.Projection.TargetSRID)
	}

	if !render.Formats[c.Render.Format] {
		return eris.Errorf("config: render.format %q must be png, svg or pdf", c.Render.Format)
	}
	if c.Render.WidthInches <= 0 {
		return eris.Errorf("config: render.width_inches must be positive, got %v", c.Render.WidthInches)
	}
	if len(c.Maps) == 0 {
		return eris.New("config: no maps configured")
	}
	names := make(map[string]bool, len(c.Maps))
	for i, m := range c.Maps {
		if err := m.validate(); err != nil {
			return eris.Wrapf(err, "config: maps[%d]", i)
		}
		if names[m.Name] {
			return eris.Errorf("config: maps[%d]: duplicate name %q", i, m.Name)
		}
		names[m.Name] = true
	}

	if c.Dissolve.Concurrency < 0 {
		return eris.Errorf("config: dissolve.concurrency must not be negative, got %d", c.Dissolve.Concurrency)
	}
	if c.Fetch.MaxRetries < 0 {
		return eris.Errorf("config: fetch.max_retries must not be negative, got %d", c.Fetch.MaxRetries)
	}
	switch c.Store.Driver {
	case "", "postgres", "sqlite":
	default:
		return eris.Errorf("config: store.driver %q must be postgres or sqlite", c.Store.Driver)
	}
	return nil
}

func (m MapConfig) validate() error {
	if m.Name == "" {
		return eris.New("name is required")
	}
	switch m.Attribute {
	case AttributeGDP, AttributePopulation:
	default:
		return eris.Errorf("attribute %q must be gdp or population", m.Attribute)
	}
	if _, err := classify.ParseMethod(m.Method); err != nil {
		return err
	}
	if m.Classes < 1 || m.Classes > maxClasses {
		return eris.Errorf("classes must be between 1 and %d, got %d", maxClasses, m.Classes)
	}
	return nil
}

func validateSource(name string, s SourceConfig) error {
	if s.Path == "" {
		return eris.Errorf("config: %s.path is required", name)
	}
	if s.IDColumn == "" || s.ValueColumn == "" {
		return eris.Errorf("config: %s.id_column and %s.value_column are required", name, name)
	}
	switch attr.IDFormat(s.IDFormat) {
	case "", attr.Padded, attr.Composite:
	default:
		return eris.Errorf("config: %s.id_format %q must be padded or composite", name, s.IDFormat)
	}
	return nil
}

// ValidateStore checks the store settings for publish.
func (c *Config) ValidateStore() error {
	if c.Store.Driver == "" {
		return eris.New("config: store.driver is required")
	}
	if c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required")
	}
	return nil
}
