package config

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/countymap/internal/attr"
)

// Config holds the full application configuration.
type Config struct {
	Inputs     InputsConfig     `yaml:"inputs" mapstructure:"inputs"`
	GDP        SourceConfig     `yaml:"gdp" mapstructure:"gdp"`
	Population SourceConfig     `yaml:"population" mapstructure:"population"`
	Regions    RegionsConfig    `yaml:"regions" mapstructure:"regions"`
	Projection ProjectionConfig `yaml:"projection" mapstructure:"projection"`
	Render     RenderConfig     `yaml:"render" mapstructure:"render"`
	Maps       []MapConfig      `yaml:"maps" mapstructure:"maps"`
	Dissolve   DissolveConfig   `yaml:"dissolve" mapstructure:"dissolve"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// InputsConfig locates the input files. Relative paths resolve against Dir.
type InputsConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`
	Counties string `yaml:"counties" mapstructure:"counties"`
	IDField  string `yaml:"id_field" mapstructure:"id_field"`
}

// Path resolves p against Dir.
func (c InputsConfig) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// SourceConfig describes one attribute table.
type SourceConfig struct {
	Path               string `yaml:"path" mapstructure:"path"`
	Sheet              string `yaml:"sheet" mapstructure:"sheet"`
	SkipRows           int    `yaml:"skip_rows" mapstructure:"skip_rows"`
	LabelRows          int    `yaml:"label_rows" mapstructure:"label_rows"`
	Delimiter          string `yaml:"delimiter" mapstructure:"delimiter"`
	Encoding           string `yaml:"encoding" mapstructure:"encoding"`
	IDColumn           string `yaml:"id_column" mapstructure:"id_column"`
	IDFormat           string `yaml:"id_format" mapstructure:"id_format"`
	NameColumn         string `yaml:"name_column" mapstructure:"name_column"`
	ValueColumn        string `yaml:"value_column" mapstructure:"value_column"`
	DiscriminantColumn string `yaml:"discriminant_column" mapstructure:"discriminant_column"`
	Discriminant       string `yaml:"discriminant" mapstructure:"discriminant"`
	URL                string `yaml:"url" mapstructure:"url"`
}

// Source converts the config into an attr.Source with the path resolved
// against the inputs directory.
func (c SourceConfig) Source(in InputsConfig) attr.Source {
	return attr.Source{
		Path:               in.Path(c.Path),
		Sheet:              c.Sheet,
		SkipRows:           c.SkipRows,
		LabelRows:          c.LabelRows,
		Delimiter:          c.Delimiter,
		Encoding:           c.Encoding,
		IDColumn:           c.IDColumn,
		IDFormat:           attr.IDFormat(c.IDFormat),
		NameColumn:         c.NameColumn,
		ValueColumn:        c.ValueColumn,
		DiscriminantColumn: c.DiscriminantColumn,
		Discriminant:       c.Discriminant,
	}
}

// RegionsConfig selects the regions kept on the map. State, when set, wins
// over Allow. An empty Allow means the lower 48 states.
type RegionsConfig struct {
	Allow []string `yaml:"allow" mapstructure:"allow"`
	State string   `yaml:"state" mapstructure:"state"`
}

// ProjectionConfig sets the CRS of the inputs and of the rendered maps.
type ProjectionConfig struct {
	SourceSRID int `yaml:"source_srid" mapstructure:"source_srid"`
	TargetSRID int `yaml:"target_srid" mapstructure:"target_srid"`
}

// RenderConfig styles the map images.
type RenderConfig struct {
	OutDir      string  `yaml:"out_dir" mapstructure:"out_dir"`
	Format      string  `yaml:"format" mapstructure:"format"`
	Palette     string  `yaml:"palette" mapstructure:"palette"`
	WidthInches float64 `yaml:"width_inches" mapstructure:"width_inches"`
	Precision   int     `yaml:"precision" mapstructure:"precision"`
}

// MapConfig is one choropleth to render.
type MapConfig struct {
	Name      string `yaml:"name" mapstructure:"name"`
	Title     string `yaml:"title" mapstructure:"title"`
	Attribute string `yaml:"attribute" mapstructure:"attribute"`
	Method    string `yaml:"method" mapstructure:"method"`
	Classes   int    `yaml:"classes" mapstructure:"classes"`
}

// DissolveConfig tunes the region union.
type DissolveConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// FetchConfig configures input downloads.
type FetchConfig struct {
	Year        int     `yaml:"year" mapstructure:"year"`
	Resolution  string  `yaml:"resolution" mapstructure:"resolution"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerHost float64 `yaml:"rate_per_host" mapstructure:"rate_per_host"`
}

// StoreConfig configures the layer store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COUNTYMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("inputs.dir", "data")
	v.SetDefault("inputs.counties", "cb_2023_us_county_500k/cb_2023_us_county_500k.shp")
	v.SetDefault("inputs.id_field", "GEOID")

	v.SetDefault("gdp.path", "CAGDP1.xlsx")
	v.SetDefault("gdp.id_column", "GeoFIPS")
	v.SetDefault("gdp.id_format", string(attr.Padded))
	v.SetDefault("gdp.name_column", "GeoName")
	v.SetDefault("gdp.value_column", "2022")
	v.SetDefault("gdp.discriminant_column", "LineCode")
	v.SetDefault("gdp.discriminant", "3")

	v.SetDefault("population.path", "population.csv")
	v.SetDefault("population.id_column", "GEO_ID")
	v.SetDefault("population.id_format", string(attr.Composite))
	v.SetDefault("population.name_column", "NAME")
	v.SetDefault("population.value_column", "P1_001N")
	v.SetDefault("population.label_rows", 1)

	v.SetDefault("projection.source_srid", 4269)
	v.SetDefault("projection.target_srid", 5070)

	v.SetDefault("render.out_dir", "maps")
	v.SetDefault("render.format", "png")
	v.SetDefault("render.palette", "YlOrRd")
	v.SetDefault("render.width_inches", 12.0)
	v.SetDefault("render.precision", 0)

	v.SetDefault("maps", []map[string]any{
		{"name": "gdp", "title": "County GDP (thousands of current dollars)", "attribute": "gdp", "method": "jenks", "classes": 5},
		{"name": "population", "title": "County population", "attribute": "population", "method": "quantile", "classes": 5},
	})

	v.SetDefault("dissolve.concurrency", 4)

	v.SetDefault("fetch.year", 2023)
	v.SetDefault("fetch.resolution", "500k")
	v.SetDefault("fetch.user_agent", "countymap/1.0")
	v.SetDefault("fetch.timeout_secs", 600)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.rate_per_host", 2.0)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "countymap.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
