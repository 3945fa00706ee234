// Package config holds the command line settings, unmarshalled from Viper
// (see cmd/aucell).
package config

import (
	"fmt"
	"strings"

	"github.com/TrevorS/aucell"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every setting read from the environment, so
// "rank-cutoff" is read from AUCELL_RANK_CUTOFF.
const EnvPrefix = "AUCELL"

// Config is the root-level settings struct. It is a mix of an optional
// settings file, AUCELL_* environment variables and command line flags.
type Config struct {
	// path to the genes × cells expression TSV
	Expr string `mapstructure:"expr"`

	// path to the GMT gene set catalog
	Sets string `mapstructure:"sets"`

	// directory the result files are written to
	Out string `mapstructure:"out"`

	// seed of every random stream in the run
	Seed uint64 `mapstructure:"seed"`

	// goroutines per parallel stage, 0 for all CPUs
	Workers int `mapstructure:"workers"`

	// number of top ranking positions scored, 0 to derive it from the data
	RankCutoff int `mapstructure:"rank-cutoff"`

	// quantile of detected genes per cell used to derive the rank cutoff
	DetectedQuantile float64 `mapstructure:"detected-quantile"`

	// share of all genes used as the rank cutoff when the quantile is too small
	GeneFraction float64 `mapstructure:"gene-fraction"`

	// gene sets with fewer distinct genes are dropped before scoring
	MinSetSize int `mapstructure:"min-set-size"`

	// smallest share of cells on each side of a mixture split
	MinPopulation float64 `mapstructure:"min-population"`

	// quantile used as the threshold when no mixture split is found
	FallbackQuantile float64 `mapstructure:"fallback-quantile"`

	// largest mixture tried per gene set
	MaxComponents int `mapstructure:"max-components"`

	// whether gene sets are grouped by score similarity
	Cluster bool `mapstructure:"cluster"`

	// agglomeration rule for grouping: single, average or complete
	Linkage string `mapstructure:"linkage"`

	// trace, debug, info, warn or error
	LogLevel string `mapstructure:"log-level"`
}

// SetDefaults registers the default of every setting on v so that keys not
// backed by a flag can still be read from the environment.
func SetDefaults(v *viper.Viper) {
	def := aucell.DefaultConfig()
	v.SetDefault("seed", def.Seed)
	v.SetDefault("workers", def.Workers)
	v.SetDefault("rank-cutoff", def.RankCutoff)
	v.SetDefault("detected-quantile", def.Cutoff.DetectedQuantile)
	v.SetDefault("gene-fraction", def.Cutoff.GeneFraction)
	v.SetDefault("min-set-size", def.MinSetSize)
	v.SetDefault("min-population", def.Threshold.MinPopulationFraction)
	v.SetDefault("fallback-quantile", def.Threshold.FallbackQuantile)
	v.SetDefault("max-components", def.Threshold.MaxComponents)
	v.SetDefault("cluster", true)
	v.SetDefault("linkage", string(def.Cluster.Linkage))
	v.SetDefault("log-level", "info")
	v.SetDefault("out", ".")
}

// Bind enables AUCELL_* environment lookups on v and, when path is set,
// reads the settings file at path.
func Bind(v *viper.Viper, path string) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	return nil
}

// New returns a Config populated by the settings in v.
func New(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: unable to decode settings: %w", err)
	}
	return c, nil
}

// Options converts the settings into a library run configuration.
func (c Config) Options() aucell.Config {
	cfg := aucell.DefaultConfig()
	cfg.Seed = c.Seed
	cfg.Workers = c.Workers
	cfg.RankCutoff = c.RankCutoff
	cfg.Cutoff.DetectedQuantile = c.DetectedQuantile
	cfg.Cutoff.GeneFraction = c.GeneFraction
	cfg.MinSetSize = c.MinSetSize
	cfg.Threshold.MinPopulationFraction = c.MinPopulation
	cfg.Threshold.FallbackQuantile = c.FallbackQuantile
	cfg.Threshold.MaxComponents = c.MaxComponents
	cfg.Cluster.Linkage = aucell.Linkage(c.Linkage)
	cfg.SkipClustering = !c.Cluster
	return cfg
}

// CutoffPolicy returns the rank cutoff policy described by the settings.
func (c Config) CutoffPolicy() aucell.CutoffPolicy {
	p := aucell.DefaultCutoffPolicy()
	p.DetectedQuantile = c.DetectedQuantile
	p.GeneFraction = c.GeneFraction
	return p
}
