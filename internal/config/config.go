// Package config loads and validates the engine configuration from YAML.
// Configuration faults abort startup: trading without validated
// configuration is unsafe, so this is the one place errors propagate.
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/quantive-lab/pulse-trading/internal/strategy"
	"github.com/quantive-lab/pulse-trading/internal/version"
	"github.com/quantive-lab/pulse-trading/pkg/errors"
)

// Config is the root configuration document.
type Config struct {
	// SchemaVersion pins the configuration layout; it must be compatible
	// with the engine version (major and minor must match).
	SchemaVersion string         `yaml:"schema_version" json:"schema_version" jsonschema:"title=Schema Version,description=Configuration schema version pinned to the engine" validate:"required"`
	Strategy      StrategyConfig `yaml:"strategy" json:"strategy" validate:"required"`
	Live          LiveConfig     `yaml:"live" json:"live"`
	Risk          RiskConfig     `yaml:"risk" json:"risk" validate:"required"`
	Data          DataConfig     `yaml:"data" json:"data"`
}

// StrategyConfig selects and parameterizes the decision engine.
type StrategyConfig struct {
	// Name is the registry identifier; it is also stamped into Signal.Source.
	Name string `yaml:"name" json:"name" jsonschema:"title=Strategy Name" validate:"required"`

	strategy.RSIScaleInConfig `yaml:",inline"`
}

// LiveConfig mirrors strategy.LiveSettings in the configuration document.
type LiveConfig struct {
	LiveEnabled     bool     `yaml:"live_enabled" json:"live_enabled"`
	DryRun          bool     `yaml:"dry_run" json:"dry_run"`
	MaxRiskFraction float64  `yaml:"max_risk_fraction" json:"max_risk_fraction" validate:"gte=0,lte=1"`
	MaxNotional     *float64 `yaml:"max_notional" json:"max_notional,omitempty" validate:"omitempty,gt=0"`
	AllowedSymbols  []string `yaml:"allowed_symbols" json:"allowed_symbols,omitempty"`
}

// RiskConfig parameterizes the position sizer.
type RiskConfig struct {
	Capital      float64 `yaml:"capital" json:"capital" validate:"required,gt=0"`
	RiskFraction float64 `yaml:"risk_fraction" json:"risk_fraction" validate:"required,gt=0,lte=1"`
}

// DataConfig locates the candle store and the traded instrument.
type DataConfig struct {
	Database string `yaml:"database" json:"database"`
	Symbol   string `yaml:"symbol" json:"symbol"`
}

// DefaultConfig returns the stock configuration: RSI scale-in with the
// default ladder, dry run on, 2% risk fraction.
func DefaultConfig() Config {
	return Config{
		SchemaVersion: version.GetVersion(),
		Strategy: StrategyConfig{
			Name:             "rsi_scale_in",
			RSIScaleInConfig: strategy.DefaultRSIScaleInConfig(),
		},
		Live: LiveConfig{
			LiveEnabled:     false,
			DryRun:          true,
			MaxRiskFraction: 0.02,
		},
		Risk: RiskConfig{
			Capital:      10000,
			RiskFraction: 0.01,
		},
		Data: DataConfig{
			Database: "data/candles.duckdb",
		},
	}
}

// Load reads, parses, and validates a configuration file.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "cannot read configuration file %s", path)
	}

	return Parse(raw)
}

// Parse parses and validates a configuration document.
func Parse(raw []byte) (Config, error) {
	config := DefaultConfig()

	if err := yaml.Unmarshal(raw, &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "cannot parse configuration", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate checks struct tags and schema version compatibility.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	if err := version.CheckSchemaCompatibility(version.GetVersion(), c.SchemaVersion); err != nil {
		return errors.Wrap(errors.ErrCodeVersionMismatch, "configuration schema incompatible with engine", err)
	}

	return nil
}

// LiveSettings converts the live section into the strategy-owned flags.
func (c *Config) LiveSettings() *strategy.LiveSettings {
	settings := strategy.NewLiveSettings()
	settings.LiveEnabled = c.Live.LiveEnabled
	settings.DryRun = c.Live.DryRun
	settings.MaxRiskFraction = decimal.NewFromFloat(c.Live.MaxRiskFraction)
	settings.AllowedSymbols = c.Live.AllowedSymbols

	if c.Live.MaxNotional != nil {
		settings.MaxNotional = optional.Some(decimal.NewFromFloat(*c.Live.MaxNotional))
	}

	return settings
}
