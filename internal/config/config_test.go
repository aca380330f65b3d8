package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/quantive-lab/pulse-trading/pkg/errors"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestDefaultConfigIsValid() {
	cfg := DefaultConfig()
	suite.NoError(cfg.Validate())

	suite.Equal("rsi_scale_in", cfg.Strategy.Name)
	suite.Equal(6, cfg.Strategy.Period)
	suite.Equal(35.0, cfg.Strategy.LongEntryLevel)
	suite.Equal([]float64{30, 25, 20, 15}, cfg.Strategy.LongScaleLevels)
	suite.Equal(65.0, cfg.Strategy.ShortEntryLevel)
	suite.Equal([]float64{70, 75, 80, 85}, cfg.Strategy.ShortScaleLevels)
	suite.Equal(4, cfg.Strategy.MaxScaleIns)
	suite.Equal(100, cfg.Strategy.MinBars)
	suite.True(cfg.Live.DryRun)
	suite.False(cfg.Live.LiveEnabled)
	suite.Equal(0.02, cfg.Live.MaxRiskFraction)
}

func (suite *ConfigTestSuite) TestParseOverridesDefaults() {
	raw := []byte(`
strategy:
  name: custom
  rsi_period: 14
  min_bars: 50
risk:
  capital: 5000
  risk_fraction: 0.05
live:
  live_enabled: true
  dry_run: false
  max_notional: 1000
  allowed_symbols: [BTCUSDT]
`)

	cfg, err := Parse(raw)
	suite.NoError(err)
	suite.Equal("custom", cfg.Strategy.Name)
	suite.Equal(14, cfg.Strategy.Period)
	suite.Equal(50, cfg.Strategy.MinBars)
	// Untouched fields keep their defaults.
	suite.Equal(35.0, cfg.Strategy.LongEntryLevel)
	suite.Equal(5000.0, cfg.Risk.Capital)
	suite.True(cfg.Live.LiveEnabled)
	suite.False(cfg.Live.DryRun)
	suite.Equal([]string{"BTCUSDT"}, cfg.Live.AllowedSymbols)
	suite.Require().NotNil(cfg.Live.MaxNotional)
	suite.Equal(1000.0, *cfg.Live.MaxNotional)
}

func (suite *ConfigTestSuite) TestParseRejectsMalformedYAML() {
	_, err := Parse([]byte("strategy: [not a mapping"))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestParseRejectsInvalidValues() {
	_, err := Parse([]byte(`
risk:
  capital: -100
  risk_fraction: 0.01
`))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestParseRejectsIncompatibleSchemaVersion() {
	_, err := Parse([]byte(`schema_version: v2.0.0`))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeVersionMismatch))

	_, err = Parse([]byte(`schema_version: v1.1.0`))
	suite.Error(err)
}

func (suite *ConfigTestSuite) TestLoad() {
	dir := suite.T().TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := []byte(`
strategy:
  name: from_file
risk:
  capital: 2500
  risk_fraction: 0.02
`)
	suite.Require().NoError(os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	suite.NoError(err)
	suite.Equal("from_file", cfg.Strategy.Name)
	suite.Equal(2500.0, cfg.Risk.Capital)
}

func (suite *ConfigTestSuite) TestLoadMissingFile() {
	_, err := Load("/nonexistent/config.yaml")
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestLiveSettingsConversion() {
	cfg := DefaultConfig()
	cfg.Live.LiveEnabled = true
	cfg.Live.DryRun = false
	cfg.Live.MaxRiskFraction = 0.1
	maxNotional := 500.0
	cfg.Live.MaxNotional = &maxNotional
	cfg.Live.AllowedSymbols = []string{"ETHUSDT"}

	settings := cfg.LiveSettings()
	suite.True(settings.LiveEnabled)
	suite.False(settings.DryRun)
	suite.Equal("0.1", settings.MaxRiskFraction.String())
	suite.True(settings.MaxNotional.IsSome())
	suite.Equal("500", settings.MaxNotional.Unwrap().String())
	suite.Equal([]string{"ETHUSDT"}, settings.AllowedSymbols)
}

func (suite *ConfigTestSuite) TestLiveSettingsDefaults() {
	cfg := DefaultConfig()
	settings := cfg.LiveSettings()
	suite.False(settings.LiveEnabled)
	suite.True(settings.DryRun)
	suite.True(settings.MaxNotional.IsNone())
}

func (suite *ConfigTestSuite) TestGenerateSchemaJSON() {
	schema, err := GenerateSchemaJSON()
	suite.NoError(err)
	suite.Contains(schema, "schema_version")
	suite.Contains(schema, "rsi_period")
	suite.Contains(schema, "max_risk_fraction")
}
