// Package strategy contains the trade decision engines: a generic
// condition-chain strategy and the RSI scale-in strategy, plus the static
// registry that maps strategy identifiers to factories.
//
// Strategies are stateless between calls: every evaluation reconstructs its
// state from the supplied price window and position snapshot, so a restart
// never loses or duplicates decisions.
package strategy

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/quantive-lab/pulse-trading/internal/types"
)

// Strategy is the single capability interface every decision engine
// implements. Evaluate must always return a signal, never panic or fail:
// malformed input degrades to a NO_SIGNAL result.
type Strategy interface {
	// Name returns the strategy identifier stamped into Signal.Source.
	Name() string
	// MinBars returns the minimum window length the strategy needs before
	// it can produce a decision.
	MinBars() int
	// Evaluate consumes one snapshot of price data and open positions and
	// returns one signal. data accepts any shape types.NormalizeWindow does.
	Evaluate(data any, positions []types.Position, tradingCtx optional.Option[types.TradingContext]) types.Signal
	// Live returns the mutable live-trading settings owned by the strategy.
	Live() *LiveSettings
}

// LiveSettings are the live-trading flags owned by a strategy instance.
// They are mutated only by the execution owner and read by the guard; the
// engine assumes no concurrent calls into the same strategy instance.
type LiveSettings struct {
	LiveEnabled     bool                             `yaml:"live_enabled" json:"live_enabled"`
	DryRun          bool                             `yaml:"dry_run" json:"dry_run"`
	MaxRiskFraction decimal.Decimal                  `yaml:"max_risk_fraction" json:"max_risk_fraction"`
	MaxNotional     optional.Option[decimal.Decimal] `yaml:"max_notional" json:"max_notional"`
	AllowedSymbols  []string                         `yaml:"allowed_symbols" json:"allowed_symbols,omitempty"`
}

// NewLiveSettings returns the safe defaults: live trading disabled, dry run
// on, 2% risk fraction, no notional cap, no symbol whitelist.
func NewLiveSettings() *LiveSettings {
	return &LiveSettings{
		LiveEnabled:     false,
		DryRun:          true,
		MaxRiskFraction: decimal.NewFromFloat(0.02),
		MaxNotional:     optional.None[decimal.Decimal](),
	}
}

// Snapshot returns the flags as a metadata bag for signal audit stamping.
func (s *LiveSettings) Snapshot() map[string]any {
	maxRiskFraction, _ := s.MaxRiskFraction.Float64()

	var maxNotional any
	if s.MaxNotional.IsSome() {
		value, _ := s.MaxNotional.Unwrap().Float64()
		maxNotional = value
	}

	return map[string]any{
		"live_enabled":      s.LiveEnabled,
		"dry_run":           s.DryRun,
		"max_risk_fraction": maxRiskFraction,
		"max_notional":      maxNotional,
	}
}

// SymbolAllowed reports whether the symbol passes the whitelist. An empty
// whitelist allows every symbol.
func (s *LiveSettings) SymbolAllowed(symbol string) bool {
	if len(s.AllowedSymbols) == 0 {
		return true
	}

	for _, allowed := range s.AllowedSymbols {
		if allowed == symbol {
			return true
		}
	}

	return false
}
