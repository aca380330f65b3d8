// Package guard decides whether a generated signal is allowed to reach the
// market. It is the last gate between the decision engine and the executor.
package guard

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/quantive-lab/pulse-trading/internal/strategy"
	"github.com/quantive-lab/pulse-trading/internal/types"
)

// Reason codes returned by CanExecute. Checks run in a fixed order and the
// first failing check wins, so a disabled strategy is reported before any
// risk arithmetic is attempted and the absolute notional cap is reported
// before the relative fraction cap.
const (
	ReasonOK                     = "ok"
	ReasonLiveDisabled           = "strategy_live_disabled"
	ReasonDryRun                 = "dry_run_enabled"
	ReasonSymbolNotAllowedPrefix = "symbol_not_allowed:"
	ReasonExceedsMaxNotional     = "notional_exceeds_max_notional"
	ReasonExceedsMaxRiskFraction = "notional_exceeds_max_risk_fraction"
	ReasonValidationError        = "validation_error"
)

// CanExecute reports whether the signal may be dispatched under the
// strategy's live-trading flags and the supplied trading context. It never
// propagates a failure: any fault in the risk arithmetic degrades to a
// rejection with ReasonValidationError.
func CanExecute(flags *strategy.LiveSettings, signal types.Signal, _ []types.Position,
	tradingCtx optional.Option[types.TradingContext]) (bool, string) {
	if flags == nil || !flags.LiveEnabled {
		return false, ReasonLiveDisabled
	}

	if flags.DryRun {
		return false, ReasonDryRun
	}

	if tradingCtx.IsNone() {
		return true, ReasonOK
	}

	ctx := tradingCtx.Unwrap()

	if len(flags.AllowedSymbols) > 0 && ctx.Symbol != "" && !flags.SymbolAllowed(ctx.Symbol) {
		return false, ReasonSymbolNotAllowedPrefix + ctx.Symbol
	}

	return checkNotional(flags, signal, ctx)
}

// checkNotional applies the absolute and relative exposure caps. The
// decimal arithmetic is shielded so malformed inputs reject instead of
// panicking through the caller.
func checkNotional(flags *strategy.LiveSettings, signal types.Signal, ctx types.TradingContext) (allowed bool, reason string) {
	defer func() {
		if r := recover(); r != nil {
			allowed = false
			reason = ReasonValidationError
		}
	}()

	if ctx.AvailableBalance.IsNone() || signal.EntryPrice.IsNone() {
		return true, ReasonOK
	}

	balance := ctx.AvailableBalance.Unwrap()
	if err := validateAmount(balance); err != nil {
		return false, ReasonValidationError
	}

	price := signal.EntryPrice.Unwrap()
	if err := validateAmount(price); err != nil {
		return false, ReasonValidationError
	}

	if signal.Volume.IsNegative() {
		return false, ReasonValidationError
	}

	notional := price.Mul(signal.Volume)

	if flags.MaxNotional.IsSome() && notional.GreaterThan(flags.MaxNotional.Unwrap()) {
		return false, ReasonExceedsMaxNotional
	}

	maxAllowed := balance.Mul(flags.MaxRiskFraction)
	if notional.GreaterThan(maxAllowed) {
		return false, ReasonExceedsMaxRiskFraction
	}

	return true, ReasonOK
}

func validateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("amount must not be negative: %s", amount)
	}

	return nil
}
