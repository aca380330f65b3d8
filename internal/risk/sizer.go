// Package risk provides position sizing for strategy entries.
package risk

import (
	"github.com/shopspring/decimal"

	"github.com/quantive-lab/pulse-trading/pkg/errors"
)

// Sizer converts an entry price into a base position volume. Strategies
// treat it as an opaque sizing oracle.
type Sizer interface {
	CalculatePositionSize(entryPrice decimal.Decimal) (decimal.Decimal, error)
}

// FixedFractionSizer risks a fixed fraction of the configured capital per
// base entry: volume = capital * riskFraction / entryPrice.
type FixedFractionSizer struct {
	capital      decimal.Decimal
	riskFraction decimal.Decimal
}

// NewFixedFractionSizer creates a sizer from the account capital and the
// per-entry risk fraction.
func NewFixedFractionSizer(capital decimal.Decimal, riskFraction decimal.Decimal) (*FixedFractionSizer, error) {
	if capital.IsNegative() {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "capital must not be negative, got %s", capital)
	}

	if riskFraction.IsNegative() {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "risk fraction must not be negative, got %s", riskFraction)
	}

	return &FixedFractionSizer{
		capital:      capital,
		riskFraction: riskFraction,
	}, nil
}

// CalculatePositionSize implements Sizer.
func (s *FixedFractionSizer) CalculatePositionSize(entryPrice decimal.Decimal) (decimal.Decimal, error) {
	if !entryPrice.IsPositive() {
		return decimal.Zero, errors.Newf(errors.ErrCodeSizingFailed, "entry price must be positive, got %s", entryPrice)
	}

	return s.capital.Mul(s.riskFraction).Div(entryPrice), nil
}
