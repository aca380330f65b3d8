package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/quantive-lab/pulse-trading/internal/types"
)

// MinBarsCondition passes when the window holds at least minBars bars.
func MinBarsCondition(minBars int) Condition {
	return Condition{
		Name: fmt.Sprintf("min_bars_%d", minBars),
		Eval: func(window types.PriceWindow, _ *ChainContext) (bool, error) {
			return len(window) >= minBars, nil
		},
	}
}

// CloseAboveMACondition passes when the current close is above the simple
// moving average of the last period closes. The computed average is staged
// into the context under the "ma" key for downstream conditions.
func CloseAboveMACondition(period int) Condition {
	return Condition{
		Name: fmt.Sprintf("close_above_ma_%d", period),
		Eval: func(window types.PriceWindow, ctx *ChainContext) (bool, error) {
			if period <= 0 {
				return false, fmt.Errorf("moving average period must be positive, got %d", period)
			}

			if len(window) < period {
				return false, nil
			}

			sum := 0.0
			for i := len(window) - period; i < len(window); i++ {
				sum += window[i].Close
			}

			ma := sum / float64(period)
			ctx.Values["ma"] = ma

			last, _ := window.Last()

			return last.Close > ma, nil
		},
	}
}

// StageVolumeCondition always passes and stages the given volume for the
// signal built at the end of the chain.
func StageVolumeCondition(volume decimal.Decimal) Condition {
	return Condition{
		Name: fmt.Sprintf("set_volume_%s", volume),
		Eval: func(_ types.PriceWindow, ctx *ChainContext) (bool, error) {
			ctx.Volume = optional.Some(volume)

			return true, nil
		},
	}
}

// StageDirectionCondition always passes and stages the signal direction.
func StageDirectionCondition(direction types.Direction) Condition {
	return Condition{
		Name: fmt.Sprintf("set_direction_%s", direction),
		Eval: func(_ types.PriceWindow, ctx *ChainContext) (bool, error) {
			ctx.Direction = optional.Some(direction)

			return true, nil
		},
	}
}
