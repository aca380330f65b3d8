package indicator

import (
	"math"

	"github.com/quantive-lab/pulse-trading/pkg/errors"
)

// RSI computes the Relative Strength Index over the close prices using
// exponential smoothing of average gains and losses with span semantics
// (alpha = 2 / (period + 1)).
//
// The output is aligned 1:1 with the input. Values are NaN until enough
// smoothing history exists: the first sample has no price change, and the
// index stays undefined while every observed change is zero. A window with
// gains but no losses yet evaluates to 100.
//
// Accumulation is strictly left-to-right so identical inputs produce
// bit-identical output.
func RSI(closes []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "RSI period must be positive, got %d", period)
	}

	series := make([]float64, len(closes))
	if len(closes) == 0 {
		return series, nil
	}

	alpha := 2.0 / float64(period+1)
	series[0] = math.NaN()

	avgGain := 0.0
	avgLoss := 0.0

	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]

		gain := 0.0
		loss := 0.0

		if delta > 0 {
			gain = delta
		} else if delta < 0 {
			loss = -delta
		}

		avgGain += alpha * (gain - avgGain)
		avgLoss += alpha * (loss - avgLoss)

		switch {
		case avgGain == 0 && avgLoss == 0:
			series[i] = math.NaN()
		case avgLoss == 0:
			series[i] = 100
		default:
			rs := avgGain / avgLoss
			series[i] = 100 - (100 / (1 + rs))
		}
	}

	return series, nil
}

// Current returns the most recent value of an indicator series, or NaN when
// the series is empty.
func Current(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}

	return series[len(series)-1]
}
