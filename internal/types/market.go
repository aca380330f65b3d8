package types

import (
	"time"

	"github.com/quantive-lab/pulse-trading/pkg/errors"
)

// Bar is a single OHLCV price sample for a fixed time interval.
type Bar struct {
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// PriceWindow is a rolling window of bars ordered by time ascending.
// The last element is the current bar.
type PriceWindow []Bar

// Closes returns the close prices of the window, aligned 1:1 with the bars.
func (w PriceWindow) Closes() []float64 {
	closes := make([]float64, len(w))
	for i, bar := range w {
		closes[i] = bar.Close
	}

	return closes
}

// Last returns the current (most recent) bar. The second return value is
// false when the window is empty.
func (w PriceWindow) Last() (Bar, bool) {
	if len(w) == 0 {
		return Bar{}, false
	}

	return w[len(w)-1], true
}

// Validate checks that the window timestamps are strictly increasing.
func (w PriceWindow) Validate() error {
	for i := 1; i < len(w); i++ {
		if !w[i].Time.After(w[i-1].Time) {
			return errors.Newf(errors.ErrCodeInvalidWindow,
				"window timestamps must be strictly increasing: bar %d (%s) is not after bar %d (%s)",
				i, w[i].Time, i-1, w[i-1].Time)
		}
	}

	return nil
}

// NormalizeWindow converts the supported input shapes into a PriceWindow.
// Accepted shapes:
//   - PriceWindow or []Bar: used as-is
//   - [][]float64: raw matrix whose first four columns are open/high/low/close
//     and whose last column is a unix timestamp in seconds
//
// Any other shape returns an ErrCodeInvalidWindow error. Callers that must
// never fail (the strategy run contract) degrade the error to a no-signal
// result instead of propagating it.
func NormalizeWindow(data any) (PriceWindow, error) {
	switch v := data.(type) {
	case PriceWindow:
		return v, nil
	case []Bar:
		return PriceWindow(v), nil
	case [][]float64:
		return windowFromMatrix(v)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidWindow, "unsupported window input type %T", data)
	}
}

func windowFromMatrix(matrix [][]float64) (PriceWindow, error) {
	window := make(PriceWindow, 0, len(matrix))

	for i, row := range matrix {
		// open, high, low, close plus a trailing timestamp column
		if len(row) < 5 {
			return nil, errors.Newf(errors.ErrCodeInvalidWindow,
				"matrix row %d has %d columns, need at least 5 (open, high, low, close, ..., timestamp)",
				i, len(row))
		}

		timestamp := row[len(row)-1]
		window = append(window, Bar{
			Time:  time.Unix(int64(timestamp), 0).UTC(),
			Open:  row[0],
			High:  row[1],
			Low:   row[2],
			Close: row[3],
		})
	}

	return window, nil
}
