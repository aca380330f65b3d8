package indicator

// CrossDirection selects which way a level crossing is detected.
type CrossDirection string

const (
	// CrossUp detects the series rising through the level.
	CrossUp CrossDirection = "up"
	// CrossDown detects the series falling through the level.
	CrossDown CrossDirection = "down"
)

// Crossed reports whether the series crossed the level between its last two
// samples in the given direction. Fewer than two samples means no signal
// yet, not an error.
//
// Only the current sample uses an inclusive comparison (<= for down, >= for
// up). A series that lands exactly on the level therefore triggers exactly
// once: the touching sample completes one crossing, and a subsequent flat
// sample no longer satisfies the strict comparison on the previous side.
func Crossed(series []float64, level float64, direction CrossDirection) bool {
	if len(series) < 2 {
		return false
	}

	current := series[len(series)-1]
	previous := series[len(series)-2]

	switch direction {
	case CrossDown:
		return previous > level && current <= level
	case CrossUp:
		return previous < level && current >= level
	default:
		return false
	}
}
