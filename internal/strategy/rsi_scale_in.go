package strategy

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantive-lab/pulse-trading/internal/indicator"
	"github.com/quantive-lab/pulse-trading/internal/logger"
	"github.com/quantive-lab/pulse-trading/internal/risk"
	"github.com/quantive-lab/pulse-trading/internal/types"
	"github.com/quantive-lab/pulse-trading/pkg/errors"
)

// RSIScaleInConfig holds the oscillator and threshold-ladder parameters of
// the RSI scale-in strategy. It is set at construction and immutable
// afterwards.
type RSIScaleInConfig struct {
	// Period is the RSI smoothing period.
	Period int `yaml:"rsi_period" json:"rsi_period" validate:"required,gt=0"`
	// LongEntryLevel opens a LONG when the RSI crosses it downward.
	LongEntryLevel float64 `yaml:"long_entry_level" json:"long_entry_level" validate:"gte=0,lte=100"`
	// LongScaleLevels is the LONG scale-in ladder; index = scale-in number.
	LongScaleLevels []float64 `yaml:"long_scale_levels" json:"long_scale_levels" validate:"dive,gte=0,lte=100"`
	// ShortEntryLevel opens a SHORT when the RSI crosses it upward.
	ShortEntryLevel float64 `yaml:"short_entry_level" json:"short_entry_level" validate:"gte=0,lte=100"`
	// ShortScaleLevels is the SHORT scale-in ladder.
	ShortScaleLevels []float64 `yaml:"short_scale_levels" json:"short_scale_levels" validate:"dive,gte=0,lte=100"`
	// MaxScaleIns caps how many times a position may be scaled into.
	MaxScaleIns int `yaml:"max_scale_ins" json:"max_scale_ins" validate:"gte=0"`
	// MinBars is the minimum window length before any decision is attempted.
	MinBars int `yaml:"min_bars" json:"min_bars" validate:"required,gte=2"`
}

// DefaultRSIScaleInConfig returns the stock parameter set: RSI(6), LONG
// entry at 35 with ladder 30/25/20/15, SHORT entry at 65 with ladder
// 70/75/80/85, at most 4 scale-ins, 100 bars of history required.
func DefaultRSIScaleInConfig() RSIScaleInConfig {
	return RSIScaleInConfig{
		Period:           6,
		LongEntryLevel:   35,
		LongScaleLevels:  []float64{30, 25, 20, 15},
		ShortEntryLevel:  65,
		ShortScaleLevels: []float64{70, 75, 80, 85},
		MaxScaleIns:      4,
		MinBars:          100,
	}
}

// RSIScaleIn is a mean-reversion strategy with multi-level position
// averaging. LONG entries trigger on the RSI falling through the entry
// level, SHORT entries on rising through it; each further ladder level adds
// to the position with doubled volume (2x, 4x, 8x, 16x of the base unit).
// A position closes on the opposite entry level being crossed.
//
// The strategy keeps no internal state: the scale count and direction are
// reconstructed from the position snapshot on every call.
type RSIScaleIn struct {
	name   string
	config RSIScaleInConfig
	sizer  risk.Sizer
	live   *LiveSettings
	logger *logger.Logger
}

// NewRSIScaleIn creates the strategy with the given parameters and sizing
// collaborator.
func NewRSIScaleIn(name string, config RSIScaleInConfig, sizer risk.Sizer, log *logger.Logger) (*RSIScaleIn, error) {
	if name == "" {
		return nil, errors.New(errors.ErrCodeStrategyConfigError, "strategy name must not be empty")
	}

	if config.Period <= 0 {
		return nil, errors.Newf(errors.ErrCodeStrategyConfigError, "RSI period must be positive, got %d", config.Period)
	}

	if config.MinBars < 2 {
		return nil, errors.Newf(errors.ErrCodeStrategyConfigError, "minimum bars must be at least 2, got %d", config.MinBars)
	}

	if sizer == nil {
		return nil, errors.New(errors.ErrCodeStrategyConfigError, "position sizer is required")
	}

	log.Info("RSI scale-in strategy initialized",
		zap.String("strategy", name),
		zap.Int("rsi_period", config.Period),
		zap.Float64("long_entry_level", config.LongEntryLevel),
		zap.Float64s("long_scale_levels", config.LongScaleLevels),
		zap.Float64("short_entry_level", config.ShortEntryLevel),
		zap.Float64s("short_scale_levels", config.ShortScaleLevels),
		zap.Int("max_scale_ins", config.MaxScaleIns))

	return &RSIScaleIn{
		name:   name,
		config: config,
		sizer:  sizer,
		live:   NewLiveSettings(),
		logger: log,
	}, nil
}

// Name implements Strategy.
func (s *RSIScaleIn) Name() string {
	return s.name
}

// MinBars implements Strategy.
func (s *RSIScaleIn) MinBars() int {
	return s.config.MinBars
}

// Live implements Strategy.
func (s *RSIScaleIn) Live() *LiveSettings {
	return s.live
}

// Evaluate implements Strategy. Checks run in priority order: close the
// open position on an opposite-level crossing first, then initial entry
// (only when flat), then scale-in. At most one signal is emitted per call.
func (s *RSIScaleIn) Evaluate(data any, positions []types.Position, _ optional.Option[types.TradingContext]) types.Signal {
	window, err := types.NormalizeWindow(data)
	if err != nil {
		s.logger.Error("cannot normalize price window",
			zap.String("strategy", s.name),
			zap.Error(err))

		return types.NoSignal(s.name)
	}

	if len(window) < s.config.MinBars {
		s.logger.Debug("not enough bars for RSI evaluation",
			zap.String("strategy", s.name),
			zap.Int("bars", len(window)),
			zap.Int("min_bars", s.config.MinBars))

		return types.NoSignal(s.name)
	}

	rsi, err := indicator.RSI(window.Closes(), s.config.Period)
	if err != nil {
		s.logger.Error("RSI calculation failed",
			zap.String("strategy", s.name),
			zap.Error(err))

		return types.NoSignal(s.name)
	}

	currentRSI := indicator.Current(rsi)
	if math.IsNaN(currentRSI) {
		// Not enough smoothing history yet; expected during warm-up.
		s.logger.Debug("RSI value undefined", zap.String("strategy", s.name))

		return types.NoSignal(s.name)
	}

	last, _ := window.Last()
	entryPrice := decimal.NewFromFloat(last.Close)

	owned := s.ownedPositions(positions)

	// Close check has the highest priority: when it fires, no entry or
	// scale-in logic runs in the same call.
	if signal, ok := s.closeSignal(owned, rsi, currentRSI); ok {
		return signal
	}

	if len(owned) == 0 {
		if signal, ok := s.entrySignal(rsi, currentRSI, entryPrice); ok {
			return signal
		}

		return types.NoSignal(s.name)
	}

	if signal, ok := s.scaleInSignal(owned, rsi, currentRSI, entryPrice); ok {
		return signal
	}

	return types.NoSignal(s.name)
}

// ownedPositions filters the snapshot down to positions created by this
// strategy, keeping only the first position per direction.
func (s *RSIScaleIn) ownedPositions(positions []types.Position) []types.Position {
	var owned []types.Position

	seenLong := false
	seenShort := false

	for _, pos := range positions {
		if pos.Source != s.name {
			continue
		}

		switch pos.Direction {
		case types.DirectionLong:
			if seenLong {
				continue
			}

			seenLong = true
		case types.DirectionShort:
			if seenShort {
				continue
			}

			seenShort = true
		}

		owned = append(owned, pos)
	}

	return owned
}

// closeSignal checks the mean-reversion exit: an open LONG closes when the
// RSI rises through the SHORT entry level, an open SHORT closes when it
// falls through the LONG entry level.
func (s *RSIScaleIn) closeSignal(owned []types.Position, rsi []float64, currentRSI float64) (types.Signal, bool) {
	for _, pos := range owned {
		switch pos.Direction {
		case types.DirectionLong:
			if indicator.Crossed(rsi, s.config.ShortEntryLevel, indicator.CrossUp) {
				s.logger.Info("RSI crossed level upward, closing LONG position",
					zap.String("strategy", s.name),
					zap.Float64("level", s.config.ShortEntryLevel),
					zap.Float64("rsi", currentRSI))

				return types.NewCloseSignal(s.name, map[string]any{"rsi": currentRSI}), true
			}
		case types.DirectionShort:
			if indicator.Crossed(rsi, s.config.LongEntryLevel, indicator.CrossDown) {
				s.logger.Info("RSI crossed level downward, closing SHORT position",
					zap.String("strategy", s.name),
					zap.Float64("level", s.config.LongEntryLevel),
					zap.Float64("rsi", currentRSI))

				return types.NewCloseSignal(s.name, map[string]any{"rsi": currentRSI}), true
			}
		}
	}

	return types.Signal{}, false
}

// entrySignal checks the initial entry crossings from a flat state.
func (s *RSIScaleIn) entrySignal(rsi []float64, currentRSI float64, entryPrice decimal.Decimal) (types.Signal, bool) {
	var direction types.Direction

	switch {
	case indicator.Crossed(rsi, s.config.LongEntryLevel, indicator.CrossDown):
		direction = types.DirectionLong
	case indicator.Crossed(rsi, s.config.ShortEntryLevel, indicator.CrossUp):
		direction = types.DirectionShort
	default:
		return types.Signal{}, false
	}

	volume, err := s.sizer.CalculatePositionSize(entryPrice)
	if err != nil {
		s.logger.Error("position sizing failed",
			zap.String("strategy", s.name),
			zap.Error(err))

		return types.NoSignal(s.name), true
	}

	s.logger.Info("entry signal",
		zap.String("strategy", s.name),
		zap.String("direction", string(direction)),
		zap.Float64("rsi", currentRSI))

	// Exits are signal-driven only: no take-profit or stop-loss attached.
	signal := types.NewEntrySignal(direction, entryPrice, volume, nil, nil, s.name, map[string]any{
		"rsi":         currentRSI,
		"scale_count": 0,
		"entry_type":  "initial",
	})

	return signal, true
}

// scaleInSignal checks the ladder crossing for the next scale-in of each
// owned position.
func (s *RSIScaleIn) scaleInSignal(owned []types.Position, rsi []float64, currentRSI float64, entryPrice decimal.Decimal) (types.Signal, bool) {
	for _, pos := range owned {
		scaleCount := pos.ScaleInCount()
		if scaleCount >= s.config.MaxScaleIns {
			continue
		}

		var (
			ladder   []float64
			crossDir indicator.CrossDirection
		)

		switch pos.Direction {
		case types.DirectionLong:
			ladder = s.config.LongScaleLevels
			crossDir = indicator.CrossDown
		case types.DirectionShort:
			ladder = s.config.ShortScaleLevels
			crossDir = indicator.CrossUp
		default:
			continue
		}

		if scaleCount >= len(ladder) {
			continue
		}

		level := ladder[scaleCount]
		if !indicator.Crossed(rsi, level, crossDir) {
			continue
		}

		baseVolume, err := s.sizer.CalculatePositionSize(entryPrice)
		if err != nil {
			s.logger.Error("position sizing failed",
				zap.String("strategy", s.name),
				zap.Error(err))

			return types.NoSignal(s.name), true
		}

		// Each scale-in doubles relative to the base unit: 2x, 4x, 8x, 16x.
		multiplier := int64(1) << (scaleCount + 1)
		volume := baseVolume.Mul(decimal.NewFromInt(multiplier))

		s.logger.Info("scale-in signal",
			zap.String("strategy", s.name),
			zap.String("direction", string(pos.Direction)),
			zap.Int("scale_in_index", scaleCount),
			zap.Int64("multiplier", multiplier),
			zap.Float64("level", level),
			zap.Float64("rsi", currentRSI))

		signal := types.NewEntrySignal(pos.Direction, entryPrice, volume, nil, nil, s.name, map[string]any{
			"rsi":            currentRSI,
			"scale_count":    scaleCount + 1,
			"scale_in_index": scaleCount,
			"entry_type":     "scale_in",
			"multiplier":     multiplier,
		})

		return signal, true
	}

	return types.Signal{}, false
}
