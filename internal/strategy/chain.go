package strategy

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantive-lab/pulse-trading/internal/logger"
	"github.com/quantive-lab/pulse-trading/internal/types"
)

// ChainContext is the accumulator threaded through every condition of a
// chain run. Conditions stage signal ingredients (direction, volume, exit
// levels, metadata) here; downstream signal construction reads them after
// the whole chain passed. Values is the free-form side channel for
// condition-to-condition communication.
type ChainContext struct {
	Positions   []types.Position
	Trading     optional.Option[types.TradingContext]
	Direction   optional.Option[types.Direction]
	Volume      optional.Option[decimal.Decimal]
	TakeProfits []types.PriceLevel
	StopLosses  []types.PriceLevel
	Metadata    map[string]any
	Values      map[string]any
}

// Condition is one predicate of a chain. Eval may stage results into the
// context; returning an error marks the condition as faulted, which aborts
// the run without crashing the chain.
type Condition struct {
	// Name identifies the condition in logs.
	Name string
	Eval func(window types.PriceWindow, ctx *ChainContext) (bool, error)
}

// ChainStrategy evaluates an ordered list of conditions over a price window
// and emits an ENTRY signal when every condition passes. Evaluation is
// strictly in insertion order and stops at the first falsy or faulting
// condition: conditions may have side effects in the context that later
// conditions depend on, so partial evaluation never continues past a
// failure.
type ChainStrategy struct {
	name       string
	minBars    int
	conditions []Condition
	live       *LiveSettings
	logger     *logger.Logger
}

// NewChainStrategy creates an empty chain with safe live defaults.
func NewChainStrategy(name string, minBars int, log *logger.Logger) *ChainStrategy {
	return &ChainStrategy{
		name:       name,
		minBars:    minBars,
		conditions: nil,
		live:       NewLiveSettings(),
		logger:     log,
	}
}

// Name implements Strategy.
func (s *ChainStrategy) Name() string {
	return s.name
}

// MinBars implements Strategy.
func (s *ChainStrategy) MinBars() int {
	return s.minBars
}

// Live implements Strategy.
func (s *ChainStrategy) Live() *LiveSettings {
	return s.live
}

// AddCondition appends a condition to the end of the chain.
func (s *ChainStrategy) AddCondition(cond Condition) {
	s.conditions = append(s.conditions, cond)
}

// InsertCondition inserts a condition at the given index, shifting later
// conditions back. Out-of-range indexes clamp to the chain bounds.
func (s *ChainStrategy) InsertCondition(index int, cond Condition) {
	if index < 0 {
		index = 0
	}

	if index > len(s.conditions) {
		index = len(s.conditions)
	}

	s.conditions = append(s.conditions, Condition{})
	copy(s.conditions[index+1:], s.conditions[index:])
	s.conditions[index] = cond
}

// RemoveCondition removes the first condition with the given name.
// Removing a name that is not in the chain is a no-op.
func (s *ChainStrategy) RemoveCondition(name string) {
	for i, cond := range s.conditions {
		if cond.Name == name {
			s.conditions = append(s.conditions[:i], s.conditions[i+1:]...)

			return
		}
	}

	s.logger.Debug("attempted to remove a condition that is not in the chain",
		zap.String("strategy", s.name),
		zap.String("condition", name))
}

// ClearConditions empties the chain.
func (s *ChainStrategy) ClearConditions() {
	s.conditions = nil
}

// Conditions returns the names of the chained conditions in evaluation order.
func (s *ChainStrategy) Conditions() []string {
	names := make([]string, len(s.conditions))
	for i, cond := range s.conditions {
		names[i] = cond.Name
	}

	return names
}

// Evaluate implements Strategy. It never fails: unparseable input, a faulty
// condition, or an empty window all degrade to a NO_SIGNAL result.
func (s *ChainStrategy) Evaluate(data any, positions []types.Position, tradingCtx optional.Option[types.TradingContext]) types.Signal {
	window, err := types.NormalizeWindow(data)
	if err != nil {
		s.logger.Error("cannot normalize price window",
			zap.String("strategy", s.name),
			zap.Error(err))

		return types.NoSignal(s.name)
	}

	ctx := &ChainContext{
		Positions: positions,
		Trading:   tradingCtx,
		Direction: optional.None[types.Direction](),
		Volume:    optional.None[decimal.Decimal](),
		Metadata:  map[string]any{},
		Values:    map[string]any{},
	}

	for _, cond := range s.conditions {
		ok, err := cond.Eval(window, ctx)
		if err != nil {
			// A faulting condition is a strategy-authoring bug; it must
			// never take the chain down with it.
			s.logger.Error("condition faulted",
				zap.String("strategy", s.name),
				zap.String("condition", cond.Name),
				zap.Error(err))

			return types.NoSignal(s.name)
		}

		if !ok {
			s.logger.Debug("condition not met",
				zap.String("strategy", s.name),
				zap.String("condition", cond.Name))

			return types.NoSignal(s.name)
		}
	}

	last, ok := window.Last()
	if !ok {
		s.logger.Error("cannot take close price for signal construction",
			zap.String("strategy", s.name))

		return types.NoSignal(s.name)
	}

	entryPrice := decimal.NewFromFloat(last.Close)
	volume := ctx.Volume.TakeOr(decimal.Zero)
	direction := ctx.Direction.TakeOr(types.DirectionLong)

	signal := types.NewEntrySignal(direction, entryPrice, volume,
		ctx.TakeProfits, ctx.StopLosses, s.name, ctx.Metadata)

	// Snapshot the live flags for downstream audit.
	signal.Metadata["strategy_live"] = s.live.Snapshot()

	return signal
}
