package executor

import (
	"context"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/quantive-lab/pulse-trading/internal/logger"
	"github.com/quantive-lab/pulse-trading/internal/risk"
	"github.com/quantive-lab/pulse-trading/internal/strategy"
	"github.com/quantive-lab/pulse-trading/internal/types"
	"github.com/quantive-lab/pulse-trading/pkg/errors"
)

// scriptedStrategy replays a fixed list of signals, one per evaluation.
// Evaluations beyond the script return no signal.
type scriptedStrategy struct {
	name    string
	minBars int
	script  []types.Signal
	calls   int
	live    *strategy.LiveSettings
}

func newScriptedStrategy(name string, minBars int, script ...types.Signal) *scriptedStrategy {
	return &scriptedStrategy{
		name:    name,
		minBars: minBars,
		script:  script,
		live:    strategy.NewLiveSettings(),
	}
}

func (s *scriptedStrategy) Name() string                 { return s.name }
func (s *scriptedStrategy) MinBars() int                 { return s.minBars }
func (s *scriptedStrategy) Live() *strategy.LiveSettings { return s.live }

func (s *scriptedStrategy) Evaluate(_ any, _ []types.Position, _ optional.Option[types.TradingContext]) types.Signal {
	defer func() { s.calls++ }()

	if s.calls < len(s.script) {
		return s.script[s.calls]
	}

	return types.NoSignal(s.name)
}

type ExecutorTestSuite struct {
	suite.Suite
	log *logger.Logger
}

func TestExecutorSuite(t *testing.T) {
	suite.Run(t, new(ExecutorTestSuite))
}

func (suite *ExecutorTestSuite) SetupTest() {
	suite.log = logger.NewNopLogger()
}

func (suite *ExecutorTestSuite) window(n int) types.PriceWindow {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	window := make(types.PriceWindow, 0, n)

	for i := 0; i < n; i++ {
		price := 100 + float64(i)
		window = append(window, types.Bar{
			Time:   base.Add(time.Duration(i) * time.Minute),
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: 1,
		})
	}

	return window
}

func (suite *ExecutorTestSuite) entry(source string, volume float64, entryType string) types.Signal {
	return types.NewEntrySignal(types.DirectionLong,
		decimal.NewFromInt(100), decimal.NewFromFloat(volume), nil, nil, source,
		map[string]any{"entry_type": entryType})
}

func (suite *ExecutorTestSuite) newExecutor(strat strategy.Strategy, enforce bool) *Executor {
	exec, err := NewExecutor(strat, Config{
		Symbol:       "BTCUSDT",
		Balance:      decimal.NewFromInt(10000),
		EnforceGuard: enforce,
	}, suite.log)
	suite.Require().NoError(err)

	return exec
}

func (suite *ExecutorTestSuite) TestConstructorValidation() {
	_, err := NewExecutor(nil, Config{Symbol: "BTCUSDT"}, suite.log)
	suite.Error(err)

	_, err = NewExecutor(newScriptedStrategy("s", 1), Config{}, suite.log)
	suite.Error(err)
}

func (suite *ExecutorTestSuite) TestReplayLifecycle() {
	strat := newScriptedStrategy("s", 1,
		suite.entry("s", 1, "initial"),
		types.NoSignal("s"),
		suite.entry("s", 2, "scale_in"),
		types.NewCloseSignal("s", nil),
		suite.entry("s", 1, "initial"),
	)

	exec := suite.newExecutor(strat, false)

	result, err := exec.Run(context.Background(), suite.window(5))
	suite.NoError(err)

	suite.Equal(5, result.BarsProcessed)
	suite.Equal(2, result.Entries)
	suite.Equal(1, result.ScaleIns)
	suite.Equal(1, result.Closes)
	suite.Equal(1, result.OpenPositions)
	suite.Equal(1, result.ClosedPositions)

	positions := exec.Ledger().All()
	suite.Len(positions, 2)

	closed := positions[0]
	suite.Equal(types.PositionStatusClosed, closed.Status)
	suite.Equal(2, closed.EntryOrderCount())
	suite.Equal(1, closed.ScaleInCount())
	suite.Len(closed.Orders, 3)
	suite.Equal(types.OrderTypeExit, closed.Orders[2].Type)
	// The exit order carries the summed entry volume.
	suite.True(decimal.NewFromInt(3).Equal(closed.Orders[2].Volume))

	open := positions[1]
	suite.Equal(types.PositionStatusActive, open.Status)
	suite.Equal("BTCUSDT", open.Symbol)
	suite.NotEmpty(open.ID)
}

func (suite *ExecutorTestSuite) TestMinBarsWarmup() {
	strat := newScriptedStrategy("s", 3)
	exec := suite.newExecutor(strat, false)

	result, err := exec.Run(context.Background(), suite.window(5))
	suite.NoError(err)

	suite.Equal(5, result.BarsProcessed)
	// Bars one and two only warm up the window.
	suite.Equal(3, strat.calls)
}

func (suite *ExecutorTestSuite) TestGuardEnforcement() {
	strat := newScriptedStrategy("s", 1, suite.entry("s", 1, "initial"))
	exec := suite.newExecutor(strat, true)

	result, err := exec.Run(context.Background(), suite.window(3))
	suite.NoError(err)

	// Default flags have live trading disabled, so the entry never lands.
	suite.Equal(1, result.Rejections)
	suite.Equal(1, result.RejectionReasons["strategy_live_disabled"])
	suite.Equal(0, result.Entries)
	suite.Empty(exec.Ledger().All())
}

func (suite *ExecutorTestSuite) TestGuardStatisticsWithoutEnforcement() {
	strat := newScriptedStrategy("s", 1, suite.entry("s", 1, "initial"))
	exec := suite.newExecutor(strat, false)

	result, err := exec.Run(context.Background(), suite.window(3))
	suite.NoError(err)

	// The rejection is recorded for reporting but the simulation still
	// applies the signal.
	suite.Equal(0, result.Rejections)
	suite.Equal(1, result.RejectionReasons["strategy_live_disabled"])
	suite.Equal(1, result.Entries)
	suite.Len(exec.Ledger().All(), 1)
}

func (suite *ExecutorTestSuite) TestWindowShorterThanMinBars() {
	strat := newScriptedStrategy("s", 10)
	exec := suite.newExecutor(strat, false)

	_, err := exec.Run(context.Background(), suite.window(5))
	suite.Error(err)
	suite.True(errors.IsInsufficientDataError(err))
	suite.Equal(0, strat.calls)
}

func (suite *ExecutorTestSuite) TestInvalidWindowRejected() {
	strat := newScriptedStrategy("s", 1)
	exec := suite.newExecutor(strat, false)

	window := suite.window(2)
	window[1].Time = window[0].Time

	_, err := exec.Run(context.Background(), window)
	suite.Error(err)
}

func (suite *ExecutorTestSuite) TestCancelledContext() {
	strat := newScriptedStrategy("s", 1)
	exec := suite.newExecutor(strat, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exec.Run(ctx, suite.window(3))
	suite.Error(err)
}

func (suite *ExecutorTestSuite) TestProgressCallback() {
	strat := newScriptedStrategy("s", 1)

	var reported []int

	exec, err := NewExecutor(strat, Config{
		Symbol:  "BTCUSDT",
		Balance: decimal.NewFromInt(10000),
		OnProgress: func(current, total int) {
			suite.Equal(4, total)
			reported = append(reported, current)
		},
	}, suite.log)
	suite.Require().NoError(err)

	_, err = exec.Run(context.Background(), suite.window(4))
	suite.NoError(err)
	suite.Equal([]int{1, 2, 3, 4}, reported)
}

func (suite *ExecutorTestSuite) TestRSIScaleInReplayEntersOnce() {
	cfg := strategy.DefaultRSIScaleInConfig()
	cfg.MinBars = 20

	sizer, err := risk.NewFixedFractionSizer(decimal.NewFromInt(10000), decimal.NewFromFloat(0.02))
	suite.Require().NoError(err)

	strat, err := strategy.NewRSIScaleIn("rsi_scale_in", cfg, sizer, suite.log)
	suite.Require().NoError(err)

	// Forty rising bars pin the RSI at 100; the ten-point drop on the next
	// bar lands it at 20, through the long entry level. The flat tail holds
	// the index there, so no later bar crosses an entry, ladder, or close
	// level and the replay opens exactly one position.
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	window := make(types.PriceWindow, 0, 150)

	for i := 0; i < 150; i++ {
		price := 1029.0
		if i < 40 {
			price = 1000 + float64(i)
		}

		window = append(window, types.Bar{
			Time:   base.Add(time.Duration(i) * time.Minute),
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: 1,
		})
	}

	exec := suite.newExecutor(strat, false)

	result, err := exec.Run(context.Background(), window)
	suite.NoError(err)

	suite.Equal(150, result.BarsProcessed)
	suite.Equal(1, result.Entries)
	suite.Equal(0, result.ScaleIns)
	suite.Equal(0, result.Closes)
	suite.Equal(1, result.OpenPositions)
	suite.Equal(0, result.ClosedPositions)

	positions := exec.Ledger().All()
	suite.Require().Len(positions, 1)

	pos := positions[0]
	suite.Equal(types.PositionStatusActive, pos.Status)
	suite.Equal(types.DirectionLong, pos.Direction)
	suite.Equal("rsi_scale_in", pos.Source)
	suite.Require().Len(pos.Orders, 1)
	suite.Equal(types.OrderTypeEntry, pos.Orders[0].Type)
	// The single entry order is stamped with the crossing bar's time.
	suite.Equal(window[40].Time, pos.Orders[0].Timestamp)
}

func (suite *ExecutorTestSuite) TestCloseWithoutPositionFails() {
	strat := newScriptedStrategy("s", 1, types.NewCloseSignal("s", nil))
	exec := suite.newExecutor(strat, false)

	_, err := exec.Run(context.Background(), suite.window(2))
	suite.Error(err)
}
