// Package executor replays a strategy bar by bar over stored candle history
// and maintains the resulting position book.
package executor

import (
	"context"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantive-lab/pulse-trading/internal/guard"
	"github.com/quantive-lab/pulse-trading/internal/logger"
	"github.com/quantive-lab/pulse-trading/internal/strategy"
	"github.com/quantive-lab/pulse-trading/internal/types"
	"github.com/quantive-lab/pulse-trading/pkg/errors"
)

// OnProgress reports replay progress after each processed bar.
type OnProgress func(current int, total int)

// Config parameterizes a replay run.
type Config struct {
	// Symbol names the instrument; it is stamped on positions and given to
	// the strategy through the trading context.
	Symbol string
	// Balance is the simulated account balance exposed to the strategy and
	// the guard.
	Balance decimal.Decimal
	// EnforceGuard routes every actionable signal through the live guard;
	// rejected signals are counted instead of applied. When false the guard
	// is still consulted but only for the rejection statistics.
	EnforceGuard bool
	// OnProgress is optional.
	OnProgress OnProgress
}

// Result summarizes a replay.
type Result struct {
	BarsProcessed    int            `json:"bars_processed"`
	Entries          int            `json:"entries"`
	ScaleIns         int            `json:"scale_ins"`
	Closes           int            `json:"closes"`
	Rejections       int            `json:"rejections"`
	RejectionReasons map[string]int `json:"rejection_reasons"`
	OpenPositions    int            `json:"open_positions"`
	ClosedPositions  int            `json:"closed_positions"`
}

// Executor drives one strategy over one symbol's bar history.
type Executor struct {
	strategy strategy.Strategy
	config   Config
	ledger   *Ledger
	logger   *logger.Logger
}

// NewExecutor creates a replay executor.
func NewExecutor(strat strategy.Strategy, config Config, log *logger.Logger) (*Executor, error) {
	if strat == nil {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "strategy is required")
	}

	if config.Symbol == "" {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "symbol is required")
	}

	return &Executor{
		strategy: strat,
		config:   config,
		ledger:   NewLedger(config.Symbol),
		logger:   log,
	}, nil
}

// Ledger exposes the position book, mostly for inspection after a run.
func (e *Executor) Ledger() *Ledger {
	return e.ledger
}

// Run replays the window one bar at a time: at bar i the strategy sees the
// prefix ending at i, the currently open positions, and the trading
// context. The first MinBars-1 bars only warm the window up.
func (e *Executor) Run(ctx context.Context, window types.PriceWindow) (Result, error) {
	if err := window.Validate(); err != nil {
		return Result{}, err
	}

	if len(window) < e.strategy.MinBars() {
		return Result{}, errors.NewInsufficientDataErrorf(e.strategy.MinBars(), len(window), e.config.Symbol,
			"window has %d bars, strategy %s needs at least %d", len(window), e.strategy.Name(), e.strategy.MinBars())
	}

	result := Result{
		RejectionReasons: make(map[string]int),
	}

	tradingCtx := optional.Some(types.TradingContext{
		Symbol:           e.config.Symbol,
		AvailableBalance: optional.Some(e.config.Balance),
	})

	total := len(window)

	for i := range window {
		if err := ctx.Err(); err != nil {
			return result, errors.Wrap(errors.ErrCodeExecutionRejected, "replay cancelled", err)
		}

		result.BarsProcessed++

		if i+1 < e.strategy.MinBars() {
			e.reportProgress(i+1, total)

			continue
		}

		signal := e.strategy.Evaluate(window[:i+1], e.ledger.Active(), tradingCtx)
		if err := e.processSignal(signal, window[i], &result); err != nil {
			return result, err
		}

		e.reportProgress(i+1, total)
	}

	result.OpenPositions = len(e.ledger.Active())
	result.ClosedPositions = len(e.ledger.All()) - result.OpenPositions

	e.logger.Info("replay finished",
		zap.String("symbol", e.config.Symbol),
		zap.String("strategy", e.strategy.Name()),
		zap.Int("bars", result.BarsProcessed),
		zap.Int("entries", result.Entries),
		zap.Int("scale_ins", result.ScaleIns),
		zap.Int("closes", result.Closes),
		zap.Int("rejections", result.Rejections))

	return result, nil
}

func (e *Executor) processSignal(signal types.Signal, bar types.Bar, result *Result) error {
	if !signal.IsActionable() {
		return nil
	}

	tradingCtx := optional.Some(types.TradingContext{
		Symbol:           e.config.Symbol,
		AvailableBalance: optional.Some(e.config.Balance),
	})

	allowed, reason := guard.CanExecute(e.strategy.Live(), signal, e.ledger.Active(), tradingCtx)
	if !allowed {
		result.RejectionReasons[reason]++

		if e.config.EnforceGuard {
			result.Rejections++

			e.logger.Debug("signal rejected by guard",
				zap.String("strategy", signal.Source),
				zap.String("reason", reason))

			return nil
		}
	}

	if err := e.ledger.Apply(signal, bar.Time); err != nil {
		return err
	}

	switch signal.Type {
	case types.SignalTypeEntry:
		if entryType, ok := signal.Metadata["entry_type"].(string); ok && entryType == "scale_in" {
			result.ScaleIns++
		} else {
			result.Entries++
		}
	case types.SignalTypeClose:
		result.Closes++
	case types.SignalTypeNoSignal:
	}

	return nil
}

func (e *Executor) reportProgress(current, total int) {
	if e.config.OnProgress != nil {
		e.config.OnProgress(current, total)
	}
}
