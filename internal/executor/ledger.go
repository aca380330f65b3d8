package executor

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quantive-lab/pulse-trading/internal/types"
	"github.com/quantive-lab/pulse-trading/pkg/errors"
)

// Ledger is the in-memory position book of a replay. ENTRY signals open a
// position or append a scale-in order to the open one; CLOSE signals attach
// an exit order and mark the position closed. Positions keep their order
// history after closing so a replay can be audited.
type Ledger struct {
	symbol    string
	positions []types.Position
}

// NewLedger creates an empty ledger for the given symbol.
func NewLedger(symbol string) *Ledger {
	return &Ledger{
		symbol:    symbol,
		positions: nil,
	}
}

// Active returns the currently open positions. The slice is a copy; the
// decision engine must not be able to mutate the book.
func (l *Ledger) Active() []types.Position {
	var active []types.Position

	for _, pos := range l.positions {
		if pos.Status == types.PositionStatusActive {
			active = append(active, pos)
		}
	}

	return active
}

// All returns every position ever opened, including closed ones.
func (l *Ledger) All() []types.Position {
	out := make([]types.Position, len(l.positions))
	copy(out, l.positions)

	return out
}

// Apply mutates the book according to the signal. NO_SIGNAL is a no-op.
func (l *Ledger) Apply(signal types.Signal, at time.Time) error {
	switch signal.Type {
	case types.SignalTypeEntry:
		return l.applyEntry(signal, at)
	case types.SignalTypeClose:
		return l.applyClose(signal, at)
	case types.SignalTypeNoSignal:
		return nil
	default:
		return errors.Newf(errors.ErrCodeInvalidSignal, "unknown signal type %q", signal.Type)
	}
}

func (l *Ledger) applyEntry(signal types.Signal, at time.Time) error {
	if signal.Direction.IsNone() || signal.EntryPrice.IsNone() {
		return errors.New(errors.ErrCodeInvalidSignal, "entry signal without direction or entry price")
	}

	direction := signal.Direction.Unwrap()

	order := types.PositionOrder{
		ID:        uuid.New().String(),
		Type:      types.OrderTypeEntry,
		Price:     signal.EntryPrice.Unwrap(),
		Volume:    signal.Volume,
		Timestamp: at,
	}

	for i := range l.positions {
		pos := &l.positions[i]
		if pos.Status != types.PositionStatusActive || pos.Source != signal.Source || pos.Direction != direction {
			continue
		}

		pos.Orders = append(pos.Orders, order)

		return nil
	}

	l.positions = append(l.positions, types.Position{
		ID:        uuid.New().String(),
		Symbol:    l.symbol,
		Direction: direction,
		TickSize:  0,
		Source:    signal.Source,
		Status:    types.PositionStatusActive,
		Orders:    []types.PositionOrder{order},
	})

	return nil
}

func (l *Ledger) applyClose(signal types.Signal, at time.Time) error {
	price := decimal.Zero
	if signal.EntryPrice.IsSome() {
		price = signal.EntryPrice.Unwrap()
	}

	closed := false

	for i := range l.positions {
		pos := &l.positions[i]
		if pos.Status != types.PositionStatusActive || pos.Source != signal.Source {
			continue
		}

		pos.Orders = append(pos.Orders, types.PositionOrder{
			ID:        uuid.New().String(),
			Type:      types.OrderTypeExit,
			Price:     price,
			Volume:    positionVolume(pos),
			Timestamp: at,
		})
		pos.Status = types.PositionStatusClosed
		closed = true
	}

	if !closed {
		return errors.Newf(errors.ErrCodePositionNotFound, "no open position for source %q", signal.Source)
	}

	return nil
}

// positionVolume sums the entry order volumes of a position.
func positionVolume(pos *types.Position) decimal.Decimal {
	total := decimal.Zero

	for _, order := range pos.Orders {
		if order.Type == types.OrderTypeEntry {
			total = total.Add(order.Volume)
		}
	}

	return total
}
