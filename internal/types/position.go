package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

type PositionStatus string

const (
	PositionStatusPending PositionStatus = "PENDING"
	PositionStatusActive  PositionStatus = "ACTIVE"
	PositionStatusClosed  PositionStatus = "CLOSED"
)

type OrderType string

const (
	OrderTypeEntry OrderType = "ENTRY"
	OrderTypeExit  OrderType = "EXIT"
)

// PositionOrder is one order attached to a position. Scale-ins append
// additional ENTRY orders to the same position.
type PositionOrder struct {
	ID        string          `yaml:"id" json:"id"`
	Type      OrderType       `yaml:"type" json:"type"`
	Price     decimal.Decimal `yaml:"price" json:"price"`
	Volume    decimal.Decimal `yaml:"volume" json:"volume"`
	Timestamp time.Time       `yaml:"timestamp" json:"timestamp"`
}

// Position is a snapshot of an open position. The decision engine only
// reads positions; creation and mutation belong to the executor.
type Position struct {
	ID        string    `yaml:"id" json:"id"`
	Symbol    string    `yaml:"symbol" json:"symbol"`
	Direction Direction `yaml:"direction" json:"direction"`
	TickSize  float64   `yaml:"tick_size" json:"tick_size"`
	// Source is the identifier of the strategy that owns the position.
	Source string          `yaml:"source" json:"source"`
	Status PositionStatus  `yaml:"status" json:"status"`
	Orders []PositionOrder `yaml:"orders" json:"orders"`
}

// EntryOrderCount returns the number of ENTRY orders attached to the position.
func (p *Position) EntryOrderCount() int {
	count := 0

	for _, order := range p.Orders {
		if order.Type == OrderTypeEntry {
			count++
		}
	}

	return count
}

// ScaleInCount returns how many scale-ins the position already has:
// the number of ENTRY orders beyond the initial one, never negative.
func (p *Position) ScaleInCount() int {
	count := p.EntryOrderCount() - 1
	if count < 0 {
		return 0
	}

	return count
}

// TradingContext carries the per-evaluation execution environment supplied
// by the orchestrator: the traded symbol and the available account balance.
type TradingContext struct {
	Symbol           string                           `yaml:"symbol" json:"symbol"`
	AvailableBalance optional.Option[decimal.Decimal] `yaml:"available_balance" json:"available_balance"`
}
