package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/quantive-lab/pulse-trading/pkg/errors"
)

type SignalType string

const (
	// SignalTypeNoSignal is emitted when no trade decision applies to the current bar.
	SignalTypeNoSignal SignalType = "NO_SIGNAL"
	// SignalTypeEntry opens a new position or scales into an existing one.
	SignalTypeEntry SignalType = "ENTRY"
	// SignalTypeClose closes the position owned by the emitting strategy.
	SignalTypeClose SignalType = "CLOSE"
)

type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// PriceLevel is a take-profit or stop-loss level attached to a signal.
type PriceLevel struct {
	Price  decimal.Decimal `yaml:"price" json:"price"`
	Volume decimal.Decimal `yaml:"volume" json:"volume"`
	Flags  []string        `yaml:"flags" json:"flags,omitempty"`
}

// Signal is the sole output of a strategy evaluation. It is consumed by an
// external executor which is responsible for order placement and position
// mutation.
type Signal struct {
	Type        SignalType                       `yaml:"type" json:"type" validate:"required,oneof=NO_SIGNAL ENTRY CLOSE"`
	Direction   optional.Option[Direction]       `yaml:"direction" json:"direction"`
	EntryPrice  optional.Option[decimal.Decimal] `yaml:"entry_price" json:"entry_price"`
	Volume      decimal.Decimal                  `yaml:"volume" json:"volume"`
	TakeProfits []PriceLevel                     `yaml:"take_profits" json:"take_profits,omitempty"`
	StopLosses  []PriceLevel                     `yaml:"stop_losses" json:"stop_losses,omitempty"`
	// Source is the identifier of the strategy that produced the signal.
	Source string `yaml:"source" json:"source" validate:"required"`
	// Metadata is an open key-value bag stamped by the strategy for audit/replay.
	Metadata map[string]any `yaml:"metadata" json:"metadata,omitempty"`
}

// NoSignal creates a signal carrying no trade decision.
func NoSignal(source string) Signal {
	return Signal{
		Type:       SignalTypeNoSignal,
		Direction:  optional.None[Direction](),
		EntryPrice: optional.None[decimal.Decimal](),
		Volume:     decimal.Zero,
		Source:     source,
		Metadata:   map[string]any{},
	}
}

// NewEntrySignal creates an ENTRY signal. Nil metadata is replaced with an
// empty bag so callers can always stamp additional keys.
func NewEntrySignal(direction Direction, entryPrice decimal.Decimal, volume decimal.Decimal,
	takeProfits []PriceLevel, stopLosses []PriceLevel, source string, metadata map[string]any) Signal {
	if metadata == nil {
		metadata = map[string]any{}
	}

	return Signal{
		Type:        SignalTypeEntry,
		Direction:   optional.Some(direction),
		EntryPrice:  optional.Some(entryPrice),
		Volume:      volume,
		TakeProfits: takeProfits,
		StopLosses:  stopLosses,
		Source:      source,
		Metadata:    metadata,
	}
}

// NewCloseSignal creates a CLOSE signal for the position owned by source.
func NewCloseSignal(source string, metadata map[string]any) Signal {
	if metadata == nil {
		metadata = map[string]any{}
	}

	return Signal{
		Type:       SignalTypeClose,
		Direction:  optional.None[Direction](),
		EntryPrice: optional.None[decimal.Decimal](),
		Volume:     decimal.Zero,
		Source:     source,
		Metadata:   metadata,
	}
}

// IsActionable reports whether the signal requires executor attention.
func (s Signal) IsActionable() bool {
	return s.Type == SignalTypeEntry || s.Type == SignalTypeClose
}

// Validate checks the struct tags plus the cross-field invariant:
// direction and entry price are present iff the signal is an ENTRY.
func (s *Signal) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidSignal, "invalid signal", err)
	}

	switch s.Type {
	case SignalTypeEntry:
		if s.Direction.IsNone() || s.EntryPrice.IsNone() {
			return errors.New(errors.ErrCodeInvalidSignal, "entry signal requires direction and entry price")
		}
	case SignalTypeNoSignal, SignalTypeClose:
		if s.Direction.IsSome() || s.EntryPrice.IsSome() {
			return errors.Newf(errors.ErrCodeInvalidSignal, "%s signal must not carry direction or entry price", s.Type)
		}
	}

	return nil
}
