package museum

import (
	"errors"
	"fmt"
)

// Accessors reads host state the resolver depends on. None of them mutate
// anything.
type Accessors interface {
	// GameID maps a museum game index to its save-tracked game id.
	GameID(gameIndex uint16) uint8
	// GameRank is the current save slot's rank for a game id.
	GameRank(gameID uint8) GameRank
	// RowForGame is the index of the row owning gameIndex, or -1.
	RowForGame(gameIndex uint16) int
	// GateState looks up the state of a gate by its category key.
	GateState(high uint32, low uint32) GateState
}

// AccessorFuncs adapts plain functions to Accessors.
type AccessorFuncs struct {
	GameIDFunc     func(gameIndex uint16) uint8
	GameRankFunc   func(gameID uint8) GameRank
	RowForGameFunc func(gameIndex uint16) int
	GateStateFunc  func(high uint32, low uint32) GateState
}

func (f AccessorFuncs) GameID(gameIndex uint16) uint8 { return f.GameIDFunc(gameIndex) }
func (f AccessorFuncs) GameRank(gameID uint8) GameRank { return f.GameRankFunc(gameID) }
func (f AccessorFuncs) RowForGame(gameIndex uint16) int { return f.RowForGameFunc(gameIndex) }
func (f AccessorFuncs) GateState(high, low uint32) GateState { return f.GateStateFunc(high, low) }

type Direction uint32

const (
	DirectionUp   Direction = 0
	DirectionDown Direction = 1
)

func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	default:
		return fmt.Sprintf("Direction(%d)", uint32(d))
	}
}

var (
	ErrOutOfRange       = errors.New("row index out of range")
	ErrInvalidDirection = errors.New("invalid search direction")
)

// NoRow is what the host sees when a search could not run.
const NoRow int32 = -1

// Default visibility thresholds.
const (
	DefaultGateIndexStart   = 0x68
	DefaultGateVisibleAbove = GateState(4)
)

type Resolver struct {
	Rows      Table
	Accessors Accessors

	// Game indices at or above this are gates.
	GateIndexStart uint16
	// A gate is visible once its state is strictly above this. What the
	// values at or below it mean is not known.
	GateVisibleAbove GateState
}

func NewResolver(rows Table, acc Accessors) *Resolver {
	return &Resolver{
		Rows:             rows,
		Accessors:        acc,
		GateIndexStart:   DefaultGateIndexStart,
		GateVisibleAbove: DefaultGateVisibleAbove,
	}
}

func (r *Resolver) GameIsVisible(gameIndex uint16) bool {
	if gameIndex >= r.GateIndexStart {
		rowIndex := r.Accessors.RowForGame(gameIndex)
		if rowIndex < 0 || rowIndex >= len(r.Rows) {
			return false
		}
		row := &r.Rows[rowIndex]
		return r.Accessors.GateState(row.CategoryHigh, row.CategoryLow) > r.GateVisibleAbove
	}
	return r.Accessors.GameRank(r.Accessors.GameID(gameIndex)) >= GameRankUnfinishedShop
}

// IsVisible reports whether any of the row's active games is visible. A row
// without columns never is.
func (r *Resolver) IsVisible(row *Row) bool {
	if row.ColumnCount == 0 {
		return false
	}
	for _, gameIndex := range row.ActiveColumns() {
		if r.GameIsVisible(gameIndex) {
			return true
		}
	}
	return false
}

func (r *Resolver) RowIsVisible(index int) bool {
	if index < 0 || index >= len(r.Rows) {
		return false
	}
	return r.IsVisible(&r.Rows[index])
}

type searchState int

const (
	searchScanning searchState = iota
	searchExhaustedForward
	searchExhaustedBackward
)

// NextRow finds the next visible row from current in direction dir.
// current may be len(Rows), meaning one past the last row.
//
// When nothing is found scrolling up the result is 0, whether or not row 0
// is visible. Scrolling down wraps to the last visible row, or 0 if there is
// none.
func (r *Resolver) NextRow(current int, dir Direction) (int, error) {
	if current < 0 || uint64(current) > uint64(len(r.Rows)) {
		return 0, fmt.Errorf("%w: %d not in [0, %d]", ErrOutOfRange, current, len(r.Rows))
	}
	n := uint32(len(r.Rows))
	if dir != DirectionUp && dir != DirectionDown {
		return 0, fmt.Errorf("%w: %d", ErrInvalidDirection, uint32(dir))
	}

	i := uint32(current)
	state := searchScanning
	for state == searchScanning {
		switch dir {
		case DirectionUp:
			i++
		case DirectionDown:
			// Wraps below zero, which lands outside [0, n).
			i--
		}

		if i >= n {
			if dir == DirectionUp {
				state = searchExhaustedForward
			} else {
				state = searchExhaustedBackward
			}
			break
		}

		if r.IsVisible(&r.Rows[i]) {
			return int(i), nil
		}
	}

	if state == searchExhaustedForward {
		return 0, nil
	}

	for j := int(n) - 1; j >= 0; j-- {
		if r.IsVisible(&r.Rows[j]) {
			return j, nil
		}
	}
	return 0, nil
}

// HostNextRow is NextRow with the host's calling convention: raw integer
// arguments, and NoRow instead of an error.
func (r *Resolver) HostNextRow(current uint32, dir uint32) int32 {
	if uint64(current) > uint64(len(r.Rows)) {
		return NoRow
	}
	next, err := r.NextRow(int(current), Direction(dir))
	if err != nil {
		return NoRow
	}
	return int32(next)
}
