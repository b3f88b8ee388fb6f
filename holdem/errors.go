package holdem

import (
	"errors"
	"fmt"

	"holdem-rooms/card"
)

// Error categories. Every concrete error below wraps exactly one of them.
var (
	ErrValidation    = errors.New("validation error")
	ErrInsufficient  = errors.New("insufficient resource")
	ErrIllegalAction = errors.New("illegal action")
	ErrNotFound      = errors.New("not found")
)

var (
	ErrInvalidSettings = fmt.Errorf("%w: invalid room settings", ErrValidation)
	ErrInvalidSeat     = fmt.Errorf("%w: invalid seat", ErrValidation)
	ErrInvalidName     = fmt.Errorf("%w: player name is required", ErrValidation)
	ErrUnknownAction   = fmt.Errorf("%w: unknown action", ErrValidation)
	ErrInvalidAmount   = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrHandSize        = fmt.Errorf("%w: hand must contain exactly 5 cards", ErrValidation)
	ErrCorruptSnapshot = fmt.Errorf("%w: corrupt snapshot", ErrValidation)

	ErrTableFull        = fmt.Errorf("%w: table is full", ErrInsufficient)
	ErrNotEnoughPlayers = fmt.Errorf("%w: need at least 2 players to start", ErrInsufficient)

	ErrOutOfTurn      = fmt.Errorf("%w: not your turn", ErrIllegalAction)
	ErrCannotAct      = fmt.Errorf("%w: cannot act", ErrIllegalAction)
	ErrIllegalCheck   = fmt.Errorf("%w: cannot check, must call or raise", ErrIllegalAction)
	ErrWrongPhase     = fmt.Errorf("%w: wrong phase", ErrIllegalAction)
	ErrHandInProgress = fmt.Errorf("%w: hand in progress", ErrIllegalAction)
	ErrSeatTaken      = fmt.Errorf("%w: seat is taken", ErrIllegalAction)
	ErrNameTaken      = fmt.Errorf("%w: name already taken", ErrIllegalAction)
	ErrNotEligible    = fmt.Errorf("%w: not eligible for run-twice choice", ErrIllegalAction)
	ErrAlreadyChosen  = fmt.Errorf("%w: run-twice choice already made", ErrIllegalAction)
	ErrStackLimit     = fmt.Errorf("%w: stack limit exceeded", ErrIllegalAction)

	ErrPlayerNotFound = fmt.Errorf("%w: player not found", ErrNotFound)
)

// MinRaiseError rejects a raise below the minimum increment.
type MinRaiseError struct {
	Min int64
}

func (e *MinRaiseError) Error() string { return fmt.Sprintf("minimum raise to %d", e.Min) }

func (e *MinRaiseError) Unwrap() error { return ErrIllegalAction }

// IsValidation also matches malformed cards from the card package.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, card.ErrInvalidValue)
}

// IsInsufficient also matches deck underflow.
func IsInsufficient(err error) bool {
	return errors.Is(err, ErrInsufficient) || errors.Is(err, card.ErrInsufficientCards)
}
