package room

import (
	"errors"

	"go.uber.org/zap"

	"holdem-rooms/holdem"
)

// armTurnTimerLocked starts the decision clock for the player to act, or
// for the outstanding run-it-twice votes. A running timer is kept while the
// same decision is still pending.
func (r *Room) armTurnTimerLocked() {
	key, ok := r.pendingDecisionLocked()
	if !ok || r.actionTimeout <= 0 || r.closed {
		r.disarmTurnTimerLocked()
		return
	}
	if r.turnTimer != nil && r.turn == key {
		return
	}
	r.disarmTurnTimerLocked()
	r.turn = key
	r.turnTimer = r.clock.AfterFunc(r.actionTimeout, func() {
		err := r.SubmitEvent(Event{Type: EventTimeout, turn: key})
		if err != nil && !errors.Is(err, ErrRoomClosed) {
			r.log.Warn("turn timeout failed", zap.Int("seat", key.seat), zap.Error(err))
		}
	}, "room", "turn")
}

func (r *Room) pendingDecisionLocked() (turnKey, bool) {
	phase := r.table.Phase()
	switch {
	case phase.Betting() && r.table.ActionSeat() != holdem.NoSeat:
		return turnKey{
			hand: r.table.HandNumber(),
			seat: r.table.ActionSeat(),
			step: len(r.table.Actions()),
		}, true
	case phase == holdem.PhaseWaitingRunTwice:
		return turnKey{
			hand: r.table.HandNumber(),
			seat: holdem.NoSeat,
			step: len(r.table.RunTwicePending()),
		}, true
	}
	return turnKey{}, false
}

func (r *Room) disarmTurnTimerLocked() {
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
	r.turn = turnKey{}
}

// handleTimeout auto-checks when checking is legal and folds otherwise.
// An expired run-it-twice vote counts as a decline.
func (r *Room) handleTimeout(fx *effects, key turnKey) error {
	if r.turnTimer == nil || key != r.turn {
		return nil
	}
	r.turnTimer = nil
	r.turn = turnKey{}
	if current, ok := r.pendingDecisionLocked(); !ok || current != key {
		return nil
	}

	if key.seat == holdem.NoSeat {
		// 一票拒绝即只发一次牌
		if pending := r.table.RunTwicePending(); len(pending) > 0 {
			r.log.Info("run-twice vote timeout", zap.String("player", pending[0]))
			if err := r.chooseLocked(pending[0], false); err != nil {
				return err
			}
		}
		r.afterChangeLocked(fx)
		return nil
	}

	name := r.nameAtLocked(key.seat)
	kind := holdem.ActionFold
	for _, va := range r.table.ValidActions(name) {
		if va.Kind == holdem.ActionCheck {
			kind = holdem.ActionCheck
			break
		}
	}
	r.log.Info("action timeout", zap.String("player", name), zap.Int("seat", key.seat), zap.Stringer("auto", kind))
	if err := r.actLocked(name, kind, 0, true); err != nil {
		return err
	}
	r.afterChangeLocked(fx)
	return nil
}
