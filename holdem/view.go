package holdem

import (
	"holdem-rooms/card"
)

// ValidAction is one legal move for the player to act. Amount is the call
// or all-in size. Min and Max bound a raise-to total.
type ValidAction struct {
	Kind   ActionKind `json:"action"`
	Amount int64      `json:"amount,omitempty"`
	Min    int64      `json:"min,omitempty"`
	Max    int64      `json:"max,omitempty"`
}

// ValidActions lists the legal moves for name. It is empty unless name is
// the player to act.
func (t *Table) ValidActions(name string) []ValidAction {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.validActionsLocked(name)
}

func (t *Table) validActionsLocked(name string) []ValidAction {
	p := t.playerByNameLocked(name)
	if p == nil || !t.phase.Betting() || p.seat != t.actionSeat || !p.canAct() {
		return []ValidAction{}
	}

	out := []ValidAction{{Kind: ActionFold}}
	toCall := t.currentBet - p.bet
	if toCall <= 0 {
		out = append(out, ValidAction{Kind: ActionCheck})
	} else {
		out = append(out, ValidAction{Kind: ActionCall, Amount: min(toCall, p.stack)})
	}
	if p.stack > toCall {
		maxBet := p.bet + p.stack
		out = append(out, ValidAction{
			Kind: ActionRaise,
			Min:  min(t.currentBet+t.lastRaise, maxBet),
			Max:  maxBet,
		})
	}
	if p.stack > 0 {
		out = append(out, ValidAction{Kind: ActionAllIn, Amount: p.stack})
	}
	return out
}

// RunTwiceView is the pending run-it-twice vote.
type RunTwiceView struct {
	Eligible   []string `json:"eligible_players"`
	WaitingFor []string `json:"waiting_for"`
}

// GameView is the state one observer is allowed to see.
type GameView struct {
	RoomID     string        `json:"room_id"`
	Phase      Phase         `json:"phase"`
	HandNumber int           `json:"hand_number"`
	Pot        int64         `json:"pot"`
	Pots       []Pot         `json:"pots"`
	Community  []card.Card   `json:"community_cards"`
	Players    []PlayerState `json:"players"`

	DealerSeat        *int  `json:"dealer_seat"`
	CurrentPlayerSeat *int  `json:"current_player_seat"`
	CurrentBet        int64 `json:"current_bet"`
	LastRaiseAmount   int64 `json:"last_raise_amount"`
	Settings

	ValidActions   []ValidAction `json:"valid_actions,omitempty"`
	RunTwice       *RunTwiceView `json:"run_twice,omitempty"`
	LastHandResult *HandResult   `json:"last_hand_result,omitempty"`
}

// View projects the table for observer. Other players' hole cards stay
// hidden except at showdown; "" observes as a spectator.
func (t *Table) View(observer string) GameView {
	t.mu.Lock()
	defer t.mu.Unlock()

	v := GameView{
		RoomID:          t.roomID,
		Phase:           t.phase,
		HandNumber:      t.handNumber,
		Pot:             t.potLocked(),
		Pots:            clonePots(t.pots),
		Community:       append([]card.Card{}, t.community...),
		Players:         make([]PlayerState, 0, len(t.players)),
		CurrentBet:      t.currentBet,
		LastRaiseAmount: t.lastRaise,
		Settings:        t.settings,
		LastHandResult:  t.lastResult,
	}
	if t.dealerSeat != NoSeat {
		seat := t.dealerSeat
		v.DealerSeat = &seat
	}
	if t.actionSeat != NoSeat {
		seat := t.actionSeat
		v.CurrentPlayerSeat = &seat
	}
	for _, seat := range t.seatsLocked() {
		p := t.players[seat]
		show := p.name == observer || (t.phase == PhaseShowdown && p.inHand())
		ps := p.state(show)
		ps.Position = t.positionLocked(seat)
		v.Players = append(v.Players, ps)
	}
	if observer != "" {
		v.ValidActions = t.validActionsLocked(observer)
	}
	if t.runTwice != nil {
		v.RunTwice = &RunTwiceView{
			Eligible:   append([]string{}, t.runTwice.Eligible...),
			WaitingFor: t.runTwicePendingLocked(),
		}
	}
	return v
}

// PlayerResult is one dealt-in player's line in a HandRecord.
type PlayerResult struct {
	Name          string      `json:"name"`
	Seat          int         `json:"seat"`
	StartingStack int64       `json:"starting_stack"`
	EndingStack   int64       `json:"ending_stack"`
	Profit        int64       `json:"profit"`
	IsWinner      bool        `json:"is_winner"`
	HoleCards     []card.Card `json:"hole_cards"`
}

// HandRecord is handed to history storage once a hand finishes.
type HandRecord struct {
	RoomID     string         `json:"room_id"`
	HandNumber int            `json:"hand_number"`
	PotSize    int64          `json:"pot_size"`
	Winners    []string       `json:"winners"`
	Community  []card.Card    `json:"community_cards"`
	Actions    []Action       `json:"actions"`
	Players    []PlayerResult `json:"players"`
}

// HandRecord describes the last finished hand. ok is false while a hand is
// running or before the first hand ends.
func (t *Table) HandRecord() (HandRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r := t.lastResult
	if t.phase != PhaseWaiting || r == nil || r.HandNumber != t.handNumber {
		return HandRecord{}, false
	}
	winners := make(map[string]bool, len(r.Winners))
	for _, w := range r.Winners {
		winners[w] = true
	}

	rec := HandRecord{
		RoomID:     t.roomID,
		HandNumber: r.HandNumber,
		PotSize:    r.Pot,
		Winners:    append([]string{}, r.Winners...),
		Community:  append([]card.Card{}, r.Community...),
		Actions:    append([]Action{}, t.actions...),
		Players:    make([]PlayerResult, 0, len(t.handSeats)),
	}
	for _, seat := range t.handSeats {
		p := t.players[seat]
		if p == nil {
			continue
		}
		start := t.startStacks[p.name]
		rec.Players = append(rec.Players, PlayerResult{
			Name:          p.name,
			Seat:          p.seat,
			StartingStack: start,
			EndingStack:   p.stack,
			Profit:        p.stack - start,
			IsWinner:      winners[p.name],
			HoleCards:     append([]card.Card{}, p.hole...),
		})
	}
	return rec, true
}
