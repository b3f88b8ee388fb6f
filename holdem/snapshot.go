package holdem

import (
	"encoding/json"
	"fmt"
	"sort"

	"holdem-rooms/card"
)

const snapshotVersion = 1

// Snapshot is the complete persisted state of a table, hidden cards and the
// undealt deck included. It is never sent to clients.
type Snapshot struct {
	Version  int      `json:"version"`
	RoomID   string   `json:"room_id"`
	Settings Settings `json:"settings"`

	Phase      Phase `json:"phase"`
	HandNumber int   `json:"hand_number"`

	DealerSeat     int `json:"dealer_seat"`
	SmallBlindSeat int `json:"small_blind_seat"`
	BigBlindSeat   int `json:"big_blind_seat"`
	ActionSeat     int `json:"current_player_seat"`
	AggressorSeat  int `json:"last_aggressor_seat"`

	CurrentBet      int64 `json:"current_bet"`
	LastRaiseAmount int64 `json:"last_raise_amount"`
	BigBlindOption  bool  `json:"big_blind_option"`
	Acted           []int `json:"acted_seats"`
	HandSeats       []int `json:"hand_seats"`

	Deck        []card.Card      `json:"deck"`
	Community   []card.Card      `json:"community_cards"`
	Pots        []Pot            `json:"pots"`
	Players     []PlayerState    `json:"players"`
	Actions     []Action         `json:"action_history"`
	StartStacks map[string]int64 `json:"starting_stacks"`

	RunTwice   *runTwiceState `json:"run_twice,omitempty"`
	LastResult *HandResult    `json:"last_hand_result,omitempty"`
}

// Serialize encodes the table. Output is deterministic for equal state.
func (t *Table) Serialize() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return json.Marshal(t.snapshotLocked())
}

func (t *Table) snapshotLocked() Snapshot {
	s := Snapshot{
		Version:         snapshotVersion,
		RoomID:          t.roomID,
		Settings:        t.settings,
		Phase:           t.phase,
		HandNumber:      t.handNumber,
		DealerSeat:      t.dealerSeat,
		SmallBlindSeat:  t.sbSeat,
		BigBlindSeat:    t.bbSeat,
		ActionSeat:      t.actionSeat,
		AggressorSeat:   t.aggressorSeat,
		CurrentBet:      t.currentBet,
		LastRaiseAmount: t.lastRaise,
		BigBlindOption:  t.bbOption,
		Acted:           []int{},
		HandSeats:       append([]int{}, t.handSeats...),
		Deck:            t.deck.Cards(),
		Community:       append([]card.Card{}, t.community...),
		Pots:            clonePots(t.pots),
		Players:         make([]PlayerState, 0, len(t.players)),
		Actions:         append([]Action{}, t.actions...),
		StartStacks:     make(map[string]int64, len(t.startStacks)),
		LastResult:      t.lastResult,
	}
	for seat, ok := range t.acted {
		if ok {
			s.Acted = append(s.Acted, seat)
		}
	}
	sort.Ints(s.Acted)
	for _, seat := range t.seatsLocked() {
		ps := t.players[seat].state(true)
		if ps.HoleCards == nil {
			ps.HoleCards = []card.Card{}
		}
		s.Players = append(s.Players, ps)
	}
	for k, v := range t.startStacks {
		s.StartStacks[k] = v
	}
	if t.runTwice != nil {
		rt := *t.runTwice
		rt.Eligible = append([]string{}, rt.Eligible...)
		rt.SavedDeck = append([]card.Card{}, rt.SavedDeck...)
		rt.SavedBoard = append([]card.Card{}, rt.SavedBoard...)
		rt.Choices = make(map[string]bool, len(t.runTwice.Choices))
		for k, v := range t.runTwice.Choices {
			rt.Choices[k] = v
		}
		s.RunTwice = &rt
	}
	return s
}

// Deserialize rebuilds a table from Serialize output. The shuffler is not
// persisted; pass WithShuffler or WithSeed to control future shuffles.
func Deserialize(data []byte, opts ...Option) (*Table, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}

	t := newTable(s.RoomID, s.Settings, opts...)
	t.deck = card.NewDeck(t.shuffle)
	if err := t.deck.Restore(s.Deck); err != nil {
		return nil, fmt.Errorf("%w: deck: %v", ErrCorruptSnapshot, err)
	}
	t.phase = s.Phase
	t.handNumber = s.HandNumber
	t.dealerSeat = s.DealerSeat
	t.sbSeat = s.SmallBlindSeat
	t.bbSeat = s.BigBlindSeat
	t.actionSeat = s.ActionSeat
	t.aggressorSeat = s.AggressorSeat
	t.currentBet = s.CurrentBet
	t.lastRaise = s.LastRaiseAmount
	t.bbOption = s.BigBlindOption
	for _, seat := range s.Acted {
		t.acted[seat] = true
	}
	t.handSeats = append([]int{}, s.HandSeats...)
	t.community = append([]card.Card{}, s.Community...)
	t.pots = clonePots(s.Pots)
	t.actions = append([]Action{}, s.Actions...)
	for k, v := range s.StartStacks {
		t.startStacks[k] = v
	}
	for _, ps := range s.Players {
		t.players[ps.Seat] = &Player{
			name:       ps.Name,
			seat:       ps.Seat,
			stack:      ps.Stack,
			bet:        ps.CurrentBet,
			totalBet:   ps.TotalBet,
			folded:     ps.Folded,
			allIn:      ps.AllIn,
			sittingOut: ps.SittingOut,
			hole:       append([]card.Card(nil), ps.HoleCards...),
		}
	}
	if s.RunTwice != nil {
		rt := *s.RunTwice
		if rt.Choices == nil {
			rt.Choices = make(map[string]bool)
		}
		t.runTwice = &rt
	}
	t.lastResult = s.LastResult
	return t, nil
}

// validate checks structural invariants before anything is rebuilt.
func (s *Snapshot) validate() error {
	corrupt := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{ErrCorruptSnapshot}, args...)...)
	}

	if s.Version != snapshotVersion {
		return corrupt("unsupported version %d", s.Version)
	}
	if err := s.Settings.Validate(); err != nil {
		return corrupt("%v", err)
	}
	if _, ok := PhaseDictionary[s.Phase]; !ok {
		return corrupt("phase %d", s.Phase)
	}
	if s.HandNumber < 0 {
		return corrupt("hand number %d", s.HandNumber)
	}

	seats := make(map[int]PlayerState, len(s.Players))
	names := make(map[string]bool, len(s.Players))
	for _, p := range s.Players {
		if p.Seat < 0 || p.Seat >= MaxSeats {
			return corrupt("seat %d out of range", p.Seat)
		}
		if _, dup := seats[p.Seat]; dup {
			return corrupt("seat %d occupied twice", p.Seat)
		}
		if p.Name == "" || names[p.Name] {
			return corrupt("player name %q", p.Name)
		}
		if p.Stack < 0 || p.CurrentBet < 0 || p.TotalBet < p.CurrentBet {
			return corrupt("chip counts for %s", p.Name)
		}
		if len(p.HoleCards) != 0 && len(p.HoleCards) != 2 {
			return corrupt("%s holds %d cards", p.Name, len(p.HoleCards))
		}
		seats[p.Seat] = p
		names[p.Name] = true
	}

	for _, ref := range []int{s.DealerSeat, s.SmallBlindSeat, s.BigBlindSeat, s.ActionSeat, s.AggressorSeat} {
		if ref < NoSeat || ref >= MaxSeats {
			return corrupt("seat reference %d", ref)
		}
	}
	for _, seat := range s.HandSeats {
		if seat < 0 || seat >= MaxSeats {
			return corrupt("hand seat %d", seat)
		}
	}
	if len(s.Community) > 5 {
		return corrupt("%d community cards", len(s.Community))
	}

	// every card appears at most once across deck, board and hands
	seen := make(map[card.Card]bool, 52)
	count := 0
	mark := func(cards []card.Card) error {
		for _, c := range cards {
			if !c.Valid() {
				return corrupt("invalid card 0x%02x", byte(c))
			}
			if seen[c] {
				return corrupt("duplicate card %s", c.Code())
			}
			seen[c] = true
			count++
		}
		return nil
	}
	if err := mark(s.Deck); err != nil {
		return err
	}
	if err := mark(s.Community); err != nil {
		return err
	}
	for _, p := range s.Players {
		if err := mark(p.HoleCards); err != nil {
			return err
		}
	}

	inHand := s.Phase != PhaseWaiting
	if inHand {
		// nobody leaves mid-hand, so the 52 cards are all accounted for
		if count != 52 {
			return corrupt("%d cards in play, want 52", count)
		}
		for _, seat := range s.HandSeats {
			if _, ok := seats[seat]; !ok {
				return corrupt("hand seat %d is empty", seat)
			}
		}
	}
	if s.Phase.Betting() {
		p, ok := seats[s.ActionSeat]
		if !ok || p.Folded || p.AllIn || len(p.HoleCards) == 0 {
			return corrupt("seat %d cannot act", s.ActionSeat)
		}
	}
	if (s.Phase == PhaseWaitingRunTwice) != (s.RunTwice != nil) {
		return corrupt("run-twice state does not match phase %s", s.Phase)
	}
	if s.RunTwice != nil {
		for _, name := range s.RunTwice.Eligible {
			if !names[name] {
				return corrupt("run-twice player %q is not seated", name)
			}
		}
	}
	return nil
}
