package holdem

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"holdem-rooms/card"
)

// Table is one room's hand state machine. Every exported method takes the
// table lock, so a table is a single unit of mutual exclusion.
type Table struct {
	mu sync.Mutex

	roomID   string
	settings Settings
	shuffle  card.Shuffler
	deck     *card.Deck

	// seats
	players map[int]*Player

	// hand state
	phase      Phase
	handNumber int
	community  []card.Card
	pots       []Pot
	actions    []Action

	dealerSeat int
	sbSeat     int
	bbSeat     int
	actionSeat int

	// betting round state
	aggressorSeat int
	currentBet    int64
	lastRaise     int64        // min-raise increment
	bbOption      bool         // BB may still act preflop even if all bets match
	acted         map[int]bool // acted since the last full raise

	handSeats   []int // seats dealt into the current hand, ascending
	startStacks map[string]int64

	runTwice   *runTwiceState
	lastResult *HandResult
}

type runTwiceState struct {
	Eligible   []string        `json:"eligible_players"`
	Choices    map[string]bool `json:"choices"`
	SavedDeck  []card.Card     `json:"saved_deck"`
	SavedBoard []card.Card     `json:"saved_community_cards"`
}

func NewTable(roomID string, settings Settings, opts ...Option) (*Table, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	t := newTable(roomID, settings, opts...)
	t.deck = card.NewDeck(t.shuffle)
	return t, nil
}

func newTable(roomID string, settings Settings, opts ...Option) *Table {
	t := &Table{
		roomID:        roomID,
		settings:      settings,
		players:       make(map[int]*Player, MaxSeats),
		phase:         PhaseWaiting,
		pots:          []Pot{},
		dealerSeat:    NoSeat,
		sbSeat:        NoSeat,
		bbSeat:        NoSeat,
		actionSeat:    NoSeat,
		aggressorSeat: NoSeat,
		lastRaise:     settings.BigBlind,
		acted:         make(map[int]bool),
		startStacks:   make(map[string]int64),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.shuffle == nil {
		t.shuffle = card.RandShuffler(nil)
	}
	return t
}

func (t *Table) RoomID() string { return t.roomID }

func (t *Table) Settings() Settings { return t.settings }

func (t *Table) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

func (t *Table) HandNumber() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handNumber
}

// ActionSeat is the seat to act, or NoSeat outside betting.
func (t *Table) ActionSeat() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.actionSeat
}

func (t *Table) DealerSeat() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dealerSeat
}

func (t *Table) CurrentBet() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentBet
}

// LastRaiseAmount is the current minimum raise increment.
func (t *Table) LastRaiseAmount() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastRaise
}

// Pot is the chips committed to the current hand and not yet awarded.
func (t *Table) Pot() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.potLocked()
}

func (t *Table) potLocked() int64 {
	if t.phase == PhaseWaiting {
		return 0
	}
	var sum int64
	for _, p := range t.players {
		sum += p.totalBet
	}
	return sum
}

// Pots returns the tiers from the most recent settlement point.
func (t *Table) Pots() []Pot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return clonePots(t.pots)
}

func (t *Table) Community() []card.Card {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]card.Card{}, t.community...)
}

func (t *Table) Actions() []Action {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Action{}, t.actions...)
}

// LastResult is the outcome of the last finished hand. Callers must not modify it.
func (t *Table) LastResult() *HandResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastResult
}

// Player looks up a seated player; hole cards are not included.
func (t *Table) Player(name string) (PlayerState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.playerByNameLocked(name)
	if p == nil {
		return PlayerState{}, false
	}
	return p.state(false), true
}

// Players lists seated players by seat; hole cards are not included.
func (t *Table) Players() []PlayerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]PlayerState, 0, len(t.players))
	for _, seat := range t.seatsLocked() {
		out = append(out, t.players[seat].state(false))
	}
	return out
}

// AddPlayer seats a player. seat < 0 picks the lowest free seat. The stack is
// clamped to the room's buy-in range.
func (t *Table) AddPlayer(name string, stack int64, seat int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return NoSeat, ErrInvalidName
	}
	if t.playerByNameLocked(name) != nil {
		return NoSeat, fmt.Errorf("%w: %s", ErrNameTaken, name)
	}
	if len(t.players) >= MaxSeats {
		return NoSeat, ErrTableFull
	}
	if seat < 0 {
		for s := 0; s < MaxSeats; s++ {
			if t.players[s] == nil {
				seat = s
				break
			}
		}
		if seat < 0 {
			return NoSeat, ErrTableFull
		}
	} else if seat >= MaxSeats {
		return NoSeat, fmt.Errorf("%w: %d", ErrInvalidSeat, seat)
	} else if t.players[seat] != nil {
		return NoSeat, fmt.Errorf("%w: %d", ErrSeatTaken, seat)
	}

	t.players[seat] = &Player{
		name:  name,
		seat:  seat,
		stack: t.settings.clampBuyIn(stack),
	}
	return seat, nil
}

// RemovePlayer unseats a player. It reports false when the name is unknown.
// A player dealt into a live hand stays until the hand ends.
func (t *Table) RemovePlayer(name string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.playerByNameLocked(name)
	if p == nil {
		return false, nil
	}
	if t.phase != PhaseWaiting && t.dealtInLocked(p.seat) {
		return false, ErrHandInProgress
	}
	delete(t.players, p.seat)
	return true, nil
}

// SetSittingOut takes effect from the next hand.
func (t *Table) SetSittingOut(name string, sittingOut bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.playerByNameLocked(name)
	if p == nil {
		return ErrPlayerNotFound
	}
	p.sittingOut = sittingOut
	return nil
}

// AddChips tops up a stack between hands, up to the max buy-in.
func (t *Table) AddChips(name string, amount int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.playerByNameLocked(name)
	if p == nil {
		return ErrPlayerNotFound
	}
	if t.phase != PhaseWaiting {
		return ErrHandInProgress
	}
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if amount > t.settings.MaxBuyIn-p.stack {
		return fmt.Errorf("%w: max stack is %d", ErrStackLimit, t.settings.MaxBuyIn)
	}
	p.stack += amount
	return nil
}

// StartHand deals a new hand: button, blinds, hole cards, first to act.
func (t *Table) StartHand() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != PhaseWaiting {
		return ErrHandInProgress
	}
	active := t.activeSeatsLocked()
	if len(active) < 2 {
		return fmt.Errorf("%w: have %d", ErrNotEnoughPlayers, len(active))
	}

	t.handNumber++
	t.deck.Reset()
	t.community = make([]card.Card, 0, 5)
	t.pots = []Pot{{Eligible: []string{}}}
	t.actions = make([]Action, 0, 16)
	t.currentBet = 0
	t.lastRaise = t.settings.BigBlind
	t.aggressorSeat = NoSeat
	t.acted = make(map[int]bool)
	t.runTwice = nil
	t.lastResult = nil
	for _, p := range t.players {
		p.resetForHand()
	}
	t.handSeats = active
	t.startStacks = make(map[string]int64, len(active))
	for _, seat := range active {
		p := t.players[seat]
		t.startStacks[p.name] = p.stack
	}

	// 庄位：首手取第一个有效座位，之后顺时针移动
	if t.dealerSeat == NoSeat {
		t.dealerSeat = active[0]
	} else {
		t.dealerSeat = nextSeat(active, t.dealerSeat, anySeat)
	}

	t.postBlindsLocked()
	if err := t.dealHoleCardsLocked(); err != nil {
		return err
	}

	t.phase = PhasePreflop
	t.actionSeat = t.firstToActPreflopLocked()

	if t.bettingClosedLocked(t.inHandLocked()) {
		t.settlePotsLocked()
		return t.runOutLocked()
	}
	return nil
}

func (t *Table) postBlindsLocked() {
	if t.headsUpLocked() {
		t.sbSeat = t.dealerSeat
	} else {
		t.sbSeat = nextSeat(t.handSeats, t.dealerSeat, anySeat)
	}
	t.bbSeat = nextSeat(t.handSeats, t.sbSeat, anySeat)

	sb := t.players[t.sbSeat].commit(t.settings.SmallBlind)
	bb := t.players[t.bbSeat].commit(t.settings.BigBlind)
	// 大盲不足时以实际下注为准
	t.currentBet = max(sb, bb)
	t.bbOption = true
	t.aggressorSeat = NoSeat
}

// dealHoleCardsLocked deals one card per pass, starting left of the button.
func (t *Table) dealHoleCardsLocked() error {
	order := make([]int, 0, len(t.handSeats))
	seat := t.sbSeat
	for range t.handSeats {
		order = append(order, seat)
		seat = nextSeat(t.handSeats, seat, anySeat)
	}
	for pass := 0; pass < 2; pass++ {
		for _, s := range order {
			cards, err := t.deck.Deal(1)
			if err != nil {
				return err
			}
			t.players[s].hole = append(t.players[s].hole, cards...)
		}
	}
	return nil
}

func (t *Table) firstToActPreflopLocked() int {
	canAct := t.canActFunc()
	if t.headsUpLocked() {
		if canAct(t.sbSeat) {
			return t.sbSeat
		}
		return nextSeat(t.handSeats, t.sbSeat, canAct)
	}
	return nextSeat(t.handSeats, t.bbSeat, canAct)
}

func (t *Table) firstToActPostflopLocked() int {
	canAct := t.canActFunc()
	if t.headsUpLocked() && canAct(t.bbSeat) {
		return t.bbSeat
	}
	return nextSeat(t.handSeats, t.dealerSeat, canAct)
}

// ProcessAction applies one betting action for the player to act.
// amount is the raise-to total for ActionRaise and ignored otherwise.
func (t *Table) ProcessAction(name string, kind ActionKind, amount int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.playerByNameLocked(name)
	if p == nil {
		return ErrPlayerNotFound
	}
	if !t.phase.Betting() {
		return fmt.Errorf("%w: %s", ErrWrongPhase, t.phase)
	}
	if p.seat != t.actionSeat {
		return ErrOutOfTurn
	}
	if !p.canAct() {
		return ErrCannotAct
	}

	recorded, err := t.applyActionLocked(p, kind, amount)
	if err != nil {
		return err
	}
	t.acted[p.seat] = true
	if t.phase == PhasePreflop && t.bbOption && p.seat == t.bbSeat {
		t.bbOption = false
	}
	t.actions = append(t.actions, recorded)

	return t.advanceLocked()
}

// applyActionLocked validates before mutating; an error leaves state untouched.
func (t *Table) applyActionLocked(p *Player, kind ActionKind, amount int64) (Action, error) {
	rec := Action{Player: p.name, Kind: kind, Phase: t.phase}

	switch kind {
	case ActionFold:
		p.folded = true

	case ActionCheck:
		if p.bet < t.currentBet {
			return Action{}, ErrIllegalCheck
		}

	case ActionCall:
		rec.Amount = p.commit(min(t.currentBet-p.bet, p.stack))

	case ActionRaise:
		if amount <= 0 {
			return Action{}, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
		}
		if amount <= t.currentBet {
			return Action{}, &MinRaiseError{Min: t.currentBet + t.lastRaise}
		}
		raiseTo, need := amount, p.stack
		if maxTo := p.bet + p.stack; raiseTo >= maxTo {
			// 超出筹码按全下处理，不足最小加注也允许
			raiseTo = maxTo
		} else {
			need = raiseTo - p.bet
			if raiseTo-t.currentBet < t.lastRaise {
				return Action{}, &MinRaiseError{Min: t.currentBet + t.lastRaise}
			}
		}
		p.commit(need)
		t.raiseToLocked(p, raiseTo)
		rec.Amount = raiseTo

	case ActionAllIn:
		p.commit(p.stack)
		t.raiseToLocked(p, p.bet)
		rec.Amount = p.bet

	default:
		return Action{}, fmt.Errorf("%w: %d", ErrUnknownAction, byte(kind))
	}

	// post-action classification: any commit that empties the stack is an all-in
	if kind != ActionFold && p.stack == 0 {
		p.allIn = true
		rec.Kind = ActionAllIn
	}
	return rec, nil
}

// raiseToLocked lifts the bet level. Only a full increment reopens the
// betting; a short all-in raises the level but keeps the old increment.
func (t *Table) raiseToLocked(p *Player, newBet int64) {
	if newBet <= t.currentBet {
		return
	}
	increment := newBet - t.currentBet
	if increment >= t.lastRaise {
		t.lastRaise = increment
		t.aggressorSeat = p.seat
		t.acted = make(map[int]bool)
	}
	t.currentBet = newBet
}

// advanceLocked runs the fixed advancement order:
// fold check, all-in check, round-complete check, next seat.
func (t *Table) advanceLocked() error {
	inHand := t.inHandLocked()

	if len(inHand) <= 1 {
		t.settlePotsLocked()
		t.endUncontestedLocked(inHand)
		return nil
	}

	if t.bettingClosedLocked(inHand) {
		t.settlePotsLocked()
		return t.runOutLocked()
	}

	if t.roundCompleteLocked(inHand) {
		t.settlePotsLocked()
		return t.nextPhaseLocked()
	}

	next := nextSeat(t.handSeats, t.actionSeat, t.canActFunc())
	if next == NoSeat {
		t.settlePotsLocked()
		return t.nextPhaseLocked()
	}
	t.actionSeat = next
	return nil
}

// bettingClosedLocked: nobody can act, or one player can and has nothing to call.
func (t *Table) bettingClosedLocked(inHand []*Player) bool {
	var canAct []*Player
	for _, p := range inHand {
		if !p.allIn {
			canAct = append(canAct, p)
		}
	}
	switch len(canAct) {
	case 0:
		return true
	case 1:
		return t.betsMatchedLocked(inHand)
	}
	return false
}

func (t *Table) betsMatchedLocked(inHand []*Player) bool {
	for _, p := range inHand {
		if !p.allIn && p.bet != t.currentBet {
			return false
		}
	}
	return true
}

func (t *Table) roundCompleteLocked(inHand []*Player) bool {
	if !t.betsMatchedLocked(inHand) {
		return false
	}
	if t.phase == PhasePreflop && t.bbOption {
		if bb := t.players[t.bbSeat]; bb != nil && bb.canAct() {
			return false
		}
	}
	for _, p := range inHand {
		if !p.allIn && !t.acted[p.seat] {
			return false
		}
	}
	return true
}

func (t *Table) nextPhaseLocked() error {
	for _, p := range t.players {
		p.bet = 0
	}
	t.currentBet = 0
	t.lastRaise = t.settings.BigBlind
	t.aggressorSeat = NoSeat
	t.bbOption = false
	t.acted = make(map[int]bool)

	switch t.phase {
	case PhasePreflop:
		if err := t.dealCommunityLocked(3); err != nil {
			return err
		}
		t.phase = PhaseFlop
	case PhaseFlop:
		if err := t.dealCommunityLocked(1); err != nil {
			return err
		}
		t.phase = PhaseTurn
	case PhaseTurn:
		if err := t.dealCommunityLocked(1); err != nil {
			return err
		}
		t.phase = PhaseRiver
	case PhaseRiver:
		return t.showdownLocked()
	default:
		return fmt.Errorf("%w: cannot advance from %s", ErrWrongPhase, t.phase)
	}

	t.actionSeat = t.firstToActPostflopLocked()
	t.aggressorSeat = t.actionSeat

	canAct := 0
	for _, p := range t.inHandLocked() {
		if !p.allIn {
			canAct++
		}
	}
	if canAct <= 1 {
		return t.runOutLocked()
	}
	return nil
}

func (t *Table) dealCommunityLocked(n int) error {
	cards, err := t.deck.Deal(n)
	if err != nil {
		return err
	}
	t.community = append(t.community, cards...)
	return nil
}

// runOutLocked finishes the board once no more betting is possible. Two or
// more all-in players with board cards to come get the run-it-twice choice.
func (t *Table) runOutLocked() error {
	t.actionSeat = NoSeat

	var allIn []string
	for _, p := range t.inHandLocked() {
		if p.allIn {
			allIn = append(allIn, p.name)
		}
	}
	if len(allIn) >= 2 && len(t.community) < 5 {
		t.runTwice = &runTwiceState{
			Eligible:   allIn,
			Choices:    make(map[string]bool, len(allIn)),
			SavedDeck:  t.deck.Cards(),
			SavedBoard: append([]card.Card{}, t.community...),
		}
		t.phase = PhaseWaitingRunTwice
		return nil
	}

	if err := t.dealRemainingLocked(); err != nil {
		return err
	}
	return t.showdownLocked()
}

func (t *Table) dealRemainingLocked() error {
	for len(t.community) < 5 {
		if len(t.community) == 0 {
			if err := t.dealCommunityLocked(3); err != nil {
				return err
			}
			t.phase = PhaseFlop
			continue
		}
		if err := t.dealCommunityLocked(1); err != nil {
			return err
		}
		if len(t.community) == 4 {
			t.phase = PhaseTurn
		} else {
			t.phase = PhaseRiver
		}
	}
	return nil
}

// ChooseRunTwice records an all-in player's run-it-twice answer. The board is
// resolved once every eligible player has answered.
func (t *Table) ChooseRunTwice(name string, yes bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != PhaseWaitingRunTwice || t.runTwice == nil {
		return fmt.Errorf("%w: not waiting for run-twice choices", ErrWrongPhase)
	}
	rt := t.runTwice
	eligible := false
	for _, n := range rt.Eligible {
		if n == name {
			eligible = true
			break
		}
	}
	if !eligible {
		return ErrNotEligible
	}
	if _, ok := rt.Choices[name]; ok {
		return ErrAlreadyChosen
	}
	rt.Choices[name] = yes
	if len(rt.Choices) < len(rt.Eligible) {
		return nil
	}

	for _, v := range rt.Choices {
		if !v {
			if err := t.dealRemainingLocked(); err != nil {
				return err
			}
			return t.showdownLocked()
		}
	}
	return t.runItTwiceLocked()
}

// RunTwicePending lists eligible players who have not chosen yet.
func (t *Table) RunTwicePending() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runTwicePendingLocked()
}

// RunTwiceEligible lists the all-in players asked to choose.
func (t *Table) RunTwiceEligible() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.runTwice == nil {
		return nil
	}
	return append([]string{}, t.runTwice.Eligible...)
}

func (t *Table) runTwicePendingLocked() []string {
	if t.runTwice == nil {
		return nil
	}
	out := make([]string, 0, len(t.runTwice.Eligible))
	for _, n := range t.runTwice.Eligible {
		if _, ok := t.runTwice.Choices[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}

func (t *Table) settlePotsLocked() {
	contribs := make([]Contribution, 0, len(t.players))
	for _, p := range t.players {
		if !p.contributed() {
			continue
		}
		contribs = append(contribs, Contribution{
			Name:   p.name,
			Seat:   p.seat,
			Total:  p.totalBet,
			Folded: p.folded,
			AllIn:  p.allIn,
		})
	}
	t.pots = BuildPots(contribs)
}

func (t *Table) headsUpLocked() bool {
	return len(t.handSeats) == 2
}

func (t *Table) dealtInLocked(seat int) bool {
	for _, s := range t.handSeats {
		if s == seat {
			return t.players[seat] != nil && len(t.players[seat].hole) > 0
		}
	}
	return false
}

func (t *Table) playerByNameLocked(name string) *Player {
	for _, p := range t.players {
		if p.name == name {
			return p
		}
	}
	return nil
}

func (t *Table) seatsLocked() []int {
	seats := make([]int, 0, len(t.players))
	for s := range t.players {
		seats = append(seats, s)
	}
	sort.Ints(seats)
	return seats
}

// activeSeatsLocked 可以参与新一手的座位：有筹码且未暂离
func (t *Table) activeSeatsLocked() []int {
	seats := make([]int, 0, len(t.players))
	for _, s := range t.seatsLocked() {
		p := t.players[s]
		if p.stack > 0 && !p.sittingOut {
			seats = append(seats, s)
		}
	}
	return seats
}

// inHandLocked lists unfolded players holding cards, by seat.
func (t *Table) inHandLocked() []*Player {
	out := make([]*Player, 0, len(t.handSeats))
	for _, s := range t.handSeats {
		if p := t.players[s]; p != nil && p.inHand() {
			out = append(out, p)
		}
	}
	return out
}

func (t *Table) canActFunc() func(int) bool {
	return func(seat int) bool {
		p := t.players[seat]
		return p != nil && p.canAct()
	}
}

func anySeat(int) bool { return true }

// nextSeat walks the ring clockwise from 'from' (exclusive) and returns the
// first seat accepted by ok. 'from' need not be in seats.
func nextSeat(seats []int, from int, ok func(int) bool) int {
	if len(seats) == 0 {
		return NoSeat
	}
	start := sort.SearchInts(seats, from+1)
	for i := 0; i < len(seats); i++ {
		s := seats[(start+i)%len(seats)]
		if s == from {
			continue
		}
		if ok(s) {
			return s
		}
	}
	return NoSeat
}

func clonePots(pots []Pot) []Pot {
	out := make([]Pot, len(pots))
	for i, p := range pots {
		out[i] = Pot{Amount: p.Amount, Eligible: append([]string{}, p.Eligible...)}
	}
	return out
}
