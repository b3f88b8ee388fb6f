package holdem

import (
	"sort"

	"holdem-rooms/card"
)

// ShowdownHand is one player's revealed hand.
type ShowdownHand struct {
	Name      string      `json:"name"`
	Seat      int         `json:"seat"`
	HoleCards []card.Card `json:"hole_cards"`
	BestCards []card.Card `json:"best_cards"`
	Rank      HandRank    `json:"hand_rank"`
	HandName  string      `json:"hand_name"`
}

type Payout struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

type PotResult struct {
	Amount   int64    `json:"amount"`
	Eligible []string `json:"eligible_players"`
	Winners  []string `json:"winners"`
	Payouts  []Payout `json:"payouts"`
}

// RunResult is one board of a run-it-twice hand.
type RunResult struct {
	Board   []card.Card `json:"board"`
	Winners []string    `json:"winners"`
}

// HandResult summarizes a finished hand.
type HandResult struct {
	HandNumber int              `json:"hand_number"`
	Winners    []string         `json:"winners"`
	Pot        int64            `json:"pot"`
	Pots       []PotResult      `json:"pots"`
	Stacks     map[string]int64 `json:"player_stacks"`
	Hands      []ShowdownHand   `json:"hand_results,omitempty"`
	RunTwice   bool             `json:"run_twice"`
	Runs       []RunResult      `json:"runs,omitempty"`
	Community  []card.Card      `json:"community_cards"`
}

// endUncontestedLocked awards every pot to the last player standing.
func (t *Table) endUncontestedLocked(inHand []*Player) {
	t.actionSeat = NoSeat
	result := &HandResult{HandNumber: t.handNumber, Winners: []string{}}

	var winner *Player
	if len(inHand) == 1 {
		winner = inHand[0]
		result.Winners = []string{winner.name}
	}
	for _, pot := range t.pots {
		pr := PotResult{Amount: pot.Amount, Eligible: append([]string{}, pot.Eligible...), Winners: []string{}, Payouts: []Payout{}}
		if winner != nil {
			winner.stack += pot.Amount
			pr.Winners = []string{winner.name}
			pr.Payouts = []Payout{{Name: winner.name, Amount: pot.Amount}}
		}
		result.Pot += pot.Amount
		result.Pots = append(result.Pots, pr)
	}
	t.finishHandLocked(result)
}

// showdownLocked settles every pot on the current five-card board.
func (t *Table) showdownLocked() error {
	t.phase = PhaseShowdown
	t.actionSeat = NoSeat

	inHand := t.inHandLocked()
	if len(inHand) <= 1 {
		t.endUncontestedLocked(inHand)
		return nil
	}

	best, err := t.bestHandsLocked(inHand, t.community)
	if err != nil {
		return err
	}

	result := &HandResult{HandNumber: t.handNumber}
	for _, p := range inHand {
		b := best[p.name]
		result.Hands = append(result.Hands, ShowdownHand{
			Name:      p.name,
			Seat:      p.seat,
			HoleCards: append([]card.Card{}, p.hole...),
			BestCards: b.Cards,
			Rank:      b.Rank,
			HandName:  b.Description,
		})
	}

	values := handValues(best)
	won := make(map[string]bool)
	for _, pot := range t.pots {
		winners := potWinners(pot, values)
		pr := PotResult{Amount: pot.Amount, Eligible: append([]string{}, pot.Eligible...), Winners: winners}
		pr.Payouts = t.distributeLocked(pot.Amount, winners, nil)
		for _, w := range winners {
			won[w] = true
		}
		result.Pot += pot.Amount
		result.Pots = append(result.Pots, pr)
	}
	result.Winners = t.namesBySeatLocked(won)
	t.finishHandLocked(result)
	return nil
}

// runItTwiceLocked deals two boards. The first continues the live deck, the
// second reshuffles an independent copy of the same remainder. Each pot is
// split in half per board unless both boards pick the same winners.
func (t *Table) runItTwiceLocked() error {
	rt := t.runTwice
	t.phase = PhaseShowdown
	t.actionSeat = NoSeat

	second := t.deck.Clone()
	if err := second.Restore(rt.SavedDeck); err != nil {
		return err
	}
	second.Shuffle()

	board1, err := completeBoard(t.deck, rt.SavedBoard)
	if err != nil {
		return err
	}
	board2, err := completeBoard(second, rt.SavedBoard)
	if err != nil {
		return err
	}

	inHand := t.inHandLocked()
	best1, err := t.bestHandsLocked(inHand, board1)
	if err != nil {
		return err
	}
	best2, err := t.bestHandsLocked(inHand, board2)
	if err != nil {
		return err
	}
	values1, values2 := handValues(best1), handValues(best2)

	result := &HandResult{HandNumber: t.handNumber, RunTwice: true}
	won, won1, won2 := map[string]bool{}, map[string]bool{}, map[string]bool{}
	for _, pot := range t.pots {
		w1 := potWinners(pot, values1)
		w2 := potWinners(pot, values2)
		pr := PotResult{Amount: pot.Amount, Eligible: append([]string{}, pot.Eligible...)}

		if sameNames(w1, w2) {
			pr.Winners = w1
			pr.Payouts = t.distributeLocked(pot.Amount, w1, nil)
		} else {
			// 奇数筹码归第一轮
			half := pot.Amount / 2
			pr.Payouts = t.distributeLocked(pot.Amount-half, w1, nil)
			pr.Payouts = t.distributeLocked(half, w2, pr.Payouts)
			both := map[string]bool{}
			for _, w := range w1 {
				both[w] = true
			}
			for _, w := range w2 {
				both[w] = true
			}
			pr.Winners = t.namesBySeatLocked(both)
		}
		for _, w := range w1 {
			won1[w], won[w] = true, true
		}
		for _, w := range w2 {
			won2[w], won[w] = true, true
		}
		result.Pot += pot.Amount
		result.Pots = append(result.Pots, pr)
	}
	result.Runs = []RunResult{
		{Board: board1, Winners: t.namesBySeatLocked(won1)},
		{Board: board2, Winners: t.namesBySeatLocked(won2)},
	}
	result.Winners = t.namesBySeatLocked(won)

	t.community = board1
	t.finishHandLocked(result)
	return nil
}

func completeBoard(d *card.Deck, board []card.Card) ([]card.Card, error) {
	out := append(make([]card.Card, 0, 5), board...)
	if need := 5 - len(out); need > 0 {
		cards, err := d.Deal(need)
		if err != nil {
			return nil, err
		}
		out = append(out, cards...)
	}
	return out, nil
}

func (t *Table) bestHandsLocked(inHand []*Player, board []card.Card) (map[string]BestHand, error) {
	out := make(map[string]BestHand, len(inHand))
	for _, p := range inHand {
		b, err := FindBestHand(p.hole, board)
		if err != nil {
			return nil, err
		}
		out[p.name] = b
	}
	return out, nil
}

func handValues(best map[string]BestHand) map[string]HandValue {
	out := make(map[string]HandValue, len(best))
	for name, b := range best {
		out[name] = b.HandValue
	}
	return out
}

// potWinners returns the best eligible hands in eligibility (seat) order.
func potWinners(pot Pot, values map[string]HandValue) []string {
	names := make([]string, 0, len(pot.Eligible))
	vals := make([]HandValue, 0, len(pot.Eligible))
	for _, name := range pot.Eligible {
		if v, ok := values[name]; ok {
			names = append(names, name)
			vals = append(vals, v)
		}
	}
	if len(names) == 0 {
		return []string{}
	}
	idx := maxIndices(vals)
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = names[j]
	}
	return out
}

// distributeLocked splits amount evenly; leftover chips go one at a time to
// winners in ascending seat order. Payouts accumulate into acc.
func (t *Table) distributeLocked(amount int64, winners []string, acc []Payout) []Payout {
	if acc == nil {
		acc = []Payout{}
	}
	if len(winners) == 0 || amount <= 0 {
		return acc
	}
	ordered := append([]string{}, winners...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return t.seatOfLocked(ordered[i]) < t.seatOfLocked(ordered[j])
	})

	n := int64(len(ordered))
	share, rem := amount/n, amount%n
	for i, name := range ordered {
		won := share
		if int64(i) < rem {
			won++
		}
		if p := t.playerByNameLocked(name); p != nil {
			p.stack += won
		}
		acc = addPayout(acc, name, won)
	}
	return acc
}

func addPayout(acc []Payout, name string, amount int64) []Payout {
	for i := range acc {
		if acc[i].Name == name {
			acc[i].Amount += amount
			return acc
		}
	}
	return append(acc, Payout{Name: name, Amount: amount})
}

func (t *Table) seatOfLocked(name string) int {
	if p := t.playerByNameLocked(name); p != nil {
		return p.seat
	}
	return MaxSeats
}

func (t *Table) namesBySeatLocked(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return t.seatOfLocked(out[i]) < t.seatOfLocked(out[j]) })
	return out
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, n := range a {
		set[n] = true
	}
	for _, n := range b {
		if !set[n] {
			return false
		}
	}
	return true
}

// finishHandLocked records the result and returns the table to waiting.
func (t *Table) finishHandLocked(result *HandResult) {
	result.Stacks = make(map[string]int64, len(t.players))
	for _, p := range t.players {
		result.Stacks[p.name] = p.stack
	}
	if result.Winners == nil {
		result.Winners = []string{}
	}
	if result.Pots == nil {
		result.Pots = []PotResult{}
	}
	result.Community = append([]card.Card{}, t.community...)

	t.lastResult = result
	t.phase = PhaseWaiting
	t.actionSeat = NoSeat
	t.bbOption = false
	t.runTwice = nil
}
