package holdem

import (
	"fmt"
	"sort"

	"holdem-rooms/card"
)

// HandRank 牌型，数值越大越强
type HandRank int

const (
	HandHighCard HandRank = iota + 1
	HandPair
	HandTwoPair
	HandThreeOfKind
	HandStraight
	HandFlush
	HandFullHouse
	HandFourOfKind
	HandStraightFlush
	HandRoyalFlush
)

var HandRankDictionary = map[HandRank]string{
	HandHighCard:      "High Card",
	HandPair:          "Pair",
	HandTwoPair:       "Two Pair",
	HandThreeOfKind:   "Three of a Kind",
	HandStraight:      "Straight",
	HandFlush:         "Flush",
	HandFullHouse:     "Full House",
	HandFourOfKind:    "Four of a Kind",
	HandStraightFlush: "Straight Flush",
	HandRoyalFlush:    "Royal Flush",
}

func (r HandRank) String() string {
	if s, ok := HandRankDictionary[r]; ok {
		return s
	}
	return fmt.Sprintf("rank(%d)", int(r))
}

// tiebreakArity is the fixed tiebreak length per rank.
var tiebreakArity = map[HandRank]int{
	HandHighCard:      5,
	HandPair:          4,
	HandTwoPair:       3,
	HandThreeOfKind:   3,
	HandStraight:      1,
	HandFlush:         5,
	HandFullHouse:     2,
	HandFourOfKind:    2,
	HandStraightFlush: 1,
	HandRoyalFlush:    1,
}

// HandValue orders 5-card hands lexicographically on (Rank, Tiebreak).
type HandValue struct {
	Rank        HandRank `json:"rank"`
	Tiebreak    []int    `json:"tiebreak"`
	Description string   `json:"description"`
}

// Compare returns -1, 0 or 1.
func Compare(a, b HandValue) int {
	if a.Rank != b.Rank {
		if a.Rank < b.Rank {
			return -1
		}
		return 1
	}
	for i := 0; i < len(a.Tiebreak) && i < len(b.Tiebreak); i++ {
		if a.Tiebreak[i] != b.Tiebreak[i] {
			if a.Tiebreak[i] < b.Tiebreak[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Evaluate ranks exactly five cards.
func Evaluate(cards []card.Card) (HandValue, error) {
	if len(cards) != 5 {
		return HandValue{}, fmt.Errorf("%w: got %d", ErrHandSize, len(cards))
	}
	for _, c := range cards {
		if !c.Valid() {
			return HandValue{}, fmt.Errorf("%w: 0x%02x", card.ErrInvalidValue, byte(c))
		}
	}
	return eval5(cards), nil
}

type valueGroup struct {
	value int
	count int
}

func eval5(cards []card.Card) HandValue {
	values := make([]int, 5)
	flush := true
	for i, c := range cards {
		values[i] = c.Value()
		if c.Suit() != cards[0].Suit() {
			flush = false
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(values)))

	// 按 (张数 desc, 点数 desc) 分组，分组顺序即 tiebreak 顺序
	counts := make(map[int]int, 5)
	for _, v := range values {
		counts[v]++
	}
	groups := make([]valueGroup, 0, len(counts))
	for v, n := range counts {
		groups = append(groups, valueGroup{value: v, count: n})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].value > groups[j].value
	})
	grouped := make([]int, len(groups))
	for i, g := range groups {
		grouped[i] = g.value
	}

	straight, high := straightHigh(values)
	switch {
	case flush && straight && high == 14:
		return HandValue{Rank: HandRoyalFlush, Tiebreak: []int{14}, Description: "Royal Flush"}
	case flush && straight:
		return HandValue{Rank: HandStraightFlush, Tiebreak: []int{high},
			Description: fmt.Sprintf("Straight Flush, %s high", valueName(high))}
	case groups[0].count == 4:
		return HandValue{Rank: HandFourOfKind, Tiebreak: grouped,
			Description: fmt.Sprintf("Four of a Kind, %ss", valueName(grouped[0]))}
	case groups[0].count == 3 && groups[1].count == 2:
		return HandValue{Rank: HandFullHouse, Tiebreak: grouped,
			Description: fmt.Sprintf("Full House, %ss full of %ss", valueName(grouped[0]), valueName(grouped[1]))}
	case flush:
		return HandValue{Rank: HandFlush, Tiebreak: values,
			Description: fmt.Sprintf("Flush, %s high", valueName(values[0]))}
	case straight:
		return HandValue{Rank: HandStraight, Tiebreak: []int{high},
			Description: fmt.Sprintf("Straight, %s high", valueName(high))}
	case groups[0].count == 3:
		return HandValue{Rank: HandThreeOfKind, Tiebreak: grouped,
			Description: fmt.Sprintf("Three of a Kind, %ss", valueName(grouped[0]))}
	case groups[0].count == 2 && groups[1].count == 2:
		return HandValue{Rank: HandTwoPair, Tiebreak: grouped,
			Description: fmt.Sprintf("Two Pair, %ss and %ss", valueName(grouped[0]), valueName(grouped[1]))}
	case groups[0].count == 2:
		return HandValue{Rank: HandPair, Tiebreak: grouped,
			Description: fmt.Sprintf("Pair of %ss", valueName(grouped[0]))}
	default:
		return HandValue{Rank: HandHighCard, Tiebreak: values,
			Description: fmt.Sprintf("High Card, %s", valueName(values[0]))}
	}
}

// straightHigh expects values sorted descending. The wheel plays 5-high.
func straightHigh(values []int) (bool, int) {
	for i := 1; i < len(values); i++ {
		if values[i] == values[i-1] {
			return false, 0
		}
	}
	if values[0]-values[4] == 4 {
		return true, values[0]
	}
	if values[0] == 14 && values[1] == 5 && values[2] == 4 && values[3] == 3 && values[4] == 2 {
		return true, 5
	}
	return false, 0
}

func valueName(v int) string {
	switch v {
	case 11:
		return "Jack"
	case 12:
		return "Queen"
	case 13:
		return "King"
	case 14:
		return "Ace"
	}
	return fmt.Sprintf("%d", v)
}

// BestHand is the strongest 5-card subset of a player's cards.
type BestHand struct {
	Cards []card.Card `json:"best_cards"`
	HandValue
}

// FindBestHand enumerates every 5-card subset of hole+community.
// The first maximum found wins ties.
func FindBestHand(hole, community []card.Card) (BestHand, error) {
	all := make([]card.Card, 0, len(hole)+len(community))
	all = append(all, hole...)
	all = append(all, community...)
	if len(all) < 5 {
		return BestHand{}, fmt.Errorf("%w: need 5 cards, have %d", card.ErrInsufficientCards, len(all))
	}
	for _, c := range all {
		if !c.Valid() {
			return BestHand{}, fmt.Errorf("%w: 0x%02x", card.ErrInvalidValue, byte(c))
		}
	}

	var best BestHand
	found := false
	combo := make([]card.Card, 5)
	n := len(all)
	for a := 0; a < n-4; a++ {
		for b := a + 1; b < n-3; b++ {
			for c := b + 1; c < n-2; c++ {
				for d := c + 1; d < n-1; d++ {
					for e := d + 1; e < n; e++ {
						combo[0], combo[1], combo[2], combo[3], combo[4] = all[a], all[b], all[c], all[d], all[e]
						v := eval5(combo)
						if !found || Compare(v, best.HandValue) > 0 {
							best = BestHand{Cards: append([]card.Card{}, combo...), HandValue: v}
							found = true
						}
					}
				}
			}
		}
	}
	return best, nil
}

// Holding is one contender for CompareHands.
type Holding struct {
	Hole      []card.Card
	Community []card.Card
}

// CompareHands returns the indices of every holding that ties for best.
func CompareHands(hands []Holding) ([]int, error) {
	if len(hands) == 0 {
		return nil, nil
	}
	values := make([]HandValue, len(hands))
	for i, h := range hands {
		best, err := FindBestHand(h.Hole, h.Community)
		if err != nil {
			return nil, fmt.Errorf("hand %d: %w", i, err)
		}
		values[i] = best.HandValue
	}
	return maxIndices(values), nil
}

func maxIndices(values []HandValue) []int {
	winners := []int{0}
	for i := 1; i < len(values); i++ {
		switch c := Compare(values[i], values[winners[0]]); {
		case c > 0:
			winners = []int{i}
		case c == 0:
			winners = append(winners, i)
		}
	}
	return winners
}
