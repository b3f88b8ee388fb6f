package card

import (
	"fmt"
	"math/rand"
	"time"
)

// Shuffler permutes cards in place.
type Shuffler func(cards []Card)

// RandShuffler shuffles with rng (Fisher-Yates via rand.Shuffle).
func RandShuffler(rng *rand.Rand) Shuffler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return func(cards []Card) {
		rng.Shuffle(len(cards), func(i, j int) {
			cards[i], cards[j] = cards[j], cards[i]
		})
	}
}

// Stack moves the given cards to the front in the listed order and keeps
// the rest in their current order. Cards not present are ignored.
func Stack(top ...Card) Shuffler {
	return func(cards []Card) {
		front := make([]Card, 0, len(top))
		used := make(map[Card]bool, len(top))
		present := make(map[Card]bool, len(cards))
		for _, c := range cards {
			present[c] = true
		}
		for _, c := range top {
			if present[c] && !used[c] {
				front = append(front, c)
				used[c] = true
			}
		}
		rest := make([]Card, 0, len(cards)-len(front))
		for _, c := range cards {
			if !used[c] {
				rest = append(rest, c)
			}
		}
		copy(cards, front)
		copy(cards[len(front):], rest)
	}
}

// Deck 牌堆，发牌从头部取
type Deck struct {
	cards   []Card
	shuffle Shuffler
}

func NewDeck(shuffle Shuffler) *Deck {
	if shuffle == nil {
		shuffle = RandShuffler(nil)
	}
	d := &Deck{shuffle: shuffle}
	d.Reset()
	return d
}

// Reset refills all 52 cards and shuffles.
func (d *Deck) Reset() {
	d.cards = FullDeck()
	d.shuffle(d.cards)
}

// Shuffle permutes the remaining cards.
func (d *Deck) Shuffle() {
	d.shuffle(d.cards)
}

// Remaining 剩余牌数
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// Deal removes and returns the first n cards.
func (d *Deck) Deal(n int) ([]Card, error) {
	if n < 0 || n > len(d.cards) {
		return nil, fmt.Errorf("%w: requested %d, have %d", ErrInsufficientCards, n, len(d.cards))
	}
	out := make([]Card, n)
	copy(out, d.cards[:n])
	d.cards = d.cards[n:]
	return out, nil
}

// Cards returns a copy of the remaining sequence.
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}

// Restore replaces the remaining sequence, e.g. from a snapshot.
func (d *Deck) Restore(cards []Card) error {
	seen := make(map[Card]bool, len(cards))
	for _, c := range cards {
		if !c.Valid() {
			return fmt.Errorf("%w: 0x%02x", ErrInvalidValue, byte(c))
		}
		if seen[c] {
			return fmt.Errorf("%w: duplicate %s", ErrInvalidValue, c)
		}
		seen[c] = true
	}
	d.cards = make([]Card, len(cards))
	copy(d.cards, cards)
	return nil
}

// Clone shares the shuffler but not the card sequence.
func (d *Deck) Clone() *Deck {
	return &Deck{cards: d.Cards(), shuffle: d.shuffle}
}
