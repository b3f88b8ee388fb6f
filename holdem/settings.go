package holdem

import (
	"fmt"
	"math/rand"

	"holdem-rooms/card"
)

// Settings are fixed for the lifetime of a table.
type Settings struct {
	SmallBlind int64 `json:"small_blind" mapstructure:"small_blind"`
	BigBlind   int64 `json:"big_blind" mapstructure:"big_blind"`
	MinBuyIn   int64 `json:"min_buy_in" mapstructure:"min_buy_in"`
	MaxBuyIn   int64 `json:"max_buy_in" mapstructure:"max_buy_in"`
}

func DefaultSettings() Settings {
	return Settings{SmallBlind: 1, BigBlind: 2, MinBuyIn: 40, MaxBuyIn: 200}
}

func (s Settings) Validate() error {
	if s.SmallBlind <= 0 || s.BigBlind <= 0 || s.SmallBlind > s.BigBlind {
		return fmt.Errorf("%w: blinds sb=%d bb=%d", ErrInvalidSettings, s.SmallBlind, s.BigBlind)
	}
	if s.MinBuyIn <= 0 || s.MaxBuyIn <= 0 || s.MinBuyIn > s.MaxBuyIn {
		return fmt.Errorf("%w: buy-in range %d-%d", ErrInvalidSettings, s.MinBuyIn, s.MaxBuyIn)
	}
	return nil
}

// clampBuyIn 买入额限制在 [min, max]
func (s Settings) clampBuyIn(stack int64) int64 {
	if stack < s.MinBuyIn {
		return s.MinBuyIn
	}
	if stack > s.MaxBuyIn {
		return s.MaxBuyIn
	}
	return stack
}

// Option customizes a Table at construction or restore.
type Option func(*Table)

// WithShuffler replaces the deck shuffle, e.g. card.Stack in tests.
func WithShuffler(s card.Shuffler) Option {
	return func(t *Table) { t.shuffle = s }
}

// WithSeed makes shuffles reproducible (0 keeps a time-based seed).
func WithSeed(seed int64) Option {
	return func(t *Table) {
		if seed != 0 {
			t.shuffle = card.RandShuffler(rand.New(rand.NewSource(seed)))
		}
	}
}
