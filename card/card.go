package card

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Card 牌值
//
// 编码规则:
// - 高4位: 花色 (0:Hearts, 1:Diamonds, 2:Clubs, 3:Spades)
// - 低4位: 点数 (2..14, A=14)
type Card byte

const CardInvalid Card = 0

var (
	ErrInvalidValue      = errors.New("invalid card value")
	ErrInsufficientCards = errors.New("insufficient cards")
)

// New builds a card from a rank ("2".."10", "J", "Q", "K", "A") and a suit name.
func New(rank, suit string) (Card, error) {
	v, ok := rankValues[rank]
	if !ok {
		return CardInvalid, fmt.Errorf("%w: rank %q", ErrInvalidValue, rank)
	}
	s, err := ParseSuit(suit)
	if err != nil {
		return CardInvalid, err
	}
	return compose(s, v), nil
}

func compose(s Suit, value int) Card {
	return Card(byte(s)<<4 | byte(value))
}

// Parse reads the short form used in logs and tests: "As", "Td", "10h".
func Parse(s string) (Card, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return CardInvalid, fmt.Errorf("%w: %q", ErrInvalidValue, s)
	}
	suit, err := suitFromLetter(s[len(s)-1])
	if err != nil {
		return CardInvalid, err
	}
	rank := strings.ToUpper(s[:len(s)-1])
	if rank == "T" {
		rank = "10"
	}
	v, ok := rankValues[rank]
	if !ok {
		return CardInvalid, fmt.Errorf("%w: rank %q", ErrInvalidValue, rank)
	}
	return compose(suit, v), nil
}

// MustParse is Parse for fixtures; it panics on malformed input.
func MustParse(s string) Card {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Value 点数 2..14
func (c Card) Value() int { return int(c & 0x0F) }

func (c Card) Suit() Suit { return Suit(c >> 4) }

// Rank returns the rank label ("2".."10", "J", "Q", "K", "A").
func (c Card) Rank() string {
	v := c.Value()
	if v < 2 || v > 14 {
		return "?"
	}
	return Ranks[v-2]
}

func (c Card) Valid() bool {
	v := c.Value()
	return v >= 2 && v <= 14 && c.Suit() <= Spades
}

// Code is the two or three character form accepted by Parse.
func (c Card) Code() string {
	if !c.Valid() {
		return "??"
	}
	return c.Rank() + string(c.Suit().Letter())
}

func (c Card) String() string {
	if !c.Valid() {
		return "Invalid"
	}
	return c.Rank() + c.Suit().Symbol()
}

type cardJSON struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

func (c Card) MarshalJSON() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: 0x%02x", ErrInvalidValue, byte(c))
	}
	return json.Marshal(cardJSON{Rank: c.Rank(), Suit: c.Suit().String()})
}

func (c *Card) UnmarshalJSON(data []byte) error {
	var raw cardJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := New(raw.Rank, raw.Suit)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
