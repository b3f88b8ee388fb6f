package card

import "fmt"

type Suit byte

const (
	Hearts   Suit = iota // ♥
	Diamonds             // ♦
	Clubs                // ♣
	Spades               // ♠
)

func (s Suit) String() string {
	if s > Spades {
		return "?"
	}
	return suitNames[s]
}

func (s Suit) Symbol() string {
	switch s {
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	case Spades:
		return "♠"
	}
	return "?"
}

func (s Suit) Letter() byte {
	switch s {
	case Hearts:
		return 'h'
	case Diamonds:
		return 'd'
	case Clubs:
		return 'c'
	case Spades:
		return 's'
	}
	return '?'
}

// ParseSuit accepts the lowercase suit names used on the wire.
func ParseSuit(name string) (Suit, error) {
	for i, n := range suitNames {
		if n == name {
			return Suit(i), nil
		}
	}
	return 0, fmt.Errorf("%w: suit %q", ErrInvalidValue, name)
}

func suitFromLetter(b byte) (Suit, error) {
	switch b {
	case 'h', 'H':
		return Hearts, nil
	case 'd', 'D':
		return Diamonds, nil
	case 'c', 'C':
		return Clubs, nil
	case 's', 'S':
		return Spades, nil
	}
	return 0, fmt.Errorf("%w: suit %q", ErrInvalidValue, string(b))
}
