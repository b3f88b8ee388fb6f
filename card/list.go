package card

import (
	"fmt"
	"strings"
)

// ParseList reads a whitespace separated list such as "Ah Kd 10c".
func ParseList(s string) ([]Card, error) {
	fields := strings.Fields(s)
	out := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := Parse(f)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", s, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// MustParseList panics on malformed input.
func MustParseList(s string) []Card {
	cards, err := ParseList(s)
	if err != nil {
		panic(err)
	}
	return cards
}

func Format(cards []Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.Code()
	}
	return strings.Join(parts, " ")
}

func Contains(cards []Card, c Card) bool {
	for _, cc := range cards {
		if cc == c {
			return true
		}
	}
	return false
}
