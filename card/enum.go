package card

// Ranks 点数从小到大
var Ranks = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}

var suitNames = [...]string{"hearts", "diamonds", "clubs", "spades"}

// Suits in deck-build order.
var Suits = []Suit{Hearts, Diamonds, Clubs, Spades}

var rankValues = func() map[string]int {
	m := make(map[string]int, len(Ranks))
	for i, r := range Ranks {
		m[r] = i + 2
	}
	return m
}()

// FullDeck returns the 52 cards in suit-major order, unshuffled.
func FullDeck() []Card {
	cards := make([]Card, 0, 52)
	for _, s := range Suits {
		for v := 2; v <= 14; v++ {
			cards = append(cards, compose(s, v))
		}
	}
	return cards
}
