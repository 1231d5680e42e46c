package deck

import (
	"errors"
	rand "math/rand/v2"
)

// ErrNotEnoughCards is returned when a deal asks for more cards than remain.
var ErrNotEnoughCards = errors.New("not enough cards in deck")

// Deck represents a deck of playing cards
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewDeck creates a standard 52-card deck and shuffles it with rng.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{cards: make([]Card, 0, 52), rng: rng}
	d.Reset()
	return d
}

// Shuffle applies a Fisher-Yates permutation to the remaining cards.
func (d *Deck) Shuffle() {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal removes and returns n cards from the front of the deck.
func (d *Deck) Deal(n int) ([]Card, error) {
	if n < 0 || n > len(d.cards) {
		return nil, ErrNotEnoughCards
	}
	dealt := make([]Card, n)
	copy(dealt, d.cards[:n])
	d.cards = d.cards[n:]
	return dealt, nil
}

// CardsRemaining returns the number of cards left in the deck
func (d *Deck) CardsRemaining() int {
	return len(d.cards)
}

// Reset restores the deck to a full 52-card deck and shuffles it
func (d *Deck) Reset() {
	d.cards = d.cards[:0]
	for rank := Two; rank <= Ace; rank++ {
		for suit := Hearts; suit <= Spades; suit++ {
			d.cards = append(d.cards, NewCard(rank, suit))
		}
	}
	d.Shuffle()
}

// FromCards builds an unshuffled deck that deals cards in the given order.
// It is used to replay recorded hands and to stack decks in tests.
func FromCards(cards []Card) *Deck {
	return &Deck{cards: append([]Card(nil), cards...)}
}
