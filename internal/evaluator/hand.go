package evaluator

import (
	"github.com/KmXK/dvoretskii-bot-sub000/internal/deck"
)

// Category is the class of a five-card poker hand, ordered weakest first.
type Category int

const (
	HighCard Category = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

var categoryNames = [...]string{
	"High Card",
	"Pair",
	"Two Pair",
	"Three of a Kind",
	"Straight",
	"Flush",
	"Full House",
	"Four of a Kind",
	"Straight Flush",
}

// String returns a human-readable hand description
func (c Category) String() string {
	if c < HighCard || c > StraightFlush {
		return "Unknown"
	}
	return categoryNames[c]
}

// Score is a totally ordered hand strength. The high bits hold the
// category and the low 20 bits hold up to five tie-break ranks, one per
// nibble, most significant first.
type Score uint32

const categoryShift = 20

// Category extracts the hand category from the score.
func (s Score) Category() Category {
	return Category(s >> categoryShift)
}

func newScore(cat Category, tiebreak []deck.Rank) Score {
	s := Score(cat) << categoryShift
	for i, r := range tiebreak {
		s |= Score(r) << (4 * (4 - i))
	}
	return s
}

// Hand is an evaluated five-card hand.
type Hand struct {
	Category Category
	Score    Score
	// Cards is the five-card subset that produced the score.
	Cards []deck.Card
	// Tiebreak lists the ranks compared after the category, in order.
	// A wheel straight reports Five as its high card.
	Tiebreak []deck.Rank
}

// Compare returns 1 if h beats other, -1 if it loses and 0 on a tie.
func (h Hand) Compare(other Hand) int {
	switch {
	case h.Score > other.Score:
		return 1
	case h.Score < other.Score:
		return -1
	default:
		return 0
	}
}

// String returns the category name.
func (h Hand) String() string {
	return h.Category.String()
}
