package evaluator

import (
	"errors"
	"slices"

	"github.com/KmXK/dvoretskii-bot-sub000/internal/deck"
)

// ErrTooFewCards is returned when fewer than five cards are available.
var ErrTooFewCards = errors.New("at least five cards are required")

// Evaluate5 ranks exactly five cards.
func Evaluate5(cards []deck.Card) Hand {
	var counts [deck.Ace + 1]int
	flush := true
	for i, c := range cards {
		counts[c.Rank]++
		if i > 0 && c.Suit != cards[0].Suit {
			flush = false
		}
	}

	// groups ordered by count, then rank, both descending
	type group struct {
		rank  deck.Rank
		count int
	}
	groups := make([]group, 0, 5)
	for r := deck.Ace; r >= deck.Two; r-- {
		if counts[r] > 0 {
			groups = append(groups, group{rank: r, count: counts[r]})
		}
	}
	slices.SortStableFunc(groups, func(a, b group) int {
		return b.count - a.count
	})

	ranks := make([]deck.Rank, len(groups))
	for i, g := range groups {
		ranks[i] = g.rank
	}

	straightHigh := deck.Rank(0)
	if len(groups) == 5 {
		switch {
		case ranks[0]-ranks[4] == 4:
			straightHigh = ranks[0]
		case ranks[0] == deck.Ace && ranks[1] == deck.Five:
			straightHigh = deck.Five
		}
	}

	var (
		cat      Category
		tiebreak []deck.Rank
	)
	switch {
	case straightHigh > 0 && flush:
		cat, tiebreak = StraightFlush, []deck.Rank{straightHigh}
	case groups[0].count == 4:
		cat, tiebreak = FourOfAKind, ranks
	case groups[0].count == 3 && groups[1].count == 2:
		cat, tiebreak = FullHouse, ranks
	case flush:
		cat, tiebreak = Flush, ranks
	case straightHigh > 0:
		cat, tiebreak = Straight, []deck.Rank{straightHigh}
	case groups[0].count == 3:
		cat, tiebreak = ThreeOfAKind, ranks
	case groups[0].count == 2 && groups[1].count == 2:
		cat, tiebreak = TwoPair, ranks
	case groups[0].count == 2:
		cat, tiebreak = Pair, ranks
	default:
		cat, tiebreak = HighCard, ranks
	}

	return Hand{
		Category: cat,
		Score:    newScore(cat, tiebreak),
		Cards:    slices.Clone(cards),
		Tiebreak: tiebreak,
	}
}

// BestHand evaluates every five-card subset of hole+community and returns
// the strongest. Subsets are enumerated in index order and an equal score
// never replaces an earlier subset, so the result is deterministic.
func BestHand(hole, community []deck.Card) (Hand, error) {
	all := make([]deck.Card, 0, len(hole)+len(community))
	all = append(all, hole...)
	all = append(all, community...)

	n := len(all)
	if n < 5 {
		return Hand{}, ErrTooFewCards
	}

	var (
		best  Hand
		found bool
		combo [5]deck.Card
	)
	for a := 0; a < n-4; a++ {
		for b := a + 1; b < n-3; b++ {
			for c := b + 1; c < n-2; c++ {
				for d := c + 1; d < n-1; d++ {
					for e := d + 1; e < n; e++ {
						combo = [5]deck.Card{all[a], all[b], all[c], all[d], all[e]}
						h := Evaluate5(combo[:])
						if !found || h.Score > best.Score {
							best, found = h, true
						}
					}
				}
			}
		}
	}
	return best, nil
}
