package bot

import (
	"math/bits"
	"slices"

	"github.com/KmXK/dvoretskii-bot-sub000/internal/deck"
)

// DrawInfo summarises the drawing potential of hole cards plus board.
type DrawInfo struct {
	FlushDraw    bool
	StraightDraw bool
}

// Equity is a rough chance of completing a draw by the river, as a
// fraction of one. Draws on the turn have one card to come.
func (d DrawInfo) Equity(communityCards int) float64 {
	var eq float64
	if d.FlushDraw {
		if communityCards == 3 {
			eq += 0.18
		} else {
			eq += 0.09
		}
	}
	if d.StraightDraw {
		if communityCards == 3 {
			eq += 0.16
		} else {
			eq += 0.08
		}
	}
	return eq
}

// DetectDraws finds four-flush and four-to-a-straight patterns. A straight
// draw is any five-rank span, ace high or low, holding four of the ranks.
func DetectDraws(hole, community []deck.Card) DrawInfo {
	var info DrawInfo
	if len(hole) == 0 || len(community) == 0 {
		return info
	}
	all := append(slices.Clone(hole), community...)

	var suits [4]int
	var ranks uint16
	for _, c := range all {
		suits[c.Suit]++
		ranks |= 1 << c.Rank
	}
	for _, n := range suits {
		if n == 4 {
			info.FlushDraw = true
		}
	}

	// the ace also plays low, below the two
	if ranks&(1<<deck.Ace) != 0 {
		ranks |= 1 << 1
	}
	for low := 1; low+4 <= int(deck.Ace); low++ {
		window := ranks >> low & 0b11111
		if bits.OnesCount16(window) >= 4 {
			info.StraightDraw = true
			break
		}
	}
	return info
}
