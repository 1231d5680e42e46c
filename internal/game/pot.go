package game

import (
	"maps"
	"slices"

	"github.com/KmXK/dvoretskii-bot-sub000/internal/deck"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/evaluator"
)

// HandResult describes one seat's showdown hand.
type HandResult struct {
	Category evaluator.Category `json:"score"`
	Name     string             `json:"name"`
	Cards    []deck.Card        `json:"cards"`
	Won      int                `json:"won"`
}

// Results is the settlement record of the last finished hand.
type Results struct {
	Winners []int              `json:"winners"`
	Pot     int                `json:"pot"`
	Hands   map[int]HandResult `json:"hands"`
	// Won maps seat index to chips awarded, including uncontested pots.
	Won map[int]int `json:"-"`
}

// Clone returns a deep copy of r. A nil receiver clones to nil.
func (r *Results) Clone() *Results {
	if r == nil {
		return nil
	}
	c := &Results{
		Winners: slices.Clone(r.Winners),
		Pot:     r.Pot,
		Hands:   make(map[int]HandResult, len(r.Hands)),
		Won:     maps.Clone(r.Won),
	}
	for i, h := range r.Hands {
		h.Cards = slices.Clone(h.Cards)
		c.Hands[i] = h
	}
	return c
}

// SidePot is one tier of the pot and the seats that can win it.
type SidePot struct {
	Amount   int
	Eligible []int
}

// SidePots splits the pot into tiers by the distinct total bets of seats
// still in the hand. Every chip committed by any seat, folded or not, lands
// in exactly one tier up to the highest live bet.
func (g *Game) SidePots() []SidePot {
	active := g.active()

	levels := make([]int, 0, len(active))
	for _, i := range active {
		levels = append(levels, g.Players[i].TotalBet)
	}
	slices.Sort(levels)
	levels = slices.Compact(levels)

	var pots []SidePot
	prev := 0
	for _, level := range levels {
		if level <= prev {
			continue
		}
		amount := 0
		for _, p := range g.Players {
			amount += min(p.TotalBet, level) - min(p.TotalBet, prev)
		}
		var eligible []int
		for _, i := range active {
			if g.Players[i].TotalBet >= level {
				eligible = append(eligible, i)
			}
		}
		if amount > 0 && len(eligible) > 0 {
			pots = append(pots, SidePot{Amount: amount, Eligible: eligible})
		}
		prev = level
	}
	return pots
}

// finishSingle awards the whole pot to the last seat standing without a
// showdown.
func (g *Game) finishSingle() {
	active := g.active()
	g.Phase = PhaseShowdown
	g.CurrentIdx = -1
	if len(active) > 0 {
		w := active[0]
		g.Players[w].Chips += g.Pot
		g.Results = &Results{
			Winners: []int{w},
			Pot:     g.Pot,
			Hands:   map[int]HandResult{},
			Won:     map[int]int{w: g.Pot},
		}
	}
	g.Pot = 0
}

// showdown evaluates every live hand and pays each tier to its best
// eligible hand. Split tiers give one leftover chip each to the first
// winners in seat order.
func (g *Game) showdown() {
	g.Phase = PhaseShowdown
	g.CurrentIdx = -1
	active := g.active()
	if len(active) <= 1 {
		g.finishSingle()
		return
	}

	hands := make(map[int]evaluator.Hand, len(active))
	for _, i := range active {
		// hole (2) + full board (5) always has enough cards
		hands[i], _ = evaluator.BestHand(g.Players[i].HoleCards, g.Community)
	}

	won := make(map[int]int)
	distributed := 0
	var topWinner = -1
	for _, pot := range g.SidePots() {
		var best evaluator.Score
		for _, i := range pot.Eligible {
			best = max(best, hands[i].Score)
		}
		var winners []int
		for _, i := range pot.Eligible {
			if hands[i].Score == best {
				winners = append(winners, i)
			}
		}
		share := pot.Amount / len(winners)
		remainder := pot.Amount % len(winners)
		for j, w := range winners {
			amount := share
			if j < remainder {
				amount++
			}
			g.Players[w].Chips += amount
			won[w] += amount
		}
		distributed += pot.Amount
		topWinner = winners[0]
	}

	if leftover := g.Pot - distributed; leftover > 0 && topWinner >= 0 {
		g.Players[topWinner].Chips += leftover
		won[topWinner] += leftover
		distributed += leftover
	}

	res := &Results{
		Pot:   distributed,
		Hands: make(map[int]HandResult, len(active)),
		Won:   won,
	}
	for _, i := range active {
		if won[i] > 0 {
			res.Winners = append(res.Winners, i)
		}
		h := hands[i]
		res.Hands[i] = HandResult{
			Category: h.Category,
			Name:     h.Category.String(),
			Cards:    h.Cards,
			Won:      won[i],
		}
	}
	g.Results = res
	g.Pot = 0
}
