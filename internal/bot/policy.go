// Package bot decides actions for computer-controlled seats.
//
// Decide is a pure function of the table state plus a random source; bots
// keep no memory between decisions.
package bot

import (
	"fmt"
	rand "math/rand/v2"

	"github.com/KmXK/dvoretskii-bot-sub000/internal/deck"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/evaluator"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/game"
)

// Difficulty selects how tight and aggressive a bot plays.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ParseDifficulty maps a wire value to a Difficulty, defaulting to Medium.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(s) {
	case Easy, Hard:
		return Difficulty(s)
	default:
		return Medium
	}
}

// Decision is a bot's chosen action. Amount is the raise-to total.
type Decision struct {
	Action game.Action
	Amount int
	Reason string
}

func (d Decision) String() string {
	if d.Action == game.Raise {
		return fmt.Sprintf("%s %d (%s)", d.Action, d.Amount, d.Reason)
	}
	return fmt.Sprintf("%s (%s)", d.Action, d.Reason)
}

// Decide chooses an action for the seat that currently holds the turn.
// The result is always one of g.ValidActions(seat).
func Decide(g *game.Game, seat int, difficulty Difficulty, rng *rand.Rand) Decision {
	s := newSpot(g, seat, rng)
	if s == nil {
		return Decision{Action: game.Fold, Reason: "not my turn"}
	}
	switch difficulty {
	case Easy:
		return s.easy()
	case Hard:
		return s.hard()
	default:
		return s.medium()
	}
}

// Fallback returns the safest always-legal action: check when free,
// otherwise fold.
func Fallback(g *game.Game, seat int) game.Action {
	if g.IsValid(seat, game.Check) {
		return game.Check
	}
	return game.Fold
}

// spot bundles what a decision needs to know about the table.
type spot struct {
	g    *game.Game
	p    *game.Player
	seat int
	rng  *rand.Rand

	toCall int
	bb     int
	pot    int
}

func newSpot(g *game.Game, seat int, rng *rand.Rand) *spot {
	if seat < 0 || seat >= len(g.Players) || len(g.ValidActions(seat)) == 0 {
		return nil
	}
	_, bb := g.Blinds()
	return &spot{
		g:      g,
		p:      g.Players[seat],
		seat:   seat,
		rng:    rng,
		toCall: g.CallAmount(seat),
		bb:     max(bb, 1),
		pot:    g.Pot,
	}
}

func (s *spot) can(a game.Action) bool { return s.g.IsValid(s.seat, a) }

func (s *spot) canCheck() bool { return s.can(game.Check) }
func (s *spot) canRaise() bool { return s.can(game.Raise) }

func (s *spot) chance(p float64) bool { return s.rng.Float64() < p }

// between returns a uniform integer in [lo, hi].
func (s *spot) between(lo, hi int) int { return lo + s.rng.IntN(hi-lo+1) }

func (s *spot) potOdds() float64 {
	if s.pot+s.toCall == 0 {
		return 0
	}
	return float64(s.toCall) / float64(s.pot+s.toCall)
}

func (s *spot) check(reason string) Decision {
	if s.canCheck() {
		return Decision{Action: game.Check, Reason: reason}
	}
	return Decision{Action: game.Fold, Reason: reason}
}

func (s *spot) fold(reason string) Decision {
	if s.canCheck() {
		return Decision{Action: game.Check, Reason: reason}
	}
	return Decision{Action: game.Fold, Reason: reason}
}

// call continues in the hand: check, call, or all-in when the stack does
// not cover the call.
func (s *spot) call(reason string) Decision {
	for _, a := range []game.Action{game.Check, game.Call, game.AllIn} {
		if s.can(a) && (a != game.AllIn || s.p.Chips <= s.toCall) {
			return Decision{Action: a, Reason: reason}
		}
	}
	return Decision{Action: game.Fold, Reason: reason}
}

// raise bets by extra over the current bet, clamped to a legal size.
// Sizes reaching the whole stack become all-in; when raising is closed it
// degrades to a call.
func (s *spot) raise(extra int, reason string) Decision {
	if !s.canRaise() {
		return s.call(reason)
	}
	to := max(s.g.CurrentBet+extra, s.g.MinRaiseTo())
	if to >= s.p.Chips+s.p.Bet {
		return Decision{Action: game.AllIn, Reason: reason}
	}
	return Decision{Action: game.Raise, Amount: to, Reason: reason}
}

func (s *spot) category() evaluator.Category {
	h, err := evaluator.BestHand(s.p.HoleCards, s.g.Community)
	if err != nil {
		return evaluator.HighCard
	}
	return h.Category
}

func (s *spot) preflop() bool { return len(s.g.Community) == 0 }

// PreflopScore rates two hole cards on a rough 0-100 scale from pairing,
// suitedness, connectedness and high cards.
func PreflopScore(hole []deck.Card) int {
	if len(hole) < 2 {
		return 0
	}
	r1, r2 := int(hole[0].Rank), int(hole[1].Rank)
	if r1 == r2 {
		return min(r1*6, 100)
	}
	high, low := max(r1, r2), min(r1, r2)
	score := high*2 + low
	if hole[0].Suit == hole[1].Suit {
		score += 4
	}
	if high-low <= 2 {
		score += 3
	}
	switch {
	case high >= int(deck.Ace):
		score += 8
	case high >= int(deck.King):
		score += 5
	case high >= int(deck.Queen):
		score += 3
	}
	return score
}

func (s *spot) easy() Decision {
	if s.toCall == 0 {
		if s.chance(0.15) {
			return s.raise(s.bb*2, "random stab")
		}
		return s.check("free card")
	}
	if s.toCall <= s.bb*2 {
		if s.chance(0.7) {
			return s.call("cheap call")
		}
		return s.fold("cheap fold")
	}
	if s.toCall <= s.bb*5 {
		if s.chance(0.4) {
			return s.call("medium call")
		}
		return s.fold("too expensive")
	}
	if !s.preflop() && s.category() >= evaluator.TwoPair && s.chance(0.6) {
		return s.call("made hand")
	}
	if s.chance(0.15) {
		return s.call("hero call")
	}
	return s.fold("too expensive")
}

func (s *spot) medium() Decision {
	if s.preflop() {
		pf := PreflopScore(s.p.HoleCards)
		switch {
		case pf >= 60:
			return s.raise(s.bb*s.between(2, 4), "premium hand")
		case pf >= 35:
			if s.toCall <= s.bb*4 {
				return s.call("playable hand")
			}
			return s.fold("playable hand, big raise")
		case pf >= 20:
			if s.canCheck() {
				return s.check("marginal hand")
			}
			if s.toCall <= s.bb*2 {
				return s.call("marginal hand, cheap")
			}
			return s.fold("marginal hand")
		}
		if s.canCheck() {
			return s.check("weak hand")
		}
		if s.toCall <= s.bb && s.chance(0.3) {
			return s.call("weak hand, cheap")
		}
		return s.fold("weak hand")
	}

	cat := s.category()
	switch {
	case cat >= evaluator.Flush:
		return s.raise(max(s.bb*3, s.pot/2), "monster")
	case cat >= evaluator.ThreeOfAKind:
		if s.chance(0.6) && s.canRaise() {
			return s.raise(max(s.bb*2, s.pot/3), "strong hand")
		}
		return s.call("strong hand")
	case cat >= evaluator.Pair:
		if s.canCheck() {
			if s.chance(0.3) && s.canRaise() {
				return s.raise(s.bb*2, "pair, small stab")
			}
			return s.check("pair")
		}
		if s.potOdds() < 0.35 || s.toCall <= s.bb*3 {
			return s.call("pair, priced in")
		}
		return s.fold("pair, too expensive")
	}

	if s.canCheck() {
		if s.chance(0.15) && s.canRaise() {
			return s.raise(s.bb*2, "bluff")
		}
		return s.check("nothing")
	}
	if s.toCall <= s.bb && s.chance(0.2) {
		return s.call("nothing, cheap")
	}
	if s.chance(0.08) && s.canRaise() {
		return s.raise(s.bb*s.between(2, 4), "bluff raise")
	}
	return s.fold("nothing")
}

func (s *spot) hard() Decision {
	if s.preflop() {
		return s.hardPreflop()
	}

	cat := s.category()
	odds := s.potOdds()
	drawEquity := DetectDraws(s.p.HoleCards, s.g.Community).Equity(len(s.g.Community))

	switch {
	case cat >= evaluator.FullHouse:
		if s.chance(0.3) {
			return s.raise(max(s.bb*2, s.pot/4), "monster, slow")
		}
		return s.raise(max(s.bb*4, s.pot), "monster")
	case cat >= evaluator.Straight:
		return s.raise(max(s.bb*3, s.pot*6/10), "strong made hand")
	case cat >= evaluator.ThreeOfAKind:
		if s.chance(0.7) && s.canRaise() {
			return s.raise(max(s.bb*2, s.pot/3), "trips")
		}
		return s.call("trips")
	case cat >= evaluator.TwoPair:
		if s.canCheck() {
			if s.chance(0.4) && s.canRaise() {
				return s.raise(max(s.bb*2, s.pot/3), "two pair, value")
			}
			return s.check("two pair")
		}
		if odds < 0.3 || s.toCall <= s.bb*4 {
			return s.call("two pair, priced in")
		}
		return s.fold("two pair, too expensive")
	case cat >= evaluator.Pair:
		if s.canCheck() {
			if s.chance(0.25) && s.canRaise() {
				return s.raise(s.bb*2, "pair, small stab")
			}
			return s.check("pair")
		}
		if odds < 0.25 || s.toCall <= s.bb*2 {
			return s.call("pair, priced in")
		}
		return s.fold("pair, too expensive")
	}

	if drawEquity > 0.1 {
		if s.canCheck() {
			if s.chance(0.3) && s.canRaise() {
				return s.raise(max(s.bb*2, s.pot/2), "semi-bluff")
			}
			return s.check("drawing")
		}
		if (odds < drawEquity+0.05 || s.toCall <= s.bb*3) && s.can(game.Call) {
			return s.call("drawing, priced in")
		}
		return s.fold("draw not priced in")
	}

	if s.canCheck() {
		if s.chance(0.1) && s.canRaise() {
			return s.raise(max(s.bb*3, s.pot*7/10), "bluff")
		}
		return s.check("nothing")
	}
	if s.chance(0.06) && s.canRaise() {
		return s.raise(s.bb*s.between(3, 5), "bluff raise")
	}
	return s.fold("nothing")
}

func (s *spot) hardPreflop() Decision {
	pf := PreflopScore(s.p.HoleCards)
	active := 0
	for _, p := range s.g.Players {
		if p.InHand() {
			active++
		}
	}

	switch {
	case pf >= 65:
		return s.raise(s.bb*s.between(3, 5), "premium hand")
	case pf >= 45:
		if s.toCall <= s.bb*3 {
			if s.chance(0.5) && s.canRaise() {
				return s.raise(s.bb*s.between(2, 3), "strong hand")
			}
			return s.call("strong hand")
		}
		if s.toCall <= s.bb*6 && (s.canCheck() || s.can(game.Call)) {
			return s.call("strong hand, big raise")
		}
		return s.fold("strong hand, too expensive")
	case pf >= 30:
		if s.canCheck() {
			return s.check("speculative hand")
		}
		if s.toCall <= s.bb*2 && active <= 3 {
			return s.call("speculative hand, short-handed")
		}
		return s.fold("speculative hand")
	}

	if s.canCheck() {
		if s.chance(0.12) && s.canRaise() {
			return s.raise(s.bb*3, "steal")
		}
		return s.check("weak hand")
	}
	return s.fold("weak hand")
}
