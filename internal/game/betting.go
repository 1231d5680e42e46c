package game

import "fmt"

// Act applies a betting action for userID. Amount is the raise-to total
// and is ignored for other actions. A rejected action leaves the game
// untouched.
func (g *Game) Act(userID int64, action Action, amount int) error {
	idx := g.Seat(userID)
	if idx < 0 {
		return ErrNotInGame
	}
	if idx != g.CurrentIdx {
		return ErrNotYourTurn
	}
	if !g.Phase.Betting() {
		return ErrNoActiveHand
	}

	p := g.Players[idx]
	switch action {
	case Fold:
		p.Folded = true
		p.Acted = true
		g.LastAction = &LastAction{Player: idx, Action: Fold}
		if len(g.active()) <= 1 {
			g.finishSingle()
			return nil
		}

	case Check:
		if g.CurrentBet > p.Bet {
			return ErrCannotCheck
		}
		p.Acted = true
		g.LastAction = &LastAction{Player: idx, Action: Check}

	case Call:
		toCall := g.CurrentBet - p.Bet
		p.Acted = true
		if toCall <= 0 {
			g.LastAction = &LastAction{Player: idx, Action: Check}
			break
		}
		actual := p.commit(toCall)
		g.Pot += actual
		g.LastAction = &LastAction{Player: idx, Action: Call, Amount: actual}

	case Raise:
		if amount >= p.Chips+p.Bet {
			return g.allIn(idx)
		}
		minTo := g.CurrentBet + g.MinRaise
		if amount < minTo {
			return fmt.Errorf("%w: minimum is %d", ErrRaiseTooSmall, minTo)
		}
		g.MinRaise = max(g.MinRaise, amount-g.CurrentBet)
		g.CurrentBet = amount
		g.reopen(idx)
		g.Pot += p.commit(amount - p.Bet)
		p.Acted = true
		g.LastAction = &LastAction{Player: idx, Action: Raise, Amount: amount}

	case AllIn:
		return g.allIn(idx)

	default:
		return ErrUnknownAction
	}

	g.advance()
	return nil
}

// allIn commits the whole stack. Reaching the minimum raise increment is a
// full raise: it grows the increment and clears everyone else's acted flag.
// A smaller excess only lifts the current bet; seats below it still get
// their turn back and may call, raise or shove.
func (g *Game) allIn(idx int) error {
	p := g.Players[idx]
	newBet := p.Bet + p.Chips
	if newBet > g.CurrentBet {
		raiseBy := newBet - g.CurrentBet
		if raiseBy >= g.MinRaise {
			g.MinRaise = raiseBy
			g.reopen(idx)
		}
		g.CurrentBet = newBet
	}
	g.Pot += p.commit(p.Chips)
	p.Acted = true
	g.LastAction = &LastAction{Player: idx, Action: AllIn, Amount: newBet}
	g.advance()
	return nil
}

func (g *Game) reopen(raiser int) {
	for i, p := range g.Players {
		if i != raiser && p.CanAct() {
			p.Acted = false
		}
	}
}

// advance moves the turn to the next seat that owes a decision, or closes
// the betting round.
func (g *Game) advance() {
	active := g.active()
	if len(active) <= 1 {
		g.finishSingle()
		return
	}

	roundDone := true
	for _, i := range active {
		p := g.Players[i]
		if p.AllIn {
			continue
		}
		if !p.Acted || p.Bet < g.CurrentBet {
			roundDone = false
			break
		}
	}
	if roundDone || len(g.canAct()) == 0 {
		g.nextPhase()
		return
	}

	ni := g.next(g.CurrentIdx, func(p *Player) bool {
		return p.CanAct() && (!p.Acted || p.Bet < g.CurrentBet)
	})
	if ni < 0 {
		g.nextPhase()
		return
	}
	g.CurrentIdx = ni
}

// nextPhase closes the current street and deals the next one. When at most
// one seat can still act it keeps dealing until showdown.
func (g *Game) nextPhase() {
	for _, p := range g.Players {
		p.resetRound()
	}
	g.CurrentBet = 0
	g.MinRaise = g.handBigBlind

	canAct := len(g.canAct())

	switch g.Phase {
	case PhasePreflop:
		g.deal(3)
		g.Phase = PhaseFlop
	case PhaseFlop:
		g.deal(1)
		g.Phase = PhaseTurn
	case PhaseTurn:
		g.deal(1)
		g.Phase = PhaseRiver
	case PhaseRiver:
		g.showdown()
		return
	default:
		return
	}

	if canAct <= 1 {
		g.nextPhase()
		return
	}

	g.CurrentIdx = g.next(g.DealerIdx, (*Player).CanAct)
	if g.CurrentIdx < 0 {
		g.nextPhase()
	}
}

func (g *Game) deal(n int) {
	cards, _ := g.deck.Deal(n)
	g.Community = append(g.Community, cards...)
}

// CallAmount returns what the seat must add to match the current bet.
func (g *Game) CallAmount(idx int) int {
	if idx < 0 || idx >= len(g.Players) {
		return 0
	}
	return max(0, g.CurrentBet-g.Players[idx].Bet)
}

// MinRaiseTo is the smallest legal raise-to total.
func (g *Game) MinRaiseTo() int {
	return g.CurrentBet + g.MinRaise
}

// ValidActions lists the actions the seat may take right now. It is empty
// unless the seat holds the turn during a betting round.
func (g *Game) ValidActions(idx int) []Action {
	if idx < 0 || idx != g.CurrentIdx || !g.Phase.Betting() {
		return nil
	}
	p := g.Players[idx]
	toCall := g.CallAmount(idx)

	actions := []Action{Fold}
	switch {
	case toCall <= 0:
		actions = append(actions, Check)
	case toCall < p.Chips:
		actions = append(actions, Call)
	}
	if p.Chips > 0 {
		if toCall < p.Chips {
			actions = append(actions, Raise)
		}
		actions = append(actions, AllIn)
	}
	return actions
}

// IsValid reports whether action appears in ValidActions(idx).
func (g *Game) IsValid(idx int, action Action) bool {
	for _, a := range g.ValidActions(idx) {
		if a == action {
			return true
		}
	}
	return false
}
