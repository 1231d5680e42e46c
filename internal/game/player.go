package game

import "github.com/KmXK/dvoretskii-bot-sub000/internal/deck"

// Player is a seat at the table. The game owns every Player; callers
// read fields but never mutate them directly.
type Player struct {
	UserID int64
	Name   string
	IsBot  bool

	Chips     int
	HoleCards []deck.Card
	Bet       int // Current bet in this round
	TotalBet  int // Total bet in the hand

	Folded     bool
	AllIn      bool
	Acted      bool
	SittingOut bool

	// left marks a seat whose owner departed mid-hand. The seat stays in
	// place so its contribution remains in the pot and is removed before
	// the next hand.
	left bool
}

// InHand reports whether the player still contests the pot.
func (p *Player) InHand() bool {
	return !p.Folded && !p.SittingOut
}

// CanAct reports whether the player can still make betting decisions.
func (p *Player) CanAct() bool {
	return p.InHand() && !p.AllIn && p.Chips > 0
}

func (p *Player) resetHand() {
	p.HoleCards = nil
	p.Bet = 0
	p.TotalBet = 0
	p.Folded = false
	p.AllIn = false
	p.Acted = false
}

func (p *Player) resetRound() {
	p.Bet = 0
	p.Acted = false
}

// commit moves up to amount chips from the stack into the pot and
// returns how many actually moved.
func (p *Player) commit(amount int) int {
	actual := min(amount, p.Chips)
	p.Chips -= actual
	p.Bet += actual
	p.TotalBet += actual
	if p.Chips == 0 {
		p.AllIn = true
	}
	return actual
}
