package game

import (
	"slices"

	"github.com/KmXK/dvoretskii-bot-sub000/internal/deck"
)

// PlayerView is the public projection of a seat.
type PlayerView struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Chips      int         `json:"chips"`
	Bet        int         `json:"bet"`
	TotalBet   int         `json:"totalBet"`
	Folded     bool        `json:"folded"`
	AllIn      bool        `json:"allIn"`
	SittingOut bool        `json:"sittingOut"`
	IsBot      bool        `json:"isBot"`
	Connected  bool        `json:"connected"`
	Cards      []deck.Card `json:"cards"`
}

// State is what one user is allowed to see of the table.
type State struct {
	Phase        Phase        `json:"phase"`
	Community    []deck.Card  `json:"community"`
	Pot          int          `json:"pot"`
	CurrentBet   int          `json:"currentBet"`
	DealerIndex  int          `json:"dealerIndex"`
	CurrentIndex int          `json:"currentIndex"`
	MyIndex      int          `json:"myIndex"`
	MyCards      []deck.Card  `json:"myCards"`
	Players      []PlayerView `json:"players"`
	MinRaise     int          `json:"minRaise"`
	MinRaiseTo   int          `json:"minRaiseTo"`
	CallAmount   int          `json:"callAmount"`
	HandNum      int          `json:"handNum"`
	Actions      []Action     `json:"actions"`
	Results      *Results     `json:"results"`
	LastAction   *LastAction  `json:"lastAction"`
	SmallBlind   int          `json:"smallBlind"`
	BigBlind     int          `json:"bigBlind"`
}

// StateFor projects the table for userID. Other seats' hole cards stay
// hidden until showdown, and actions are listed only on the caller's turn.
// The returned value shares no mutable memory with the game.
func (g *Game) StateFor(userID int64) State {
	idx := g.Seat(userID)

	// cards are revealed only when hands were actually compared
	reveal := g.Phase == PhaseShowdown && g.Results != nil && len(g.Results.Hands) > 0

	players := make([]PlayerView, len(g.Players))
	for i, p := range g.Players {
		pv := PlayerView{
			ID:         p.UserID,
			Name:       p.Name,
			Chips:      p.Chips,
			Bet:        p.Bet,
			TotalBet:   p.TotalBet,
			Folded:     p.Folded,
			AllIn:      p.AllIn,
			SittingOut: p.SittingOut,
			IsBot:      p.IsBot,
		}
		if reveal && !p.Folded && len(p.HoleCards) > 0 {
			pv.Cards = slices.Clone(p.HoleCards)
		}
		players[i] = pv
	}

	myCards := []deck.Card{}
	if idx >= 0 && len(g.Players[idx].HoleCards) > 0 {
		myCards = slices.Clone(g.Players[idx].HoleCards)
	}

	current := g.CurrentIdx
	if !g.Phase.Betting() {
		current = -1
	}

	actions := g.ValidActions(idx)
	if actions == nil {
		actions = []Action{}
	}

	community := append([]deck.Card{}, g.Community...)

	var last *LastAction
	if g.LastAction != nil {
		la := *g.LastAction
		last = &la
	}

	return State{
		Phase:        g.Phase,
		Community:    community,
		Pot:          g.Pot,
		CurrentBet:   g.CurrentBet,
		DealerIndex:  g.DealerIdx,
		CurrentIndex: current,
		MyIndex:      idx,
		MyCards:      myCards,
		Players:      players,
		MinRaise:     g.MinRaise,
		MinRaiseTo:   g.MinRaiseTo(),
		CallAmount:   g.CallAmount(idx),
		HandNum:      g.HandNum,
		Actions:      actions,
		Results:      g.Results.Clone(),
		LastAction:   last,
		SmallBlind:   g.smallBlind,
		BigBlind:     g.bigBlind,
	}
}
