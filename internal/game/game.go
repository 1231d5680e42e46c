package game

import (
	"errors"
	rand "math/rand/v2"

	"github.com/KmXK/dvoretskii-bot-sub000/internal/deck"
)

var (
	ErrNotInGame        = errors.New("not in game")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrNoActiveHand     = errors.New("no active hand")
	ErrCannotCheck      = errors.New("cannot check")
	ErrRaiseTooSmall    = errors.New("raise too small")
	ErrUnknownAction    = errors.New("unknown action")
	ErrNotEnoughPlayers = errors.New("need at least two players with chips")
	ErrAlreadySeated    = errors.New("player already seated")
	ErrHandInProgress   = errors.New("hand in progress")
)

// Game is the authoritative state of one table. It is not safe for
// concurrent use; the owning room serializes every call.
type Game struct {
	Players   []*Player
	Community []deck.Card
	Pot       int

	CurrentBet int
	MinRaise   int
	DealerIdx  int
	CurrentIdx int
	Phase      Phase
	HandNum    int

	Results    *Results
	LastAction *LastAction

	smallBlind int
	bigBlind   int
	// handBigBlind is the big blind in force for the hand being played.
	handBigBlind int

	deck    *deck.Deck
	newDeck func() *deck.Deck
}

// Option configures a Game during creation.
type Option func(*Game)

// WithBlinds sets the initial blinds.
func WithBlinds(small, big int) Option {
	return func(g *Game) {
		g.smallBlind = small
		g.bigBlind = big
	}
}

// WithDeckFunc overrides how a fresh deck is produced for each hand.
func WithDeckFunc(fn func() *deck.Deck) Option {
	return func(g *Game) {
		g.newDeck = fn
	}
}

// NewGame creates an empty table. The rng drives every shuffle so that a
// seeded generator replays identical deals.
func NewGame(rng *rand.Rand, opts ...Option) *Game {
	if rng == nil {
		panic("rng is required for game creation")
	}
	g := &Game{
		DealerIdx:  -1,
		CurrentIdx: -1,
		smallBlind: 10,
		bigBlind:   20,
	}
	g.newDeck = func() *deck.Deck { return deck.NewDeck(rng) }
	for _, opt := range opts {
		opt(g)
	}
	g.MinRaise = g.bigBlind
	g.handBigBlind = g.bigBlind
	return g
}

// Blinds returns the blinds that apply to the next hand.
func (g *Game) Blinds() (small, big int) {
	return g.smallBlind, g.bigBlind
}

// SetBlinds changes the blinds from the next hand onward.
func (g *Game) SetBlinds(small, big int) {
	g.smallBlind = small
	g.bigBlind = big
	if !g.Phase.Betting() {
		g.MinRaise = big
	}
}

// Seat returns the seat index of userID, or -1.
func (g *Game) Seat(userID int64) int {
	for i, p := range g.Players {
		if p.UserID == userID && !p.left {
			return i
		}
	}
	return -1
}

// Player returns the seated player for userID.
func (g *Game) Player(userID int64) (*Player, bool) {
	idx := g.Seat(userID)
	if idx < 0 {
		return nil, false
	}
	return g.Players[idx], true
}

// AddPlayer seats a new player. A player joining while a hand is running
// sits out until the next hand starts.
func (g *Game) AddPlayer(userID int64, name string, chips int, isBot bool) error {
	if g.Seat(userID) >= 0 {
		return ErrAlreadySeated
	}
	p := &Player{UserID: userID, Name: name, Chips: chips, IsBot: isBot}
	if g.Phase != PhaseWaiting {
		p.Folded = true
		p.SittingOut = true
	}
	g.Players = append(g.Players, p)
	return nil
}

// RemovePlayer unseats userID and returns the stack they leave with.
// During a hand the seat folds in place and is dropped before the next
// hand; if it held the turn, play advances.
func (g *Game) RemovePlayer(userID int64) (int, bool) {
	idx := g.Seat(userID)
	if idx < 0 {
		return 0, false
	}
	p := g.Players[idx]
	chips := p.Chips

	if g.Phase == PhaseWaiting {
		g.dropSeat(idx)
		return chips, true
	}

	p.Chips = 0
	p.Folded = true
	p.SittingOut = true
	p.left = true
	if g.Phase.Betting() {
		if len(g.active()) <= 1 {
			g.finishSingle()
		} else if g.CurrentIdx == idx {
			g.advance()
		}
	}
	return chips, true
}

// SetSittingOut toggles whether a seat is dealt into upcoming hands.
func (g *Game) SetSittingOut(userID int64, sittingOut bool) {
	if p, ok := g.Player(userID); ok {
		p.SittingOut = sittingOut
	}
}

// SetStack overwrites a seat's stack between hands.
func (g *Game) SetStack(userID int64, chips int) error {
	if g.Phase.Betting() {
		return ErrHandInProgress
	}
	p, ok := g.Player(userID)
	if !ok {
		return ErrNotInGame
	}
	p.Chips = chips
	return nil
}

// Reset returns the table to its pre-game state: stacks are left alone,
// the dealer button and hand counter restart and departed seats are dropped.
func (g *Game) Reset() {
	g.EndHand()
	g.HandNum = 0
	g.DealerIdx = -1
}

// EndHand abandons the current hand and returns to PhaseWaiting. Chips
// still in the pot go back to the seats that committed them. Seats that
// already left forfeit what they committed: those chips are neither
// refunded nor awarded and leave the table. EndHand returns the forfeited
// total.
func (g *Game) EndHand() int {
	forfeited := 0
	if g.Phase.Betting() && g.Pot > 0 {
		for _, p := range g.Players {
			if p.left {
				forfeited += p.TotalBet
				continue
			}
			p.Chips += p.TotalBet
		}
	}
	g.Pot = 0
	g.Phase = PhaseWaiting
	g.CurrentIdx = -1
	g.CurrentBet = 0
	g.MinRaise = g.bigBlind
	g.Community = nil
	for _, p := range g.Players {
		p.resetHand()
	}
	g.pruneLeft()
	return forfeited
}

func (g *Game) dropSeat(idx int) {
	g.Players = append(g.Players[:idx], g.Players[idx+1:]...)
	if idx <= g.DealerIdx {
		g.DealerIdx--
		if g.DealerIdx < 0 && len(g.Players) > 0 && g.HandNum > 0 {
			g.DealerIdx = len(g.Players) - 1
		}
	}
}

func (g *Game) pruneLeft() {
	for i := len(g.Players) - 1; i >= 0; i-- {
		if g.Players[i].left {
			g.dropSeat(i)
		}
	}
}

func (g *Game) active() []int {
	var idx []int
	for i, p := range g.Players {
		if p.InHand() {
			idx = append(idx, i)
		}
	}
	return idx
}

func (g *Game) canAct() []int {
	var idx []int
	for i, p := range g.Players {
		if p.CanAct() {
			idx = append(idx, i)
		}
	}
	return idx
}

// SeatedWithChips counts seats that are not sitting out and hold chips.
func (g *Game) SeatedWithChips() int {
	n := 0
	for _, p := range g.Players {
		if !p.SittingOut && p.Chips > 0 {
			n++
		}
	}
	return n
}

// next finds the first seat after idx, wrapping around, that satisfies
// pred. The seat at idx itself is checked last.
func (g *Game) next(idx int, pred func(*Player) bool) int {
	n := len(g.Players)
	for off := 1; off <= n; off++ {
		ni := ((idx+off)%n + n) % n
		if pred(g.Players[ni]) {
			return ni
		}
	}
	return -1
}

// StartHand deals a new hand: rotates the dealer, deals hole cards and
// posts blinds. If nobody can act after the blinds, the board is run out.
func (g *Game) StartHand() error {
	if g.Phase.Betting() {
		return ErrHandInProgress
	}
	g.pruneLeft()
	if g.SeatedWithChips() < 2 {
		return ErrNotEnoughPlayers
	}

	g.HandNum++
	g.deck = g.newDeck()
	g.Community = nil
	g.Pot = 0
	g.CurrentBet = 0
	g.handBigBlind = g.bigBlind
	g.MinRaise = g.bigBlind
	g.Results = nil
	g.LastAction = nil

	for _, p := range g.Players {
		p.resetHand()
		if p.Chips <= 0 || p.SittingOut {
			p.Folded = true
		}
	}
	active := g.active()

	if g.HandNum == 1 || g.DealerIdx < 0 {
		g.DealerIdx = active[0]
	} else {
		g.DealerIdx = g.next(g.DealerIdx, (*Player).InHand)
	}

	for _, i := range active {
		// 2 cards per seat for at most len(Players) seats never exhausts 52
		g.Players[i].HoleCards, _ = g.deck.Deal(2)
	}

	var sb, bb int
	if len(active) == 2 {
		sb = g.DealerIdx
		bb = g.next(sb, (*Player).InHand)
	} else {
		sb = g.next(g.DealerIdx, (*Player).InHand)
		bb = g.next(sb, (*Player).InHand)
	}
	g.Pot += g.Players[sb].commit(g.smallBlind)
	g.Pot += g.Players[bb].commit(g.bigBlind)
	g.CurrentBet = g.bigBlind

	g.Phase = PhasePreflop
	g.CurrentIdx = g.next(bb, (*Player).CanAct)
	if g.CurrentIdx < 0 {
		g.runOut()
	}
	return nil
}

func (g *Game) runOut() {
	for g.Phase != PhaseShowdown {
		g.nextPhase()
	}
}
