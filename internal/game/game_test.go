package game

import (
	"testing"

	"github.com/KmXK/dvoretskii-bot-sub000/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestGame seats one player per stack with user ids 1..n and 10/20 blinds.
func newTestGame(t *testing.T, seed int64, stacks ...int) *Game {
	t.Helper()
	g := NewGame(randutil.New(seed), WithBlinds(10, 20))
	names := []string{"alice", "bob", "carol", "dave", "erin", "frank", "grace", "heidi"}
	for i, chips := range stacks {
		require.NoError(t, g.AddPlayer(int64(i+1), names[i], chips, false))
	}
	return g
}

func totalChips(g *Game) int {
	sum := g.Pot
	for _, p := range g.Players {
		sum += p.Chips
	}
	return sum
}

func TestAddPlayerRejectsDuplicate(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, 1, 1000)
	require.ErrorIs(t, g.AddPlayer(1, "again", 500, false), ErrAlreadySeated)
	assert.Len(t, g.Players, 1)
}

func TestStartHandNeedsTwoStacks(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, 1, 1000, 0)
	require.ErrorIs(t, g.StartHand(), ErrNotEnoughPlayers)
	assert.Equal(t, PhaseWaiting, g.Phase)
	assert.Equal(t, 0, g.HandNum)
}

func TestHeadsUpBlinds(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, 1, 1000, 1000)
	require.NoError(t, g.StartHand())

	assert.Equal(t, PhasePreflop, g.Phase)
	assert.Equal(t, 0, g.DealerIdx)
	assert.Equal(t, 10, g.Players[0].Bet, "dealer posts the small blind heads-up")
	assert.Equal(t, 20, g.Players[1].Bet)
	assert.Equal(t, 0, g.CurrentIdx, "dealer acts first preflop heads-up")
	assert.Equal(t, 20, g.CurrentBet)
	assert.Equal(t, 30, g.Pot)

	require.NoError(t, g.Act(1, Fold, 0))
	assert.Equal(t, PhaseShowdown, g.Phase)

	require.NoError(t, g.StartHand())
	assert.Equal(t, 1, g.DealerIdx, "button moves on the next hand")
	assert.Equal(t, 10, g.Players[1].Bet)
	assert.Equal(t, 20, g.Players[0].Bet)
}

func TestThreeWayBlinds(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, 1, 1000, 1000, 1000)
	require.NoError(t, g.StartHand())

	assert.Equal(t, 0, g.DealerIdx)
	assert.Equal(t, 0, g.Players[0].Bet)
	assert.Equal(t, 10, g.Players[1].Bet)
	assert.Equal(t, 20, g.Players[2].Bet)
	assert.Equal(t, 0, g.CurrentIdx, "seat after the big blind acts first")
	for _, p := range g.Players {
		assert.Len(t, p.HoleCards, 2)
	}
}

func TestOutOfTurnActionIsRejected(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, 1, 1000, 1000, 1000)
	require.NoError(t, g.StartHand())

	pot, bet, current := g.Pot, g.CurrentBet, g.CurrentIdx
	for _, a := range []Action{Fold, Check, Call, Raise, AllIn} {
		err := g.Act(2, a, 100)
		require.ErrorIs(t, err, ErrNotYourTurn, a.String())
		assert.Equal(t, pot, g.Pot)
		assert.Equal(t, bet, g.CurrentBet)
		assert.Equal(t, current, g.CurrentIdx)
	}

	require.ErrorIs(t, g.Act(99, Call, 0), ErrNotInGame)
}

func TestActionOutsideHand(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, 1, 1000, 1000)
	require.ErrorIs(t, g.Act(1, Check, 0), ErrNotYourTurn)

	require.NoError(t, g.StartHand())
	require.NoError(t, g.Act(1, Fold, 0))
	require.ErrorIs(t, g.Act(2, Check, 0), ErrNotYourTurn)
}

func TestCheckAndRaiseValidation(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, 1, 1000, 1000, 1000)
	require.NoError(t, g.StartHand())

	require.ErrorIs(t, g.Act(1, Check, 0), ErrCannotCheck)
	require.ErrorIs(t, g.Act(1, Raise, 30), ErrRaiseTooSmall)
	require.ErrorIs(t, g.Act(1, Action(42), 0), ErrUnknownAction)
	assert.Equal(t, 0, g.CurrentIdx)

	require.NoError(t, g.Act(1, Raise, 60))
	assert.Equal(t, 60, g.CurrentBet)
	assert.Equal(t, 40, g.MinRaise)
	assert.Equal(t, 1, g.CurrentIdx)
	assert.Equal(t, &LastAction{Player: 0, Action: Raise, Amount: 60}, g.LastAction)

	require.ErrorIs(t, g.Act(2, Raise, 99), ErrRaiseTooSmall)
	require.NoError(t, g.Act(2, Raise, 100))
	assert.Equal(t, 100, g.MinRaiseTo()-g.MinRaise)
}

func TestRaiseOfWholeStackBecomesAllIn(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, 1, 300, 1000, 1000)
	require.NoError(t, g.StartHand())

	require.NoError(t, g.Act(1, Raise, 5000))
	p := g.Players[0]
	assert.True(t, p.AllIn)
	assert.Equal(t, 0, p.Chips)
	assert.Equal(t, 300, g.CurrentBet)
	assert.Equal(t, AllIn, g.LastAction.Action)
}

// shortShove plays to the point where the big blind, holding 35, has
// shoved 15 over the 20 bet, short of the 20 minimum increment.
func shortShove(t *testing.T) *Game {
	t.Helper()
	g := newTestGame(t, 1, 1000, 1000, 35)
	require.NoError(t, g.StartHand())

	require.NoError(t, g.Act(1, Call, 0))
	require.NoError(t, g.Act(2, Call, 0))
	require.Equal(t, 2, g.CurrentIdx)
	require.Contains(t, g.ValidActions(2), Raise, "big blind keeps the option")

	require.NoError(t, g.Act(3, AllIn, 0))
	require.Equal(t, 35, g.CurrentBet)
	require.Equal(t, 0, g.CurrentIdx, "caller still owes the difference")
	return g
}

func TestShortAllInKeepsIncrementAndActedFlags(t *testing.T) {
	t.Parallel()
	g := shortShove(t)

	assert.Equal(t, 20, g.MinRaise, "short all-in leaves the increment alone")
	assert.True(t, g.Players[0].Acted)
	assert.True(t, g.Players[1].Acted)
	assert.Equal(t, []Action{Fold, Call, Raise, AllIn}, g.ValidActions(0))

	require.NoError(t, g.Act(1, Call, 0))
	require.Equal(t, 1, g.CurrentIdx)
	require.NoError(t, g.Act(2, Call, 0))

	assert.Equal(t, PhaseFlop, g.Phase)
	assert.Len(t, g.Community, 3)
	assert.Equal(t, 105, g.Pot)
}

func TestRaiseAfterShortAllIn(t *testing.T) {
	t.Parallel()
	g := shortShove(t)

	pot := g.Pot
	require.ErrorIs(t, g.Act(1, Raise, 50), ErrRaiseTooSmall, "increment still measured from the old raise")
	assert.Equal(t, pot, g.Pot)
	assert.Equal(t, 0, g.CurrentIdx)

	require.NoError(t, g.Act(1, Raise, 55))
	assert.Equal(t, 55, g.CurrentBet)
	assert.Equal(t, 20, g.MinRaise)
	require.Equal(t, 1, g.CurrentIdx)
	assert.False(t, g.Players[1].Acted, "the raise reopens the small blind")
	assert.Contains(t, g.ValidActions(1), Raise)

	require.NoError(t, g.Act(2, Call, 0))
	assert.Equal(t, PhaseFlop, g.Phase)
	assert.Equal(t, 145, g.Pot)
}

func TestAllInAfterShortAllIn(t *testing.T) {
	t.Parallel()
	g := shortShove(t)
	before := totalChips(g)

	require.NoError(t, g.Act(1, AllIn, 0))
	assert.Equal(t, 1000, g.CurrentBet)
	assert.Equal(t, 965, g.MinRaise)
	require.Equal(t, 1, g.CurrentIdx)

	require.NoError(t, g.Act(2, Fold, 0))
	assert.Equal(t, PhaseShowdown, g.Phase)
	assert.Len(t, g.Community, 5)
	assert.Equal(t, before, totalChips(g))
}

func TestFullAllInReopensBetting(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, 1, 1000, 1000, 100)
	require.NoError(t, g.StartHand())

	require.NoError(t, g.Act(1, Call, 0))
	require.NoError(t, g.Act(2, Call, 0))
	require.NoError(t, g.Act(3, AllIn, 0))
	assert.Equal(t, 100, g.CurrentBet)
	assert.Equal(t, 80, g.MinRaise)

	require.Equal(t, 0, g.CurrentIdx)
	assert.Equal(t, []Action{Fold, Call, Raise, AllIn}, g.ValidActions(0))
	require.ErrorIs(t, g.Act(1, Raise, 150), ErrRaiseTooSmall)
	require.NoError(t, g.Act(1, Raise, 180))

	require.Equal(t, 1, g.CurrentIdx)
	assert.Contains(t, g.ValidActions(1), Raise)
}

func TestEveryoneAllInFromBlindsRunsOut(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, 3, 10, 20)
	require.NoError(t, g.StartHand())

	assert.Equal(t, PhaseShowdown, g.Phase)
	assert.Len(t, g.Community, 5)
	assert.Equal(t, -1, g.CurrentIdx)
	assert.Equal(t, 0, g.Pot)
	assert.Equal(t, 30, totalChips(g))
	require.NotNil(t, g.Results)
}

func TestFoldToSingleWinnerSkipsShowdown(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, 1, 1000, 1000, 1000)
	require.NoError(t, g.StartHand())

	require.NoError(t, g.Act(1, Fold, 0))
	require.NoError(t, g.Act(2, Fold, 0))

	assert.Equal(t, PhaseShowdown, g.Phase)
	require.NotNil(t, g.Results)
	assert.Equal(t, []int{2}, g.Results.Winners)
	assert.Equal(t, 30, g.Results.Pot)
	assert.Empty(t, g.Results.Hands)
	assert.Equal(t, 1010, g.Players[2].Chips)

	view := g.StateFor(1)
	for _, p := range view.Players {
		assert.Nil(t, p.Cards, "uncontested pots reveal nothing")
	}
}

func TestRemovePlayerMidHand(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, 1, 1000, 1000, 1000)
	require.NoError(t, g.StartHand())
	require.Equal(t, 0, g.CurrentIdx)

	chips, ok := g.RemovePlayer(1)
	require.True(t, ok)
	assert.Equal(t, 1000, chips)
	assert.Equal(t, 1, g.CurrentIdx, "turn moves past the departed seat")
	assert.Len(t, g.Players, 3, "seat stays until the hand ends")
	assert.Equal(t, -1, g.Seat(1))

	require.NoError(t, g.Act(2, Call, 0))
	require.NoError(t, g.Act(3, Check, 0))
	assert.Equal(t, PhaseFlop, g.Phase)

	g.EndHand()
	assert.Len(t, g.Players, 2)
	assert.Equal(t, 2000, totalChips(g), "stacks committed by remaining seats come back")
}

func TestEndHandForfeitsDepartedCommitment(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, 1, 1000, 1000, 1000)
	require.NoError(t, g.StartHand())

	// bob posted the small blind
	chips, ok := g.RemovePlayer(2)
	require.True(t, ok)
	assert.Equal(t, 990, chips)

	assert.Equal(t, 10, g.EndHand())
	require.Len(t, g.Players, 2)
	assert.Equal(t, 1000, g.Players[0].Chips)
	assert.Equal(t, 1000, g.Players[1].Chips, "big blind comes back")
	assert.Equal(t, 0, g.Pot)
}

func TestEndHandWithoutDeparturesForfeitsNothing(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, 1, 1000, 1000)
	require.NoError(t, g.StartHand())
	assert.Zero(t, g.EndHand())
	assert.Equal(t, 2000, totalChips(g))
}

func TestRemoveLastOpponentAwardsPot(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, 1, 1000, 1000)
	require.NoError(t, g.StartHand())

	chips, ok := g.RemovePlayer(1)
	require.True(t, ok)
	assert.Equal(t, 990, chips)
	assert.Equal(t, PhaseShowdown, g.Phase)
	assert.Equal(t, 1010, g.Players[1].Chips)
}

func TestStateForHidesOpponentCards(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, 1, 1000, 1000, 1000)
	require.NoError(t, g.StartHand())

	mine := g.StateFor(1)
	assert.Equal(t, 0, mine.MyIndex)
	assert.Len(t, mine.MyCards, 2)
	assert.Equal(t, []Action{Fold, Call, Raise, AllIn}, mine.Actions)
	assert.Equal(t, 20, mine.CallAmount)
	assert.Equal(t, 40, mine.MinRaiseTo)
	for _, p := range mine.Players {
		assert.Nil(t, p.Cards)
	}

	other := g.StateFor(2)
	assert.Empty(t, other.Actions)
	assert.NotEqual(t, mine.MyCards, other.MyCards)

	spectator := g.StateFor(42)
	assert.Equal(t, -1, spectator.MyIndex)
	assert.Empty(t, spectator.MyCards)
}

func TestJoinDuringHandSitsOut(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, 1, 1000, 1000)
	require.NoError(t, g.StartHand())
	require.NoError(t, g.AddPlayer(3, "late", 1000, false))

	p, ok := g.Player(3)
	require.True(t, ok)
	assert.True(t, p.SittingOut)
	assert.True(t, p.Folded)
	assert.Empty(t, g.ValidActions(2))
}

func TestSetBlindsAppliesNextHand(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, 1, 1000, 1000)
	require.NoError(t, g.StartHand())
	g.SetBlinds(20, 40)
	assert.Equal(t, 20, g.CurrentBet)

	require.NoError(t, g.Act(1, Call, 0))
	require.NoError(t, g.Act(2, Check, 0))
	assert.Equal(t, 20, g.MinRaise, "increment stays at the hand's big blind")

	g.EndHand()
	require.NoError(t, g.StartHand())
	assert.Equal(t, 40, g.CurrentBet)
}
