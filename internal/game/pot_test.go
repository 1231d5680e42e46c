package game

import (
	"testing"

	"github.com/KmXK/dvoretskii-bot-sub000/internal/deck"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/evaluator"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// riverGame builds a table at the river with fixed cards and committed
// totals, ready for showdown.
func riverGame(t *testing.T, board string, holes []string, totals []int) *Game {
	t.Helper()
	require.Len(t, totals, len(holes))

	g := NewGame(randutil.New(1), WithBlinds(10, 20))
	g.Phase = PhaseRiver
	g.HandNum = 1
	g.Community = deck.MustParseCards(board)
	for i, hole := range holes {
		g.Players = append(g.Players, &Player{
			UserID:    int64(i + 1),
			Chips:     0,
			HoleCards: deck.MustParseCards(hole),
			TotalBet:  totals[i],
			AllIn:     true,
		})
		g.Pot += totals[i]
	}
	return g
}

func TestSidePotTiers(t *testing.T) {
	t.Parallel()

	g := riverGame(t, "KsQd7c4h2s",
		[]string{"AsAd", "3c3d", "Kc8h"},
		[]int{100, 100, 300})

	pots := g.SidePots()
	require.Len(t, pots, 2)
	assert.Equal(t, SidePot{Amount: 300, Eligible: []int{0, 1, 2}}, pots[0])
	assert.Equal(t, SidePot{Amount: 200, Eligible: []int{2}}, pots[1])
}

func TestShowdownAwardsEachTierToBestEligible(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		holes []string
		want  []int
	}{
		{
			name:  "short stack holds the best hand",
			holes: []string{"AsAd", "3c3d", "Kc8h"},
			want:  []int{300, 0, 200},
		},
		{
			name:  "deep stack holds the best hand",
			holes: []string{"3c3d", "Kc8h", "AsAd"},
			want:  []int{0, 0, 500},
		},
		{
			name:  "main pot split between short stacks",
			holes: []string{"AsAd", "AcAh", "Kc8h"},
			want:  []int{150, 150, 200},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := riverGame(t, "KsQd7c4h2s", tt.holes, []int{100, 100, 300})
			g.showdown()

			got := make([]int, len(g.Players))
			sum := 0
			for i, p := range g.Players {
				got[i] = p.Chips
				sum += p.Chips
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 500, sum)
			assert.Equal(t, 500, g.Results.Pot)
			assert.Equal(t, 0, g.Pot)
			assert.Equal(t, PhaseShowdown, g.Phase)
			for i, won := range tt.want {
				assert.Equal(t, won, g.Results.Hands[i].Won)
			}
		})
	}
}

func TestShowdownOddChipGoesToFirstWinnerBySeat(t *testing.T) {
	t.Parallel()

	g := riverGame(t, "KsQd7c4h2s",
		[]string{"AsAd", "AcAh", "Kc8h"},
		[]int{101, 101, 101})
	g.showdown()

	assert.Equal(t, 152, g.Players[0].Chips)
	assert.Equal(t, 151, g.Players[1].Chips)
	assert.Equal(t, 0, g.Players[2].Chips)
	assert.Equal(t, []int{0, 1}, g.Results.Winners)
}

func TestShowdownIncludesFoldedContributions(t *testing.T) {
	t.Parallel()

	g := riverGame(t, "KsQd7c4h2s",
		[]string{"AsAd", "3c3d", "Kc8h"},
		[]int{200, 50, 200})
	g.Players[1].Folded = true
	g.Players[1].AllIn = false
	g.showdown()

	assert.Equal(t, 450, g.Players[0].Chips)
	assert.Equal(t, 0, g.Players[2].Chips)
	assert.NotContains(t, g.Results.Hands, 1, "folded hands are not shown")

	h := g.Results.Hands[0]
	assert.Equal(t, evaluator.Pair, h.Category)
	assert.Equal(t, "Pair", h.Name)
	assert.Len(t, h.Cards, 5)
}

func TestShowdownRevealsContestedHands(t *testing.T) {
	t.Parallel()

	g := riverGame(t, "KsQd7c4h2s",
		[]string{"AsAd", "3c3d"},
		[]int{100, 100})
	g.showdown()

	view := g.StateFor(1)
	assert.Len(t, view.Players[0].Cards, 2)
	assert.Len(t, view.Players[1].Cards, 2)
}

func TestStateForCopiesResults(t *testing.T) {
	t.Parallel()

	g := riverGame(t, "KsQd7c4h2s",
		[]string{"AsAd", "3c3d"},
		[]int{100, 100})
	g.LastAction = &LastAction{Player: 1, Action: Call, Amount: 100}
	g.showdown()

	want := g.Results.Clone()
	view := g.StateFor(1)
	require.NotNil(t, view.Results)
	require.NotNil(t, view.LastAction)

	view.Results.Winners[0] = 1
	view.Results.Won[0] = 0
	view.Results.Hands[0].Cards[0] = deck.MustParseCards("2c")[0]
	delete(view.Results.Hands, 1)
	view.LastAction.Amount = 5

	assert.Equal(t, want, g.Results)
	assert.Equal(t, 100, g.LastAction.Amount)
}

// TestChipConservation plays many hands with random legal actions and
// checks that chips are only ever moved, never created or lost.
func TestChipConservation(t *testing.T) {
	t.Parallel()

	for seed := int64(1); seed <= 20; seed++ {
		rng := randutil.New(seed)
		stacks := make([]int, 2+rng.IntN(5))
		for i := range stacks {
			stacks[i] = 50 + rng.IntN(400)
		}
		g := newTestGame(t, seed, stacks...)
		total := totalChips(g)

		for hand := 0; hand < 60; hand++ {
			if err := g.StartHand(); err != nil {
				require.ErrorIs(t, err, ErrNotEnoughPlayers)
				break
			}
			before := make([]int, len(g.Players))
			for i, p := range g.Players {
				before[i] = p.Chips + p.TotalBet
			}

			prevTotals := make([]int, len(g.Players))
			for steps := 0; g.Phase.Betting(); steps++ {
				require.Less(t, steps, 200, "hand never finished")
				require.Equal(t, total, totalChips(g))

				idx := g.CurrentIdx
				require.GreaterOrEqual(t, idx, 0)
				p := g.Players[idx]
				require.True(t, p.CanAct())

				for i, pl := range g.Players {
					require.GreaterOrEqual(t, pl.TotalBet, prevTotals[i])
					prevTotals[i] = pl.TotalBet
				}

				actions := g.ValidActions(idx)
				require.NotEmpty(t, actions)
				a := actions[rng.IntN(len(actions))]
				amount := 0
				if a == Raise {
					lo, hi := g.MinRaiseTo(), p.Chips+p.Bet-1
					amount = p.Chips + p.Bet
					if lo <= hi {
						amount = lo + rng.IntN(hi-lo+1)
					}
				}
				require.NoError(t, g.Act(p.UserID, a, amount), "%s %d", a, amount)
			}

			require.Equal(t, PhaseShowdown, g.Phase)
			require.Equal(t, 0, g.Pot)
			require.Equal(t, total, totalChips(g))

			delta := 0
			for i, p := range g.Players {
				delta += p.Chips - before[i]
			}
			require.Equal(t, 0, delta)
		}
	}
}
