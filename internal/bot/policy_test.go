package bot

import (
	"testing"

	"github.com/KmXK/dvoretskii-bot-sub000/internal/deck"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/game"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionsAreAlwaysLegal(t *testing.T) {
	t.Parallel()

	for _, difficulty := range []Difficulty{Easy, Medium, Hard} {
		t.Run(string(difficulty), func(t *testing.T) {
			t.Parallel()

			for seed := int64(1); seed <= 10; seed++ {
				rng := randutil.New(seed)
				g := game.NewGame(randutil.New(seed*31), game.WithBlinds(10, 20))
				seats := 2 + rng.IntN(5)
				for i := range seats {
					require.NoError(t, g.AddPlayer(int64(-(i + 1)), "bot", 200+rng.IntN(1500), true))
				}

				for hand := 0; hand < 40; hand++ {
					if g.StartHand() != nil {
						break
					}
					for steps := 0; g.Phase.Betting(); steps++ {
						require.Less(t, steps, 300)
						seat := g.CurrentIdx
						d := Decide(g, seat, difficulty, rng)
						require.True(t, g.IsValid(seat, d.Action), "illegal %s at seat %d: %v", d, seat, g.ValidActions(seat))
						if d.Action == game.Raise {
							require.GreaterOrEqual(t, d.Amount, g.MinRaiseTo())
						}
						require.NoError(t, g.Act(g.Players[seat].UserID, d.Action, d.Amount), d.String())
					}
				}
			}
		})
	}
}

func TestDecideWhenNotOnTurn(t *testing.T) {
	t.Parallel()

	g := game.NewGame(randutil.New(1))
	require.NoError(t, g.AddPlayer(1, "a", 1000, false))
	require.NoError(t, g.AddPlayer(2, "b", 1000, false))

	d := Decide(g, 0, Medium, randutil.New(1))
	assert.Equal(t, game.Fold, d.Action)
}

func TestFallback(t *testing.T) {
	t.Parallel()

	g := game.NewGame(randutil.New(1), game.WithBlinds(10, 20))
	require.NoError(t, g.AddPlayer(1, "a", 1000, false))
	require.NoError(t, g.AddPlayer(2, "b", 1000, false))
	require.NoError(t, g.StartHand())

	assert.Equal(t, game.Fold, Fallback(g, g.CurrentIdx), "small blind faces a bet")
	require.NoError(t, g.Act(1, game.Call, 0))
	assert.Equal(t, game.Check, Fallback(g, g.CurrentIdx), "big blind may check")
}

func TestPreflopScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cards string
		want  int
	}{
		{"AhAd", 84},
		{"2h2d", 12},
		{"AhKh", 28 + 13 + 4 + 3 + 8},
		{"AhKd", 28 + 13 + 3 + 8},
		{"7c2d", 14 + 2},
		{"QsJs", 24 + 11 + 4 + 3 + 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PreflopScore(deck.MustParseCards(tt.cards)), tt.cards)
	}
	assert.Equal(t, 0, PreflopScore(nil))
}

func TestDetectDraws(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		hole     string
		board    string
		flush    bool
		straight bool
	}{
		{"flush draw", "AhKh", "2h7h9c", true, false},
		{"open ended", "8c9d", "TsJh2c", false, true},
		{"open ended below a high card", "5c6d", "7s8hKc", false, true},
		{"open ended below two high cards", "5c6d", "7s8hKcQd", false, true},
		{"gutshot", "5c6d", "8s9hKc", false, true},
		{"ace low wheel draw", "Ac2d", "3s4hKc", false, true},
		{"ace high broadway draw", "AcKd", "QsJh2c", false, true},
		{"three to a straight", "5c6d", "7sKhQc", false, false},
		{"both", "8h9h", "ThJh2c", true, true},
		{"nothing", "2c7d", "KsQhAc", false, false},
		{"made flush is not a draw", "AhKh", "2h7h9h", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := DetectDraws(deck.MustParseCards(tt.hole), deck.MustParseCards(tt.board))
			assert.Equal(t, tt.flush, d.FlushDraw)
			assert.Equal(t, tt.straight, d.StraightDraw)
		})
	}

	assert.InDelta(t, 0.34, DrawInfo{FlushDraw: true, StraightDraw: true}.Equity(3), 1e-9)
	assert.InDelta(t, 0.09, DrawInfo{FlushDraw: true}.Equity(4), 1e-9)
}

func TestParseDifficulty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Easy, ParseDifficulty("easy"))
	assert.Equal(t, Hard, ParseDifficulty("hard"))
	assert.Equal(t, Medium, ParseDifficulty("medium"))
	assert.Equal(t, Medium, ParseDifficulty("impossible"))
}

func TestNameAvoidsTaken(t *testing.T) {
	t.Parallel()

	rng := randutil.New(5)
	taken := map[string]bool{}
	for range len(botNames) + 5 {
		n := Name(rng, taken)
		require.False(t, taken[n], "duplicate name %q", n)
		taken[n] = true
	}
	assert.Len(t, taken, len(botNames)+5)
}
