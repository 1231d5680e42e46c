package room

import (
	"context"
	"errors"
	"io"
	rand "math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/KmXK/dvoretskii-bot-sub000/internal/game"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/metrics"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/protocol"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/randutil"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"
)

// fakeConn records every frame sent to one client.
type fakeConn struct {
	mu   sync.Mutex
	msgs []protocol.Outbound
}

func (c *fakeConn) Send(msg protocol.Outbound) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return true
}

func (c *fakeConn) count(typ string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.msgs {
		if m.MessageType() == typ {
			n++
		}
	}
	return n
}

func (c *fakeConn) last(typ string) protocol.Outbound {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.msgs) - 1; i >= 0; i-- {
		if c.msgs[i].MessageType() == typ {
			return c.msgs[i]
		}
	}
	return nil
}

func (c *fakeConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.msgs))
	for i, m := range c.msgs {
		out[i] = m.MessageType()
	}
	return out
}

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.DebugLevel})
}

type fixture struct {
	t       *testing.T
	ctx     context.Context
	clock   *quartz.Mock
	metrics *metrics.Recorder
	cfg     Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	mClock := quartz.NewMock(t)
	mClock.Set(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	rec := &metrics.Recorder{}
	return &fixture{
		t:       t,
		ctx:     ctx,
		clock:   mClock,
		metrics: rec,
		cfg: Config{
			MaxSeats:      DefaultMaxSeats,
			GracePeriod:   time.Minute,
			NextHandDelay: 2 * time.Minute,
			BotDelayMin:   time.Second,
			BotDelayMax:   time.Second,
			Clock:         mClock,
			Logger:        testLogger(),
			Metrics:       rec,
			NewRand:       func() *rand.Rand { return randutil.New(7) },
		},
	}
}

func (f *fixture) newRoom(creator int64, s Settings) *Room {
	r := newRoom("room1", "Test", creator, s, f.cfg, nil)
	f.t.Cleanup(r.Close)
	return r
}

func (f *fixture) manager() *Manager {
	m := NewManager(f.cfg)
	f.t.Cleanup(func() { m.Shutdown(context.Background()) })
	return m
}

// settle waits until every event queued so far on each room has run.
func (f *fixture) settle(rooms ...*Room) {
	f.t.Helper()
	for _, r := range rooms {
		err := r.do(f.ctx, func() error { return nil })
		if !errors.Is(err, ErrRoomClosed) {
			require.NoError(f.t, err)
		}
	}
}

// step fires the earliest pending timer and lets the rooms absorb it. It
// reports false when no timer is pending.
func (f *fixture) step(rooms ...*Room) bool {
	f.t.Helper()
	if _, ok := f.clock.Peek(); !ok {
		return false
	}
	_, w := f.clock.AdvanceNext()
	w.MustWait(f.ctx)
	f.settle(rooms...)
	return true
}

func (f *fixture) join(r *Room, userID int64, name string) *fakeConn {
	f.t.Helper()
	c := &fakeConn{}
	_, err := r.Join(f.ctx, userID, name, c)
	require.NoError(f.t, err)
	return c
}

func (f *fixture) state(r *Room, userID int64) protocol.GameState {
	f.t.Helper()
	st, err := r.State(f.ctx, userID)
	require.NoError(f.t, err)
	return st
}

// onTurn returns the user holding the turn, or 0 outside betting.
func (f *fixture) onTurn(r *Room) int64 {
	f.t.Helper()
	st := f.state(r, 0)
	if !st.Phase.Betting() || st.CurrentIndex < 0 {
		return 0
	}
	return st.Players[st.CurrentIndex].ID
}

// playToShowdown folds or checks for humans and steps bot timers until the
// hand reaches showdown.
func (f *fixture) playToShowdown(r *Room) {
	f.t.Helper()
	for range 200 {
		st := f.state(r, 0)
		if st.Phase == game.PhaseShowdown {
			return
		}
		require.True(f.t, st.Phase.Betting(), "hand not running: %s", st.Phase)
		p := st.Players[st.CurrentIndex]
		if p.IsBot {
			require.True(f.t, f.step(r), "bot turn without a timer")
			continue
		}
		act := "fold"
		if st.CurrentBet == p.Bet {
			act = "check"
		}
		require.NoError(f.t, r.Act(f.ctx, p.ID, act, 0))
	}
	f.t.Fatal("hand did not finish")
}

func settings(mut func(*Settings)) Settings {
	s := DefaultSettings()
	if mut != nil {
		mut(&s)
	}
	return s
}

func ptr[T any](v T) *T { return &v }
