// Package metrics carries fire-and-forget counters out of the game layer.
package metrics

import "sync"

// Labels are the dimension values attached to one increment.
type Labels map[string]string

// Counter names emitted by rooms.
const (
	GamesTotal           = "poker_games_total"
	GamesWonTotal        = "poker_games_won_total"
	HandsTotal           = "poker_hands_total"
	ChipsWonTotal        = "poker_chips_won_total"
	ChipsLostTotal       = "poker_chips_lost_total"
	CombinationsTotal    = "poker_combinations_total"
	CombinationsWonTotal = "poker_combinations_won_total"
)

// Sink receives counter increments. Implementations must not block and
// must not fail the caller.
type Sink interface {
	Inc(name string, labels Labels, value int)
}

// Noop discards every increment.
type Noop struct{}

func (Noop) Inc(string, Labels, int) {}

// Recorder keeps increments in memory. Tests use it to assert what a room
// emitted.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

// Call is one recorded increment.
type Call struct {
	Name   string
	Labels Labels
	Value  int
}

func (r *Recorder) Inc(name string, labels Labels, value int) {
	cp := make(Labels, len(labels))
	for k, v := range labels {
		cp[k] = v
	}
	r.mu.Lock()
	r.calls = append(r.calls, Call{Name: name, Labels: cp, Value: value})
	r.mu.Unlock()
}

// Calls returns a copy of every recorded increment.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Total sums all increments of name whose labels include match.
func (r *Recorder) Total(name string, match Labels) int {
	sum := 0
	for _, c := range r.Calls() {
		if c.Name != name {
			continue
		}
		ok := true
		for k, v := range match {
			if c.Labels[k] != v {
				ok = false
				break
			}
		}
		if ok {
			sum += c.Value
		}
	}
	return sum
}
