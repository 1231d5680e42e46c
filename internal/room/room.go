// Package room runs poker rooms: one game table per room, the humans and
// bots seated at it, and the timers that keep play moving.
//
// Every room is an actor. A single goroutine owns the room's state and
// consumes one ordered queue carrying both client requests and timer
// firings, so no two mutations of a room ever interleave.
package room

import (
	"context"
	"fmt"
	rand "math/rand/v2"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KmXK/dvoretskii-bot-sub000/internal/bot"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/game"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/metrics"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/protocol"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/randutil"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/wallet"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// Sender delivers frames to one client connection. Send must not block;
// it reports false when the frame was dropped.
type Sender interface {
	Send(msg protocol.Outbound) bool
}

// Config holds the timings and collaborators shared by every room.
type Config struct {
	MaxSeats      int
	GracePeriod   time.Duration
	NextHandDelay time.Duration
	BotDelayMin   time.Duration
	BotDelayMax   time.Duration
	BlindLadder   []int

	Clock   quartz.Clock
	Logger  *log.Logger
	Metrics metrics.Sink
	// Wallet backs currency rooms. Without it such rooms cannot be created.
	Wallet wallet.Wallet
	// NewRand supplies each room's random source.
	NewRand func() *rand.Rand
}

// DefaultConfig returns production timings with real clock and no-op sinks.
func DefaultConfig() Config {
	return Config{
		MaxSeats:      DefaultMaxSeats,
		GracePeriod:   60 * time.Second,
		NextHandDelay: 120 * time.Second,
		BotDelayMin:   800 * time.Millisecond,
		BotDelayMax:   2 * time.Second,
		BlindLadder:   DefaultBlindLadder,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxSeats < 2 {
		c.MaxSeats = d.MaxSeats
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = d.GracePeriod
	}
	if c.NextHandDelay <= 0 {
		c.NextHandDelay = d.NextHandDelay
	}
	if c.BotDelayMin <= 0 {
		c.BotDelayMin = d.BotDelayMin
	}
	if c.BotDelayMax < c.BotDelayMin {
		c.BotDelayMax = c.BotDelayMin
	}
	if len(c.BlindLadder) == 0 {
		c.BlindLadder = d.BlindLadder
	}
	if c.Clock == nil {
		c.Clock = quartz.NewReal()
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	if c.Metrics == nil {
		c.Metrics = metrics.Noop{}
	}
	if c.NewRand == nil {
		c.NewRand = randutil.NewTimeSeeded
	}
	return c
}

// member is a human in the room. sender is nil while their connection is
// gone and the grace period runs.
type member struct {
	name   string
	sender Sender
}

// LeaveResult reports the outcome of a departure.
type LeaveResult struct {
	// Balance is the wallet balance after cashing out, if any.
	Balance *int64
	// Empty is set when the last human left and the room shut down.
	Empty bool
	// Stayed is set when a conditional departure found the player back.
	Stayed bool
}

// Room is one table. All exported methods are safe for concurrent use.
type Room struct {
	ID string

	cfg    Config
	clock  quartz.Clock
	logger *log.Logger

	events    chan func()
	done      chan struct{}
	closeOnce sync.Once
	info      atomic.Pointer[protocol.RoomInfo]
	onChange  func()

	// Everything below is owned by the run goroutine.
	name      string
	creatorID int64
	settings  Settings
	game      *game.Game
	rng       *rand.Rand
	members   map[int64]*member
	order     []int64
	ready     map[int64]bool
	chipBank  map[int64]int
	nextBotID int64
	dirty     bool

	started  bool
	paused   bool
	handOpen bool
	moves    int
	// metricsHand is the last hand whose metrics were emitted.
	metricsHand int

	blindLevel  int
	nextBlindAt time.Time

	timerGen   uint64
	botTimer   *quartz.Timer
	botGen     uint64
	botMoves   int
	handTimer  *quartz.Timer
	handGen    uint64
	blindTimer *quartz.Timer
	blindGen   uint64
}

func newRoom(id, name string, creatorID int64, settings Settings, cfg Config, onChange func()) *Room {
	cfg = cfg.withDefaults()
	rng := cfg.NewRand()
	r := &Room{
		ID:        id,
		cfg:       cfg,
		clock:     cfg.Clock,
		logger:    cfg.Logger.WithPrefix("room").With("room", id),
		events:    make(chan func(), 64),
		done:      make(chan struct{}),
		onChange:  onChange,
		name:      name,
		creatorID: creatorID,
		settings:  settings,
		rng:       rng,
		members:   make(map[int64]*member),
		ready:     make(map[int64]bool),
		chipBank:  make(map[int64]int),
		nextBotID: -1,
	}
	r.game = game.NewGame(rng, game.WithBlinds(settings.SmallBlind, settings.BigBlind))
	r.publish()
	go r.run()
	return r
}

func (r *Room) run() {
	for {
		select {
		case <-r.done:
			return
		case ev := <-r.events:
			// both cases may be ready; a closed room runs nothing more
			select {
			case <-r.done:
				return
			default:
			}
			r.handle(ev)
		}
	}
}

func (r *Room) handle(ev func()) {
	defer func() {
		r.publish()
		if r.dirty {
			r.dirty = false
			if r.onChange != nil {
				r.onChange()
			}
		}
	}()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("recovered panic in room event", "panic", p, "stack", string(debug.Stack()))
			r.supervise()
		}
	}()
	ev()
}

// supervise keeps a hand moving after a failed event by forcing the seat
// on turn to its safest legal action.
func (r *Room) supervise() {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("fallback action failed", "panic", p)
		}
	}()
	if !r.started || !r.game.Phase.Betting() || r.game.CurrentIdx < 0 {
		return
	}
	idx := r.game.CurrentIdx
	p := r.game.Players[idx]
	a := bot.Fallback(r.game, idx)
	r.logger.Warn("forcing fallback action", "player", p.Name, "action", a)
	if err := r.apply(p.UserID, a, 0); err != nil {
		r.logger.Error("fallback action rejected", "player", p.Name, "err", err)
		return
	}
	r.progress()
	r.broadcastStates()
}

// Event claim states. A queued request is either run by the room or
// abandoned by its caller, never both.
const (
	eventQueued int32 = iota
	eventRunning
	eventAbandoned
)

// call runs fn on the room goroutine and returns its result. The caller
// gives up on a closed room or a cancelled ctx only while fn is still
// queued; once the room has claimed fn its result is always returned.
func call[T any](ctx context.Context, r *Room, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	resc := make(chan result, 1)
	var claim atomic.Int32
	ev := func() {
		if !claim.CompareAndSwap(eventQueued, eventRunning) {
			return
		}
		res := result{err: errInternal}
		defer func() { resc <- res }()
		res.v, res.err = fn()
	}

	var zero T
	select {
	case r.events <- ev:
	case <-r.done:
		return zero, ErrRoomClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case res := <-resc:
		return res.v, res.err
	case <-r.done:
		if claim.CompareAndSwap(eventQueued, eventAbandoned) {
			return zero, ErrRoomClosed
		}
	case <-ctx.Done():
		if claim.CompareAndSwap(eventQueued, eventAbandoned) {
			return zero, ctx.Err()
		}
	}
	res := <-resc
	return res.v, res.err
}

// do runs fn on the room goroutine and waits for its error.
func (r *Room) do(ctx context.Context, fn func() error) error {
	_, err := call(ctx, r, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// post queues fn without waiting. Timer callbacks use it.
func (r *Room) post(fn func()) {
	select {
	case r.events <- fn:
	case <-r.done:
	}
}

// Close stops the room goroutine. Pending timers become no-ops.
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
	})
}

// Info returns the latest published lobby description.
func (r *Room) Info() protocol.RoomInfo {
	return *r.info.Load()
}

func (r *Room) publish() {
	info := r.buildInfo()
	r.info.Store(&info)
}

// Join seats a human. In currency rooms the start chips are bought from
// the wallet first; otherwise a banked stack from an earlier visit is
// restored. The joiner receives room_joined.
func (r *Room) Join(ctx context.Context, userID int64, name string, s Sender) (*int64, error) {
	return call(ctx, r, func() (*int64, error) {
		return r.join(ctx, userID, name, s)
	})
}

// Leave unseats userID, cashing out or banking their stack.
func (r *Room) Leave(ctx context.Context, userID int64) (LeaveResult, error) {
	return r.leaveWhen(ctx, userID, false)
}

// leaveIfAbsent finalizes a departure only if the player has not come back.
func (r *Room) leaveIfAbsent(ctx context.Context, userID int64) (LeaveResult, error) {
	return r.leaveWhen(ctx, userID, true)
}

func (r *Room) leaveWhen(ctx context.Context, userID int64, onlyIfAbsent bool) (LeaveResult, error) {
	return call(ctx, r, func() (LeaveResult, error) {
		return r.leave(ctx, userID, onlyIfAbsent)
	})
}

// Detach marks userID's connection as gone if s is still their current
// connection. It reports whether the player is now absent.
func (r *Room) Detach(ctx context.Context, userID int64, s Sender) (bool, error) {
	return call(ctx, r, func() (bool, error) {
		return r.detach(userID, s), nil
	})
}

// Reconnect attaches a new connection to a member's seat.
func (r *Room) Reconnect(ctx context.Context, userID int64, s Sender) error {
	return r.do(ctx, func() error {
		return r.reconnect(userID, s)
	})
}

// StartGame starts play. Only the creator may start.
func (r *Room) StartGame(ctx context.Context, userID int64) error {
	return r.do(ctx, func() error {
		return r.startGame(ctx, userID)
	})
}

// Act submits a betting action for userID.
func (r *Room) Act(ctx context.Context, userID int64, action string, amount int) error {
	return r.do(ctx, func() error {
		return r.act(userID, action, amount)
	})
}

// Ready acknowledges the showdown for userID.
func (r *Room) Ready(ctx context.Context, userID int64) error {
	return r.do(ctx, func() error {
		return r.markReady(userID)
	})
}

// UpdateSettings changes the room options between games.
func (r *Room) UpdateSettings(ctx context.Context, userID int64, p protocol.Settings) error {
	return r.do(ctx, func() error {
		return r.updateSettings(userID, p)
	})
}

// State returns userID's current view of the table.
func (r *Room) State(ctx context.Context, userID int64) (protocol.GameState, error) {
	return call(ctx, r, func() (protocol.GameState, error) {
		return r.view(userID), nil
	})
}

func (r *Room) join(ctx context.Context, userID int64, name string, s Sender) (*int64, error) {
	if _, ok := r.members[userID]; ok {
		return nil, ErrAlreadyInRoom
	}
	if len(r.members)+r.seatedBots() >= r.cfg.MaxSeats {
		return nil, ErrRoomFull
	}

	chips := r.settings.StartChips
	var balance *int64
	if r.settings.PlayForExternalCurrency {
		bal, err := r.buyIn(ctx, userID)
		if err != nil {
			return nil, err
		}
		balance = &bal
	} else if banked, ok := r.chipBank[userID]; ok {
		chips = banked
		delete(r.chipBank, userID)
	}

	if err := r.game.AddPlayer(userID, name, chips, false); err != nil {
		if balance != nil {
			r.cashOut(ctx, userID, chips)
		}
		return nil, err
	}
	r.members[userID] = &member{name: name, sender: s}
	r.order = append(r.order, userID)
	if len(r.order) == 1 && !r.started {
		r.syncBots()
	}
	r.dirty = true
	r.logger.Info("player joined", "user", userID, "name", name, "chips", chips)

	info := r.buildInfo()
	s.Send(protocol.NewRoomJoined(info, balance))
	r.broadcastExcept(userID, protocol.NewRoomUpdated(info))
	if r.started {
		s.Send(protocol.NewGameState(r.view(userID)))
		r.resume()
	}
	return balance, nil
}

func (r *Room) leave(ctx context.Context, userID int64, onlyIfAbsent bool) (LeaveResult, error) {
	var res LeaveResult
	m, ok := r.members[userID]
	if !ok {
		return res, ErrNotInRoom
	}
	if onlyIfAbsent && m.sender != nil {
		res.Stayed = true
		return res, nil
	}

	chips := 0
	if _, seated := r.game.Player(userID); seated {
		chips, _ = r.game.RemovePlayer(userID)
		r.moves++
	} else if banked, ok := r.chipBank[userID]; ok {
		chips = banked
		delete(r.chipBank, userID)
	}

	delete(r.members, userID)
	delete(r.ready, userID)
	r.order = slices.DeleteFunc(r.order, func(id int64) bool { return id == userID })

	if r.settings.PlayForExternalCurrency {
		res.Balance = r.cashOut(ctx, userID, chips)
	} else {
		r.chipBank[userID] = chips
	}
	r.dirty = true
	r.logger.Info("player left", "user", userID, "chips", chips)

	if len(r.members) == 0 {
		if r.started {
			r.endGame()
		}
		r.removeBots()
		r.cancelTimers()
		res.Empty = true
		return res, nil
	}

	if r.creatorID == userID {
		r.creatorID = r.nextOwner()
		r.logger.Info("ownership transferred", "creator", r.creatorID)
	}

	if r.started {
		switch {
		case len(r.connectedHumans()) == 0:
			r.endGame()
		case !r.game.Phase.Betting() && r.playableSeats() < 2:
			r.endGame()
		default:
			r.progress()
			r.checkReady()
		}
	}

	r.broadcast(protocol.NewRoomUpdated(r.buildInfo()))
	r.broadcastStates()
	return res, nil
}

func (r *Room) detach(userID int64, s Sender) bool {
	m, ok := r.members[userID]
	if !ok || m.sender != s {
		return false
	}
	m.sender = nil
	r.dirty = true
	r.logger.Info("player disconnected", "user", userID)

	if r.started {
		r.progress()
		r.checkReady()
	}
	r.broadcast(protocol.NewRoomUpdated(r.buildInfo()))
	r.broadcastStates()
	return true
}

func (r *Room) reconnect(userID int64, s Sender) error {
	m, ok := r.members[userID]
	if !ok {
		return ErrNotInRoom
	}
	m.sender = s
	if _, seated := r.game.Player(userID); !seated {
		chips := r.chipBank[userID]
		delete(r.chipBank, userID)
		if err := r.game.AddPlayer(userID, m.name, chips, false); err != nil {
			return err
		}
	}
	r.dirty = true
	r.logger.Info("player reconnected", "user", userID)

	info := r.buildInfo()
	s.Send(protocol.NewReconnected(info))
	r.broadcastExcept(userID, protocol.NewRoomUpdated(info))
	if r.started {
		r.resume()
	}
	r.broadcastStates()
	return nil
}

func (r *Room) act(userID int64, action string, amount int) error {
	if !r.started {
		return ErrNoActiveGame
	}
	a, err := game.ParseAction(action)
	if err != nil {
		return err
	}
	if err := r.apply(userID, a, amount); err != nil {
		return err
	}
	r.progress()
	r.broadcastStates()
	return nil
}

func (r *Room) markReady(userID int64) error {
	if _, ok := r.members[userID]; !ok {
		return ErrNotInRoom
	}
	if !r.started || r.game.Phase != game.PhaseShowdown {
		return nil
	}
	r.ready[userID] = true
	r.broadcast(protocol.NewPlayerReady(userID, r.readyList()))
	r.checkReady()
	return nil
}

func (r *Room) updateSettings(userID int64, p protocol.Settings) error {
	if userID != r.creatorID {
		return ErrNotCreator
	}
	if r.started {
		return ErrGameInProgress
	}
	if p.PlayForExternalCurrency != nil && *p.PlayForExternalCurrency != r.settings.PlayForExternalCurrency {
		return ErrCurrencyLocked
	}

	r.settings = r.settings.Apply(p, r.cfg.MaxSeats)
	r.applyBlinds()
	if !r.settings.PlayForExternalCurrency {
		for _, id := range r.order {
			_ = r.game.SetStack(id, r.settings.StartChips)
		}
	}
	r.syncBots()
	r.dirty = true
	r.logger.Info("settings updated",
		"small_blind", r.settings.SmallBlind,
		"big_blind", r.settings.BigBlind,
		"start_chips", r.settings.StartChips,
		"bots", r.settings.BotCount)

	r.broadcast(protocol.NewRoomUpdated(r.buildInfo()))
	return nil
}

// buyIn debits the start chips from the wallet.
func (r *Room) buyIn(ctx context.Context, userID int64) (int64, error) {
	if r.cfg.Wallet == nil {
		return 0, ErrNoWallet
	}
	bal, err := r.cfg.Wallet.Debit(ctx, userID, int64(r.settings.StartChips))
	if err != nil {
		return 0, fmt.Errorf("buy-in: %w", err)
	}
	r.logger.Info("bought in", "user", userID, "chips", r.settings.StartChips, "balance", bal)
	return bal, nil
}

// checkBuyIn reports whether the wallet covers the start chips without
// debiting anything.
func (r *Room) checkBuyIn(ctx context.Context, userID int64) error {
	if r.cfg.Wallet == nil {
		return ErrNoWallet
	}
	bal, err := r.cfg.Wallet.Balance(ctx, userID)
	if err != nil {
		return fmt.Errorf("buy-in: %w", err)
	}
	if bal < int64(r.settings.StartChips) {
		return fmt.Errorf("buy-in: %w", wallet.ErrInsufficientFunds)
	}
	return nil
}

// cashOut credits chips back to the wallet and returns the new balance.
func (r *Room) cashOut(ctx context.Context, userID int64, chips int) *int64 {
	if r.cfg.Wallet == nil {
		return nil
	}
	if chips <= 0 {
		bal, err := r.cfg.Wallet.Balance(ctx, userID)
		if err != nil {
			return nil
		}
		return &bal
	}
	bal, err := r.cfg.Wallet.Credit(ctx, userID, int64(chips))
	if err != nil {
		r.logger.Error("cash-out failed", "user", userID, "chips", chips, "err", err)
		return nil
	}
	r.logger.Info("cashed out", "user", userID, "chips", chips, "balance", bal)
	return &bal
}

func (r *Room) connected(userID int64) bool {
	m, ok := r.members[userID]
	return ok && m.sender != nil
}

func (r *Room) connectedHumans() []int64 {
	var ids []int64
	for _, id := range r.order {
		if r.members[id].sender != nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *Room) nextOwner() int64 {
	if ids := r.connectedHumans(); len(ids) > 0 {
		return ids[0]
	}
	return r.order[0]
}

func (r *Room) seatedBots() int {
	n := 0
	for _, p := range r.game.Players {
		if p.IsBot {
			n++
		}
	}
	return n
}
