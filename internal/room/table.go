package room

import (
	"context"
	"time"

	"github.com/KmXK/dvoretskii-bot-sub000/internal/bot"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/game"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/protocol"
)

func (r *Room) startGame(ctx context.Context, userID int64) error {
	if _, ok := r.members[userID]; !ok {
		return ErrNotInRoom
	}
	if userID != r.creatorID {
		return ErrNotCreator
	}
	if r.started {
		return ErrGameStarted
	}

	// the table must be playable before anything is unseated or bought
	humans := r.connectedHumans()
	bots := r.wantBots()
	var seated, rebuys []int64
	for _, id := range humans {
		p, ok := r.game.Player(id)
		switch {
		case !ok:
		case !r.settings.PlayForExternalCurrency || p.Chips > 0:
			seated = append(seated, id)
		default:
			if err := r.checkBuyIn(ctx, id); err != nil {
				r.sendTo(id, protocol.NewError(err.Error()))
				continue
			}
			rebuys = append(rebuys, id)
		}
	}
	if len(seated)+len(rebuys)+bots < 2 {
		return ErrNeedPlayers
	}

	var bought []int64
	for _, id := range rebuys {
		bal, err := r.buyIn(ctx, id)
		if err != nil {
			r.sendTo(id, protocol.NewError(err.Error()))
			continue
		}
		r.logger.Debug("rebuy", "user", id, "balance", bal)
		bought = append(bought, id)
	}
	if len(seated)+len(bought)+bots < 2 {
		for _, id := range bought {
			r.cashOut(ctx, id, r.settings.StartChips)
		}
		return ErrNeedPlayers
	}

	// absent members give up their seat until they return
	for _, id := range r.order {
		if r.members[id].sender == nil {
			r.unseat(id)
		}
	}
	r.syncBots()
	for _, id := range seated {
		r.game.SetSittingOut(id, false)
		if !r.settings.PlayForExternalCurrency {
			_ = r.game.SetStack(id, r.settings.StartChips)
		}
	}
	for _, id := range bought {
		r.game.SetSittingOut(id, false)
		_ = r.game.SetStack(id, r.settings.StartChips)
	}

	r.game.Reset()
	r.blindLevel = 0
	r.applyBlinds()

	r.started = true
	r.paused = false
	r.metricsHand = 0
	clear(r.ready)
	r.dirty = true
	r.emitGameStart()
	r.armBlindTimer()
	r.logger.Info("game started", "humans", len(humans), "bots", r.seatedBots())

	if err := r.beginHand(); err != nil {
		r.endGame()
		return ErrNeedPlayers
	}
	r.broadcast(protocol.NewRoomUpdated(r.buildInfo()))
	r.broadcastStates()
	return nil
}

// beginHand deals the next hand. Humans without a connection sit it out.
func (r *Room) beginHand() error {
	for _, p := range r.game.Players {
		if !p.IsBot {
			r.game.SetSittingOut(p.UserID, !r.connected(p.UserID))
		}
	}
	clear(r.ready)
	if err := r.game.StartHand(); err != nil {
		return err
	}
	r.handOpen = true
	r.logger.Debug("hand started", "hand", r.game.HandNum)
	r.progress()
	return nil
}

// apply runs a betting action and counts it as a move.
func (r *Room) apply(userID int64, a game.Action, amount int) error {
	if err := r.game.Act(userID, a, amount); err != nil {
		return err
	}
	r.moves++
	return nil
}

// progress drives the hand until it waits on a connected human or a bot
// timer. Absent humans check or fold on their turn. Reaching showdown
// settles the hand once.
func (r *Room) progress() {
	for r.started && r.game.Phase.Betting() && r.game.CurrentIdx >= 0 {
		idx := r.game.CurrentIdx
		p := r.game.Players[idx]
		if p.IsBot {
			r.armBotTimer()
			return
		}
		if r.connected(p.UserID) {
			return
		}
		a := bot.Fallback(r.game, idx)
		if err := r.apply(p.UserID, a, 0); err != nil {
			r.logger.Error("auto action rejected", "user", p.UserID, "action", a, "err", err)
			return
		}
		r.logger.Debug("auto action for absent player", "user", p.UserID, "action", a)
	}
	if r.handOpen && r.game.Phase == game.PhaseShowdown {
		r.finishHand()
	}
}

// finishHand settles bookkeeping at showdown: metrics, the ready barrier
// and the next-hand timer.
func (r *Room) finishHand() {
	r.handOpen = false
	r.cancelBotTimer()
	r.emitHandMetrics()
	clear(r.ready)
	for _, p := range r.game.Players {
		if p.IsBot {
			r.ready[p.UserID] = true
		}
	}
	r.logger.Debug("hand finished", "hand", r.game.HandNum, "pot", resultsPot(r.game.Results))
	r.broadcastStates()
	r.armHandTimer()
	r.checkReady()
}

// checkReady starts the next hand early once every connected human who
// can play has acknowledged the showdown. With nobody connected the room
// waits for the next-hand timer.
func (r *Room) checkReady() {
	if !r.started || r.handOpen || r.game.Phase != game.PhaseShowdown {
		return
	}
	humans := r.connectedHumans()
	if len(humans) == 0 {
		return
	}
	for _, id := range humans {
		p, ok := r.game.Player(id)
		if !ok || p.SittingOut || p.Chips <= 0 {
			continue
		}
		if !r.ready[id] {
			return
		}
	}
	r.startNextHand()
}

func (r *Room) startNextHand() {
	r.cancelHandTimer()
	if !r.started || r.game.Phase.Betting() {
		return
	}
	if len(r.connectedHumans()) == 0 {
		r.paused = true
		r.logger.Info("waiting for players to return")
		return
	}
	r.paused = false
	if r.playableSeats() < 2 || r.playableHumans() == 0 {
		r.endGame()
		return
	}
	if err := r.beginHand(); err != nil {
		r.logger.Warn("cannot start hand", "err", err)
		r.endGame()
		return
	}
	r.broadcastStates()
}

// resume re-arms a paused room after a human returns.
func (r *Room) resume() {
	if r.paused {
		r.paused = false
		r.armHandTimer()
	}
}

// playableSeats counts seats with chips held by bots or connected humans.
func (r *Room) playableSeats() int {
	n := 0
	for i, p := range r.game.Players {
		if r.game.Seat(p.UserID) != i || p.Chips <= 0 {
			continue
		}
		if p.IsBot || r.connected(p.UserID) {
			n++
		}
	}
	return n
}

// playableHumans counts connected humans who still hold chips.
func (r *Room) playableHumans() int {
	n := 0
	for _, id := range r.connectedHumans() {
		if p, ok := r.game.Player(id); ok && p.Chips > 0 {
			n++
		}
	}
	return n
}

// endGame stops play. A running hand is abandoned with committed chips
// returned to the seats still present, bots are cleared and absent members
// give up their seats.
func (r *Room) endGame() {
	if r.started {
		r.emitGameOver()
	}
	if lost := r.game.EndHand(); lost > 0 {
		r.logger.Info("abandoned hand forfeits departed players' chips", "chips", lost)
	}
	r.started = false
	r.paused = false
	r.handOpen = false
	r.cancelTimers()
	r.blindLevel = 0
	r.applyBlinds()
	r.removeBots()
	for _, id := range r.order {
		if r.members[id].sender == nil {
			r.unseat(id)
		}
	}
	clear(r.ready)
	r.dirty = true
	r.logger.Info("game over")

	r.broadcast(protocol.NewGameOver())
	r.broadcast(protocol.NewRoomUpdated(r.buildInfo()))
}

// unseat removes a member's seat between games, banking the stack so a
// later reconnect or cash-out finds it.
func (r *Room) unseat(userID int64) {
	if r.game.Phase.Betting() {
		return
	}
	if chips, ok := r.game.RemovePlayer(userID); ok {
		r.chipBank[userID] = chips
	}
}

// syncBots replaces the bot roster to match the configured count.
func (r *Room) syncBots() {
	if r.started {
		return
	}
	r.removeBots()
	want := r.wantBots()
	taken := make(map[string]bool)
	for _, p := range r.game.Players {
		taken[p.Name] = true
	}
	for range want {
		name := bot.Name(r.rng, taken)
		taken[name] = true
		id := r.nextBotID
		r.nextBotID--
		_ = r.game.AddPlayer(id, name, r.settings.StartChips, true)
	}
}

// wantBots is the number of bots the next game seats.
func (r *Room) wantBots() int {
	return max(0, min(r.settings.BotCount, r.cfg.MaxSeats-len(r.members)))
}

func (r *Room) removeBots() {
	var ids []int64
	for _, p := range r.game.Players {
		if p.IsBot {
			ids = append(ids, p.UserID)
		}
	}
	for _, id := range ids {
		r.game.RemovePlayer(id)
	}
}

func (r *Room) applyBlinds() (small, big int) {
	small, big = BlindsAt(r.settings.SmallBlind, r.settings.BigBlind, r.cfg.BlindLadder, r.blindLevel)
	r.game.SetBlinds(small, big)
	return small, big
}

func (r *Room) nextTimerGen() uint64 {
	r.timerGen++
	return r.timerGen
}

// armBotTimer schedules the bot on turn after a random think delay. A
// timer already armed for the same turn is kept.
func (r *Room) armBotTimer() {
	if r.botGen != 0 && r.botMoves == r.moves {
		return
	}
	r.cancelBotTimer()
	gen := r.nextTimerGen()
	r.botGen = gen
	r.botMoves = r.moves
	delay := r.cfg.BotDelayMin
	if spread := r.cfg.BotDelayMax - r.cfg.BotDelayMin; spread > 0 {
		delay += time.Duration(r.rng.Int64N(int64(spread) + 1))
	}
	r.botTimer = r.clock.AfterFunc(delay, func() {
		r.post(func() {
			if r.botGen != gen {
				return
			}
			r.botGen = 0
			r.botTurn()
		})
	})
}

func (r *Room) botTurn() {
	if !r.started || !r.game.Phase.Betting() || r.game.CurrentIdx < 0 {
		return
	}
	idx := r.game.CurrentIdx
	p := r.game.Players[idx]
	if !p.IsBot {
		return
	}
	d := bot.Decide(r.game, idx, r.settings.BotDifficulty, r.rng)
	if err := r.apply(p.UserID, d.Action, d.Amount); err != nil {
		fallback := bot.Fallback(r.game, idx)
		r.logger.Warn("illegal bot proposal", "bot", p.Name, "decision", d.String(), "err", err, "fallback", fallback)
		if err := r.apply(p.UserID, fallback, 0); err != nil {
			r.logger.Error("bot fallback rejected", "bot", p.Name, "err", err)
			return
		}
	} else {
		r.logger.Debug("bot acted", "bot", p.Name, "decision", d.String())
	}
	r.progress()
	r.broadcastStates()
}

func (r *Room) cancelBotTimer() {
	if r.botTimer != nil {
		r.botTimer.Stop()
		r.botTimer = nil
	}
	r.botGen = 0
}

// armHandTimer (re)starts the countdown to the next hand.
func (r *Room) armHandTimer() {
	r.cancelHandTimer()
	gen := r.nextTimerGen()
	r.handGen = gen
	r.handTimer = r.clock.AfterFunc(r.cfg.NextHandDelay, func() {
		r.post(func() {
			if r.handGen != gen {
				return
			}
			r.handGen = 0
			r.startNextHand()
		})
	})
}

func (r *Room) cancelHandTimer() {
	if r.handTimer != nil {
		r.handTimer.Stop()
		r.handTimer = nil
	}
	r.handGen = 0
}

// armBlindTimer schedules the next escalation, if any remains.
func (r *Room) armBlindTimer() {
	r.cancelBlindTimer()
	if !r.settings.BlindIncreaseEnabled || r.blindLevel >= len(r.cfg.BlindLadder)-1 {
		return
	}
	gen := r.nextTimerGen()
	r.blindGen = gen
	interval := r.settings.BlindIncreaseInterval
	r.nextBlindAt = r.clock.Now().Add(interval)
	r.blindTimer = r.clock.AfterFunc(interval, func() {
		r.post(func() {
			if r.blindGen != gen {
				return
			}
			r.blindGen = 0
			r.raiseBlinds()
		})
	})
}

func (r *Room) raiseBlinds() {
	r.nextBlindAt = time.Time{}
	if !r.started {
		return
	}
	r.blindLevel++
	small, big := r.applyBlinds()
	r.logger.Info("blinds increased", "level", r.blindLevel, "small_blind", small, "big_blind", big)
	r.broadcast(protocol.NewBlindsIncreased(small, big, r.blindLevel))
	r.armBlindTimer()
	r.broadcastStates()
}

func (r *Room) cancelBlindTimer() {
	if r.blindTimer != nil {
		r.blindTimer.Stop()
		r.blindTimer = nil
	}
	r.blindGen = 0
	r.nextBlindAt = time.Time{}
}

func (r *Room) cancelTimers() {
	r.cancelBotTimer()
	r.cancelHandTimer()
	r.cancelBlindTimer()
}

func resultsPot(res *game.Results) int {
	if res == nil {
		return 0
	}
	return res.Pot
}
