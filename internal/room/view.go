package room

import (
	"slices"
	"strconv"

	"github.com/KmXK/dvoretskii-bot-sub000/internal/game"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/metrics"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/protocol"
)

// view projects the table for userID with room-level progress attached.
func (r *Room) view(userID int64) protocol.GameState {
	st := r.game.StateFor(userID)
	for i := range st.Players {
		pv := &st.Players[i]
		pv.Connected = pv.IsBot || r.connected(pv.ID)
	}

	var next *int64
	if !r.nextBlindAt.IsZero() {
		ms := r.nextBlindAt.UnixMilli()
		next = &ms
	}
	return protocol.GameState{
		State:               st,
		BlindLevel:          r.blindLevel,
		NextBlindIncreaseAt: next,
		ReadyPlayers:        r.readyList(),
	}
}

func (r *Room) readyList() []int64 {
	ids := make([]int64, 0, len(r.ready))
	for id, ok := range r.ready {
		if ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func (r *Room) buildInfo() protocol.RoomInfo {
	players := make([]protocol.SeatInfo, 0, len(r.game.Players))
	for i, p := range r.game.Players {
		if r.game.Seat(p.UserID) != i {
			continue
		}
		players = append(players, protocol.SeatInfo{ID: p.UserID, Name: p.Name, IsBot: p.IsBot})
	}
	return protocol.RoomInfo{
		ID:                      r.ID,
		Name:                    r.name,
		CreatorID:               r.creatorID,
		PlayerCount:             len(r.members),
		BotCount:                r.seatedBots(),
		BotDifficulty:           string(r.settings.BotDifficulty),
		MaxPlayers:              r.cfg.MaxSeats,
		Started:                 r.started,
		SmallBlind:              r.settings.SmallBlind,
		BigBlind:                r.settings.BigBlind,
		StartChips:              r.settings.StartChips,
		BlindIncreaseEnabled:    r.settings.BlindIncreaseEnabled,
		BlindIncreaseInterval:   int(r.settings.BlindIncreaseInterval.Minutes()),
		PlayForExternalCurrency: r.settings.PlayForExternalCurrency,
		Players:                 players,
	}
}

func (r *Room) sendTo(userID int64, msg protocol.Outbound) {
	if m, ok := r.members[userID]; ok && m.sender != nil {
		if !m.sender.Send(msg) {
			r.logger.Warn("dropped frame", "user", userID, "type", msg.MessageType())
		}
	}
}

func (r *Room) broadcast(msg protocol.Outbound) {
	r.broadcastExcept(0, msg)
}

func (r *Room) broadcastExcept(skip int64, msg protocol.Outbound) {
	for _, id := range r.order {
		if id != skip {
			r.sendTo(id, msg)
		}
	}
}

// broadcastStates pushes each connected member their own view. Nothing is
// sent between games.
func (r *Room) broadcastStates() {
	if !r.started && r.game.Phase == game.PhaseWaiting {
		return
	}
	for _, id := range r.order {
		if r.connected(id) {
			r.sendTo(id, protocol.NewGameState(r.view(id)))
		}
	}
}

func userLabels(p *game.Player) metrics.Labels {
	return metrics.Labels{
		"user_id":   strconv.FormatInt(p.UserID, 10),
		"user_name": p.Name,
	}
}

func withLabel(l metrics.Labels, k, v string) metrics.Labels {
	out := make(metrics.Labels, len(l)+1)
	for key, val := range l {
		out[key] = val
	}
	out[k] = v
	return out
}

func (r *Room) emitGameStart() {
	for _, p := range r.game.Players {
		if !p.IsBot && !p.SittingOut {
			r.cfg.Metrics.Inc(metrics.GamesTotal, userLabels(p), 1)
		}
	}
}

// emitGameOver credits the game to the human chip leader, if any.
func (r *Room) emitGameOver() {
	var best *game.Player
	for _, p := range r.game.Players {
		if p.SittingOut && p.Chips == 0 {
			continue
		}
		if best == nil || p.Chips > best.Chips {
			best = p
		}
	}
	if best != nil && !best.IsBot && best.Chips > 0 {
		r.cfg.Metrics.Inc(metrics.GamesWonTotal, userLabels(best), 1)
	}
}

// emitHandMetrics records the settled hand for each human dealt in. It
// fires at most once per hand.
func (r *Room) emitHandMetrics() {
	res := r.game.Results
	if res == nil || r.game.HandNum <= r.metricsHand {
		return
	}
	r.metricsHand = r.game.HandNum

	for i, p := range r.game.Players {
		if p.IsBot || p.SittingOut {
			continue
		}
		labels := userLabels(p)
		won := res.Won[i]

		result := "loss"
		switch {
		case won > 0:
			result = "win"
		case p.Folded:
			result = "fold"
		}
		r.cfg.Metrics.Inc(metrics.HandsTotal, withLabel(labels, "result", result), 1)

		switch net := won - p.TotalBet; {
		case net > 0:
			r.cfg.Metrics.Inc(metrics.ChipsWonTotal, labels, net)
		case net < 0:
			r.cfg.Metrics.Inc(metrics.ChipsLostTotal, labels, -net)
		}

		if h, ok := res.Hands[i]; ok {
			combo := withLabel(labels, "combination", h.Name)
			r.cfg.Metrics.Inc(metrics.CombinationsTotal, combo, 1)
			if won > 0 {
				r.cfg.Metrics.Inc(metrics.CombinationsWonTotal, combo, 1)
			}
		}
	}
}
