package room

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/KmXK/dvoretskii-bot-sub000/internal/bot"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/protocol"
)

const (
	DefaultMaxSeats = 8
	MaxNameLength   = 40

	minSmallBlind       = 1
	maxSmallBlind       = 1000
	maxBigBlind         = 2000
	maxStartChips       = 100000
	minIntervalMinutes  = 1
	maxIntervalMinutes  = 60
	startChipsPerBlinds = 10
)

// Settings are the per-room table options.
type Settings struct {
	SmallBlind              int
	BigBlind                int
	StartChips              int
	BotCount                int
	BotDifficulty           bot.Difficulty
	BlindIncreaseEnabled    bool
	BlindIncreaseInterval   time.Duration
	PlayForExternalCurrency bool
}

// DefaultSettings returns the options of a room created without overrides.
func DefaultSettings() Settings {
	return Settings{
		SmallBlind:            10,
		BigBlind:              20,
		StartChips:            1000,
		BotDifficulty:         bot.Medium,
		BlindIncreaseInterval: 10 * time.Minute,
	}
}

// Apply overlays the non-nil fields of p and clamps every value into its
// allowed range. Big blind is at least twice the small blind and start
// chips at least ten big blinds.
func (s Settings) Apply(p protocol.Settings, maxSeats int) Settings {
	if p.SmallBlind != nil {
		s.SmallBlind = *p.SmallBlind
	}
	if p.BigBlind != nil {
		s.BigBlind = *p.BigBlind
	}
	if p.StartChips != nil {
		s.StartChips = *p.StartChips
	}
	if p.BotCount != nil {
		s.BotCount = *p.BotCount
	}
	if p.BotDifficulty != nil {
		s.BotDifficulty = bot.ParseDifficulty(*p.BotDifficulty)
	}
	if p.BlindIncreaseEnabled != nil {
		s.BlindIncreaseEnabled = *p.BlindIncreaseEnabled
	}
	if p.BlindIncreaseInterval != nil {
		s.BlindIncreaseInterval = time.Duration(*p.BlindIncreaseInterval) * time.Minute
	}
	if p.PlayForExternalCurrency != nil {
		s.PlayForExternalCurrency = *p.PlayForExternalCurrency
	}
	return s.clamped(maxSeats)
}

func (s Settings) clamped(maxSeats int) Settings {
	s.SmallBlind = clamp(s.SmallBlind, minSmallBlind, maxSmallBlind)
	s.BigBlind = clamp(s.BigBlind, 2*s.SmallBlind, maxBigBlind)
	s.StartChips = clamp(s.StartChips, startChipsPerBlinds*s.BigBlind, maxStartChips)
	s.BotCount = clamp(s.BotCount, 0, max(maxSeats-1, 0))
	if s.BotDifficulty == "" {
		s.BotDifficulty = bot.Medium
	}
	minutes := clamp(int(s.BlindIncreaseInterval/time.Minute), minIntervalMinutes, maxIntervalMinutes)
	s.BlindIncreaseInterval = time.Duration(minutes) * time.Minute
	return s
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// roomName trims name to MaxNameLength runes, falling back to "Room n".
func roomName(name string, n int) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Sprintf("Room %d", n)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = string([]rune(name)[:MaxNameLength])
	}
	return name
}
