package server

import (
	"fmt"
	"os"
	"time"

	"github.com/KmXK/dvoretskii-bot-sub000/internal/auth"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/room"
	"github.com/coder/quartz"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Auth modes.
const (
	AuthDev      = "dev"
	AuthTelegram = "telegram"
	AuthHTTP     = "http"
)

// Config is the complete server configuration.
type Config struct {
	Server *ServerSettings `hcl:"server,block"`
	Auth   *AuthSettings   `hcl:"auth,block"`
	Wallet *WalletSettings `hcl:"wallet,block"`
	Rooms  *RoomSettings   `hcl:"rooms,block"`
}

// ServerSettings contains listener and logging configuration.
type ServerSettings struct {
	Address     string `hcl:"address,optional"`
	LogLevel    string `hcl:"log_level,optional"`
	MetricsPath string `hcl:"metrics_path,optional"`
}

// AuthSettings selects how auth frames are verified.
type AuthSettings struct {
	Mode        string `hcl:"mode,optional"`
	BotToken    string `hcl:"bot_token,optional"`
	URL         string `hcl:"url,optional"`
	AdminSecret string `hcl:"admin_secret,optional"`
	MaxAge      string `hcl:"max_age,optional"`
}

// WalletSettings enables currency rooms backed by a SQLite wallet.
type WalletSettings struct {
	Enabled        bool   `hcl:"enabled,optional"`
	Path           string `hcl:"path,optional"`
	InitialBalance int64  `hcl:"initial_balance,optional"`
}

// RoomSettings holds the timings shared by every room. Durations use
// time.ParseDuration syntax.
type RoomSettings struct {
	MaxSeats      int    `hcl:"max_seats,optional"`
	GracePeriod   string `hcl:"grace_period,optional"`
	NextHandDelay string `hcl:"next_hand_delay,optional"`
	BotDelayMin   string `hcl:"bot_delay_min,optional"`
	BotDelayMax   string `hcl:"bot_delay_max,optional"`
	BlindLadder   []int  `hcl:"blind_ladder,optional"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// LoadConfig loads configuration from an HCL file. A missing file yields
// the defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server == nil {
		c.Server = &ServerSettings{}
	}
	if c.Auth == nil {
		c.Auth = &AuthSettings{}
	}
	if c.Wallet == nil {
		c.Wallet = &WalletSettings{}
	}
	if c.Rooms == nil {
		c.Rooms = &RoomSettings{}
	}

	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = "/metrics"
	}

	if c.Auth.Mode == "" {
		c.Auth.Mode = AuthDev
	}
	if c.Auth.MaxAge == "" {
		c.Auth.MaxAge = "24h"
	}

	if c.Wallet.Path == "" {
		c.Wallet.Path = "wallet.db"
	}
	if c.Wallet.InitialBalance == 0 {
		c.Wallet.InitialBalance = 10000
	}

	d := room.DefaultConfig()
	if c.Rooms.MaxSeats == 0 {
		c.Rooms.MaxSeats = d.MaxSeats
	}
	if c.Rooms.GracePeriod == "" {
		c.Rooms.GracePeriod = d.GracePeriod.String()
	}
	if c.Rooms.NextHandDelay == "" {
		c.Rooms.NextHandDelay = d.NextHandDelay.String()
	}
	if c.Rooms.BotDelayMin == "" {
		c.Rooms.BotDelayMin = d.BotDelayMin.String()
	}
	if c.Rooms.BotDelayMax == "" {
		c.Rooms.BotDelayMax = d.BotDelayMax.String()
	}
	if len(c.Rooms.BlindLadder) == 0 {
		c.Rooms.BlindLadder = append([]int(nil), room.DefaultBlindLadder...)
	}
}

// Validate rejects inconsistent values.
func (c *Config) Validate() error {
	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}
	if c.Server.MetricsPath[0] != '/' {
		return fmt.Errorf("metrics path must start with /: %s", c.Server.MetricsPath)
	}

	switch c.Auth.Mode {
	case AuthDev:
	case AuthTelegram:
		if c.Auth.BotToken == "" {
			return fmt.Errorf("auth mode %s requires bot_token", c.Auth.Mode)
		}
	case AuthHTTP:
		if c.Auth.URL == "" {
			return fmt.Errorf("auth mode %s requires url", c.Auth.Mode)
		}
	default:
		return fmt.Errorf("invalid auth mode: %s", c.Auth.Mode)
	}
	if _, err := parseDuration("auth.max_age", c.Auth.MaxAge); err != nil {
		return err
	}

	if c.Wallet.Enabled && c.Wallet.InitialBalance < 0 {
		return fmt.Errorf("wallet initial balance must not be negative")
	}

	if c.Rooms.MaxSeats < 2 || c.Rooms.MaxSeats > 10 {
		return fmt.Errorf("max seats must be between 2 and 10")
	}
	rc, err := c.RoomConfig()
	if err != nil {
		return err
	}
	if rc.BotDelayMax < rc.BotDelayMin {
		return fmt.Errorf("bot_delay_max must not be below bot_delay_min")
	}
	for i, m := range c.Rooms.BlindLadder {
		if m <= 0 || (i > 0 && m < c.Rooms.BlindLadder[i-1]) {
			return fmt.Errorf("blind ladder must be positive and non-decreasing")
		}
	}
	return nil
}

// RoomConfig converts the rooms block into room timings. Collaborators
// are left for the caller to fill in.
func (c *Config) RoomConfig() (room.Config, error) {
	rc := room.Config{
		MaxSeats:    c.Rooms.MaxSeats,
		BlindLadder: c.Rooms.BlindLadder,
	}
	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"rooms.grace_period", c.Rooms.GracePeriod, &rc.GracePeriod},
		{"rooms.next_hand_delay", c.Rooms.NextHandDelay, &rc.NextHandDelay},
		{"rooms.bot_delay_min", c.Rooms.BotDelayMin, &rc.BotDelayMin},
		{"rooms.bot_delay_max", c.Rooms.BotDelayMax, &rc.BotDelayMax},
	}
	for _, d := range durations {
		v, err := parseDuration(d.name, d.raw)
		if err != nil {
			return room.Config{}, err
		}
		*d.dst = v
	}
	return rc, nil
}

// NewValidator builds the identity validator selected by the auth block.
func (c *Config) NewValidator(clock quartz.Clock) (auth.Validator, error) {
	switch c.Auth.Mode {
	case AuthTelegram:
		maxAge, err := parseDuration("auth.max_age", c.Auth.MaxAge)
		if err != nil {
			return nil, err
		}
		return auth.NewTelegramValidator(c.Auth.BotToken, maxAge, clock), nil
	case AuthHTTP:
		return auth.NewHTTPValidator(c.Auth.URL, c.Auth.AdminSecret), nil
	case AuthDev:
		return auth.NewDevValidator(), nil
	default:
		return nil, fmt.Errorf("invalid auth mode: %s", c.Auth.Mode)
	}
}

func parseDuration(name, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}
	return d, nil
}
