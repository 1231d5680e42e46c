package main

import (
	"fmt"

	"github.com/KmXK/dvoretskii-bot-sub000/internal/metrics"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/room"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/server"
	"github.com/KmXK/dvoretskii-bot-sub000/internal/wallet"
	"github.com/coder/quartz"
)

// ServerCmd runs the websocket server. Flags override the config file.
type ServerCmd struct {
	Config   string `kong:"default='pokerroom.hcl',help='HCL configuration file'"`
	Addr     string `kong:"help='Server address (overrides config)'"`
	LogLevel string `kong:"help='Log level: debug, info, warn, error (overrides config)'"`
	Debug    bool   `kong:"help='Enable debug logging'"`
	BotToken string `kong:"env='TELEGRAM_BOT_TOKEN',help='Telegram bot token for init data checks'"`
	Wallet   string `kong:"help='Wallet database path; enables currency rooms'"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if c.BotToken != "" {
		cfg.Auth.BotToken = c.BotToken
		if cfg.Auth.Mode == server.AuthDev {
			cfg.Auth.Mode = server.AuthTelegram
		}
	}
	if c.Wallet != "" {
		cfg.Wallet.Enabled = true
		cfg.Wallet.Path = c.Wallet
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := setupLogger(cfg.Server.LogLevel, c.Debug)
	if err != nil {
		return err
	}

	clock := quartz.NewReal()
	validator, err := cfg.NewValidator(clock)
	if err != nil {
		return err
	}
	if cfg.Auth.Mode == server.AuthDev {
		logger.Warn("Dev auth accepts any user id; do not expose this server")
	}

	roomCfg, err := cfg.RoomConfig()
	if err != nil {
		return err
	}
	prom := metrics.NewPrometheus(logger)
	roomCfg.Clock = clock
	roomCfg.Logger = logger
	roomCfg.Metrics = prom

	if cfg.Wallet.Enabled {
		store, err := wallet.OpenSQLite(cfg.Wallet.Path, cfg.Wallet.InitialBalance)
		if err != nil {
			return err
		}
		defer store.Close()
		roomCfg.Wallet = store
		logger.Info("Currency rooms enabled", "wallet", cfg.Wallet.Path)
	}

	rooms := room.NewManager(roomCfg)
	s := server.NewServer(server.Options{
		Rooms:       rooms,
		Validator:   validator,
		Logger:      logger,
		Metrics:     prom.Handler(),
		MetricsPath: cfg.Server.MetricsPath,
	})

	logger.Info("Starting poker room server",
		"address", cfg.Server.Address,
		"auth", cfg.Auth.Mode,
		"max_seats", roomCfg.MaxSeats,
		"grace", roomCfg.GracePeriod,
		"next_hand_delay", roomCfg.NextHandDelay)

	ctx, cancel := signalContext(logger)
	defer cancel()
	return s.Run(ctx, cfg.Server.Address)
}
