package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/glotchimo/armada/internal/bot"
	"github.com/glotchimo/armada/internal/handlers"
	"github.com/glotchimo/armada/internal/handlers/buttons"
	"github.com/glotchimo/armada/internal/handlers/commands"
	"github.com/glotchimo/armada/internal/handlers/reactions"
	"github.com/glotchimo/armada/internal/handlers/triggers"
	"github.com/glotchimo/armada/internal/lang"
	"github.com/glotchimo/armada/internal/ratelimit"
)

type config struct {
	Token      string `env:"BOT_TOKEN,required"`
	Intents    int    `env:"BOT_INTENTS" envDefault:"32509"`
	ShardID    int    `env:"SHARD_ID" envDefault:"0"`
	ShardCount int    `env:"SHARD_COUNT" envDefault:"1"`
	RPCPort    int    `env:"SHARD_RPC_PORT" envDefault:"5100"`
	Debug      bool   `env:"DEBUG" envDefault:"false"`

	DefaultLocale string `env:"DEFAULT_LOCALE"`

	CommandLimitAmount    int           `env:"RATE_LIMIT_COMMAND_AMOUNT" envDefault:"10"`
	CommandLimitInterval  time.Duration `env:"RATE_LIMIT_COMMAND_INTERVAL" envDefault:"30s"`
	ButtonLimitAmount     int           `env:"RATE_LIMIT_BUTTON_AMOUNT" envDefault:"10"`
	ButtonLimitInterval   time.Duration `env:"RATE_LIMIT_BUTTON_INTERVAL" envDefault:"30s"`
	ReactionLimitAmount   int           `env:"RATE_LIMIT_REACTION_AMOUNT" envDefault:"10"`
	ReactionLimitInterval time.Duration `env:"RATE_LIMIT_REACTION_INTERVAL" envDefault:"30s"`
	TriggerLimitAmount    int           `env:"RATE_LIMIT_TRIGGER_AMOUNT" envDefault:"10"`
	TriggerLimitInterval  time.Duration `env:"RATE_LIMIT_TRIGGER_INTERVAL" envDefault:"30s"`

	RateLimitLogMinSecs int `env:"RATE_LIMIT_LOG_MIN_SECS" envDefault:"10"`
}

func main() {
	godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		slog.Error("failed to parse config", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With("shard_id", cfg.ShardID)
	slog.SetDefault(log)

	if cfg.DefaultLocale != "" {
		lang.DefaultLocale = lang.Locale(cfg.DefaultLocale)
	}

	started := time.Now()

	// The mention trigger needs the bot's own user ID, which only exists
	// once the session is ready; resolve it lazily through the closure.
	var b *bot.Bot
	selfID := func() string {
		if b == nil {
			return ""
		}
		return b.SelfID()
	}

	b, err := bot.New(bot.Options{
		Token:      cfg.Token,
		Intents:    cfg.Intents,
		ShardID:    cfg.ShardID,
		ShardCount: cfg.ShardCount,
		RPCPort:    cfg.RPCPort,

		Commands: []handlers.Command{
			commands.NewPing(),
			commands.NewInfo(started),
		},
		Buttons: []handlers.Button{
			buttons.NewPingAgain(),
		},
		Reactions: []handlers.Reaction{
			reactions.NewWave(),
		},
		Triggers: []handlers.Trigger{
			triggers.NewMention(selfID),
		},

		CommandLimiter:  ratelimit.New(cfg.CommandLimitAmount, cfg.CommandLimitInterval),
		ButtonLimiter:   ratelimit.New(cfg.ButtonLimitAmount, cfg.ButtonLimitInterval),
		ReactionLimiter: ratelimit.New(cfg.ReactionLimitAmount, cfg.ReactionLimitInterval),
		TriggerLimiter:  ratelimit.New(cfg.TriggerLimitAmount, cfg.TriggerLimitInterval),

		RateLimitLogMin: time.Duration(cfg.RateLimitLogMinSecs) * time.Second,
	}, log)
	if err != nil {
		log.Error("failed to build bot", "error", err)
		os.Exit(1)
	}

	if err := b.Start(); err != nil {
		log.Error("failed to start bot", "error", err)
		os.Exit(1)
	}
	log.Info("worker started", "shard_count", cfg.ShardCount, "rpc_port", cfg.RPCPort)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := b.Stop(ctx); err != nil {
		log.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
}
