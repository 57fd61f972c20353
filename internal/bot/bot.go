// Package bot wires one shard's gateway session to the dispatch pipelines
// and exposes the worker's state over the fleet RPC.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	dg "github.com/bwmarrin/discordgo"
	"github.com/graxinc/errutil"

	"github.com/glotchimo/armada/internal/dispatch"
	"github.com/glotchimo/armada/internal/handlers"
	"github.com/glotchimo/armada/internal/lang"
	"github.com/glotchimo/armada/internal/models"
	"github.com/glotchimo/armada/internal/ratelimit"
	"github.com/glotchimo/armada/internal/response"
	"github.com/glotchimo/armada/internal/shards"
	"github.com/glotchimo/armada/internal/utils"
)

// Options configures one shard worker.
type Options struct {
	Token      string
	Intents    int
	ShardID    int
	ShardCount int
	RPCPort    int

	Commands  []handlers.Command
	Buttons   []handlers.Button
	Reactions []handlers.Reaction
	Triggers  []handlers.Trigger

	CommandLimiter  *ratelimit.Limiter
	ButtonLimiter   *ratelimit.Limiter
	ReactionLimiter *ratelimit.Limiter
	TriggerLimiter  *ratelimit.Limiter

	// RateLimitLogMin suppresses REST rate limit logs for waits shorter
	// than this.
	RateLimitLogMin time.Duration
}

// Bot is one shard worker: a gateway session plus its dispatch pipelines.
type Bot struct {
	opts Options
	log  *slog.Logger

	session *dg.Session
	rpc     *shards.RPCServer

	commands  *dispatch.CommandPipeline
	buttons   *dispatch.ButtonPipeline
	reactions *dispatch.ReactionPipeline
	messages  *dispatch.MessagePipeline

	ready   atomic.Bool
	readyAt time.Time
}

func New(opts Options, log *slog.Logger) (*Bot, error) {
	session, err := dg.New("Bot " + opts.Token)
	if err != nil {
		return nil, errutil.With(err)
	}

	session.Identify.Intents = dg.Intent(opts.Intents)
	if opts.ShardCount > 1 {
		session.ShardID = opts.ShardID
		session.ShardCount = opts.ShardCount
	}

	b := &Bot{
		opts:    opts,
		log:     log,
		session: session,
	}

	responder := response.NewSessionResponder(session, log)
	events := models.NewEventDataService()
	env := dispatch.SessionEnv(session, responder, events, log)

	b.commands = dispatch.NewCommandPipeline(env, opts.Commands, opts.CommandLimiter)
	b.buttons = dispatch.NewButtonPipeline(env, opts.Buttons, opts.ButtonLimiter)
	b.reactions = dispatch.NewReactionPipeline(env, opts.Reactions, opts.ReactionLimiter)
	triggers := dispatch.NewTriggerPipeline(env, opts.Triggers, opts.TriggerLimiter)
	b.messages = dispatch.NewMessagePipeline(env, triggers)

	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteraction)
	session.AddHandler(b.onMessage)
	session.AddHandler(b.onReaction)
	session.AddHandler(b.onGuildCreate)
	session.AddHandler(b.onGuildDelete)
	session.AddHandler(b.onRateLimit)

	b.rpc = shards.NewRPCServer(b, log, opts.RPCPort)
	return b, nil
}

// Start opens the gateway session and the worker RPC server.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return errutil.With(err)
	}
	if err := b.rpc.Start(); err != nil {
		b.session.Close()
		return errutil.With(err)
	}
	return nil
}

// Stop shuts the RPC server down and closes the session.
func (b *Bot) Stop(ctx context.Context) error {
	b.ready.Store(false)
	if err := b.rpc.Shutdown(ctx); err != nil {
		b.log.Error("rpc shutdown failed", "error", err)
	}
	return b.session.Close()
}

func (b *Bot) onReady(s *dg.Session, event *dg.Ready) {
	b.readyAt = time.Now()
	b.ready.Store(true)
	b.log.Info("shard ready",
		"shard_id", b.opts.ShardID,
		"shard_count", b.opts.ShardCount,
		"user", event.User.String(),
		"guilds", len(event.Guilds))
}

// onInteraction routes interactions to the command or button pipeline.
// Events arriving before the session is ready are dropped; the interaction
// would fail its response anyway.
func (b *Bot) onInteraction(s *dg.Session, event *dg.InteractionCreate) {
	if !b.ready.Load() {
		b.log.Debug("interaction before ready dropped", "interaction_id", event.ID)
		return
	}

	ctx := context.Background()
	switch event.Type {
	case dg.InteractionApplicationCommand, dg.InteractionApplicationCommandAutocomplete:
		b.commands.Process(ctx, event)
	case dg.InteractionMessageComponent:
		b.buttons.Process(ctx, event)
	}
}

func (b *Bot) onMessage(s *dg.Session, event *dg.MessageCreate) {
	if !b.ready.Load() {
		return
	}

	if err := b.messages.Process(context.Background(), event.Message); err != nil {
		b.log.Error("message processing failed",
			"error", err,
			"message_id", event.ID,
			"channel_id", event.ChannelID,
			"guild_id", event.GuildID)
	}
}

// onReaction resolves the partial message and user the gateway event
// carries before handing off to the reaction pipeline.
func (b *Bot) onReaction(s *dg.Session, event *dg.MessageReactionAdd) {
	if !b.ready.Load() {
		return
	}

	msg, err := utils.FillMessage(s, event.ChannelID, event.MessageID)
	if err != nil {
		b.log.Error("reaction message lookup failed", "error", err, "message_id", event.MessageID)
		return
	}
	reactor, err := utils.FillUser(s, event.UserID)
	if err != nil {
		b.log.Error("reaction user lookup failed", "error", err, "user_id", event.UserID)
		return
	}
	if msg == nil || reactor == nil {
		return
	}

	b.reactions.Process(context.Background(), event, msg, reactor)
}

// onGuildCreate fires for every guild during startup and for genuine joins
// afterwards; only the latter get a welcome.
func (b *Bot) onGuildCreate(s *dg.Session, event *dg.GuildCreate) {
	if !b.ready.Load() {
		return
	}

	b.log.Info("guild joined", "guild_id", event.ID, "guild_name", event.Name)

	if event.SystemChannelID == "" {
		return
	}
	locale := lang.Resolve(event.PreferredLocale)
	if _, err := s.ChannelMessageSend(event.SystemChannelID, lang.Get(locale, "display.welcome")); err != nil {
		if !utils.IsIgnorableAPIError(err) {
			b.log.Error("welcome message failed", "error", err, "guild_id", event.ID)
		}
	}
}

func (b *Bot) onGuildDelete(s *dg.Session, event *dg.GuildDelete) {
	if event.Unavailable {
		return
	}
	b.log.Info("guild left", "guild_id", event.ID)
}

func (b *Bot) onRateLimit(s *dg.Session, event *dg.RateLimit) {
	if event.RetryAfter < b.opts.RateLimitLogMin {
		return
	}
	b.log.Warn("rest rate limit hit", "url", event.URL, "retry_after", event.RetryAfter)
}

// SelfID is the bot's own user ID, empty before the session is ready.
func (b *Bot) SelfID() string {
	if b.session.State.User == nil {
		return ""
	}
	return b.session.State.User.ID
}

// The methods below implement the worker side of the fleet RPC.

func (b *Bot) ShardID() int {
	return b.opts.ShardID
}

func (b *Bot) Ready() bool {
	return b.ready.Load()
}

func (b *Bot) Uptime() time.Duration {
	if b.readyAt.IsZero() {
		return 0
	}
	return time.Since(b.readyAt)
}

func (b *Bot) GuildIDs() []string {
	guilds := b.session.State.Guilds
	ids := make([]string, 0, len(guilds))
	for _, g := range guilds {
		ids = append(ids, g.ID)
	}
	return ids
}

func (b *Bot) GuildCount() int {
	return len(b.session.State.Guilds)
}

func (b *Bot) SetPresence(activityType, name, url string) error {
	t, err := shards.ParseActivityType(activityType)
	if err != nil {
		return errutil.With(err)
	}

	err = b.session.UpdateStatusComplex(dg.UpdateStatusData{
		Activities: []*dg.Activity{{
			Type: t,
			Name: name,
			URL:  url,
		}},
	})
	if err != nil {
		return errutil.With(fmt.Errorf("presence update: %w", err))
	}
	return nil
}
