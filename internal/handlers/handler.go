package handlers

import (
	"context"
	"log/slog"

	dg "github.com/bwmarrin/discordgo"

	"github.com/glotchimo/armada/internal/models"
	"github.com/glotchimo/armada/internal/ratelimit"
	"github.com/glotchimo/armada/internal/response"
)

// CommandDefer controls how a command acknowledges its interaction before
// executing.
type CommandDefer int

const (
	CommandDeferNone CommandDefer = iota
	CommandDeferPublic
	CommandDeferHidden
)

// ButtonDefer controls how a button acknowledges its interaction.
type ButtonDefer int

const (
	ButtonDeferNone ButtonDefer = iota
	ButtonDeferReply
	ButtonDeferUpdate
)

// Dependencies is handed to every handler execution. Fields that don't apply
// to a handler kind are left zero.
type Dependencies struct {
	Session   *dg.Session
	Responder Responder
	Logger    *slog.Logger
	Data      *models.EventData

	// Commands and buttons
	Interaction *dg.InteractionCreate
	Options     map[string]*dg.ApplicationCommandInteractionDataOption

	// Reactions and triggers
	Message  *dg.Message
	Reactor  *dg.User
	Reaction *dg.MessageReactionAdd
}

// Responder sends interaction responses. The concrete implementation wraps a
// gateway session; dispatch and handler tests substitute fakes.
type Responder interface {
	Defer(i *dg.InteractionCreate, ephemeral bool) error
	DeferUpdate(i *dg.InteractionCreate) error
	Send(i *dg.InteractionCreate, opts response.MessageOptions) error
	SendChoices(i *dg.InteractionCreate, choices []*dg.ApplicationCommandOptionChoice) error
}

// Command is a slash command. Names is the full command path: base name,
// then subcommand group and subcommand where present.
type Command interface {
	Names() []string
	Defer() CommandDefer
	Cooldown() *ratelimit.Limiter
	RequireBotPerms() int64
	Execute(ctx context.Context, dep Dependencies) error
}

// Autocompleter is an optional Command capability. Commands without it fail
// autocomplete interactions silently.
type Autocompleter interface {
	Autocomplete(ctx context.Context, dep Dependencies, focused *dg.ApplicationCommandInteractionDataOption) ([]*dg.ApplicationCommandOptionChoice, error)
}

// Button is a message component handler matched by custom ID.
type Button interface {
	IDs() []string
	Defer() ButtonDefer
	RequireGuild() bool
	RequireEmbedAuthorTag() bool
	Execute(ctx context.Context, dep Dependencies) error
}

// Reaction is matched by emoji name against reaction-add events.
type Reaction interface {
	Emoji() string
	RequireGuild() bool
	RequireSentByClient() bool
	RequireEmbedAuthorTag() bool
	Execute(ctx context.Context, dep Dependencies) error
}

// Trigger activates on arbitrary message content. A message may activate any
// number of triggers.
type Trigger interface {
	RequireGuild() bool
	Triggered(msg *dg.Message) bool
	Execute(ctx context.Context, dep Dependencies) error
}
