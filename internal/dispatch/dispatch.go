// Package dispatch contains the per-event-kind pipelines that take raw
// gateway events through filtering, rate limiting, handler resolution,
// guard checks, and execution, isolating handler failures from the event
// loop.
package dispatch

import (
	"log/slog"
	"strings"

	dg "github.com/bwmarrin/discordgo"

	"github.com/glotchimo/armada/internal/handlers"
	"github.com/glotchimo/armada/internal/models"
)

// MaxAutocompleteChoices is the most choices Discord accepts in one
// autocomplete response.
const MaxAutocompleteChoices = 25

// Env holds the dependencies shared by all pipelines. The function fields
// front session state so pipelines can be exercised without a live gateway.
type Env struct {
	Session   *dg.Session
	Responder handlers.Responder
	Events    *models.EventDataService
	Logger    *slog.Logger

	// SelfID returns the bot's own user ID, empty before the session is
	// ready.
	SelfID func() string
	// BotPerms returns the bot's permission set in a channel.
	BotPerms func(channelID string) (int64, error)
	// Guild returns the cached guild, nil when unknown or in DMs.
	Guild func(guildID string) *dg.Guild
}

// SessionEnv builds an Env backed by a live session's state.
func SessionEnv(s *dg.Session, responder handlers.Responder, events *models.EventDataService, log *slog.Logger) Env {
	return Env{
		Session:   s,
		Responder: responder,
		Events:    events,
		Logger:    log,
		SelfID: func() string {
			if s.State.User == nil {
				return ""
			}
			return s.State.User.ID
		},
		BotPerms: func(channelID string) (int64, error) {
			return s.State.UserChannelPermissions(s.State.User.ID, channelID)
		},
		Guild: func(guildID string) *dg.Guild {
			if guildID == "" {
				return nil
			}
			g, err := s.State.Guild(guildID)
			if err != nil {
				return nil
			}
			return g
		},
	}
}

// FindCommand resolves a command path against the registered commands by
// progressively filtering on each path segment. When filtering empties the
// candidate set, the closest full-length match seen so far is returned, so a
// base command still resolves when no deeper subcommand matches.
func FindCommand(commands []handlers.Command, parts []string) handlers.Command {
	found := make([]handlers.Command, len(commands))
	copy(found, commands)

	var closest handlers.Command
	for index, part := range parts {
		var next []handlers.Command
		for _, cmd := range found {
			names := cmd.Names()
			if index < len(names) && names[index] == part {
				next = append(next, cmd)
			}
		}
		found = next

		switch len(found) {
		case 0:
			return closest
		case 1:
			return found[0]
		}

		for _, cmd := range found {
			if len(cmd.Names()) == index+1 {
				closest = cmd
				break
			}
		}
	}
	return closest
}

// commandParts extracts the full command path (name, subcommand group,
// subcommand) from an interaction.
func commandParts(i *dg.InteractionCreate) []string {
	data := i.ApplicationCommandData()
	parts := []string{data.Name}

	opts := data.Options
	if len(opts) == 1 && opts[0].Type == dg.ApplicationCommandOptionSubCommandGroup {
		parts = append(parts, opts[0].Name)
		opts = opts[0].Options
	}
	if len(opts) == 1 && opts[0].Type == dg.ApplicationCommandOptionSubCommand {
		parts = append(parts, opts[0].Name)
	}

	return parts
}

// leafOptions returns the innermost option list, skipping past subcommand
// wrappers.
func leafOptions(i *dg.InteractionCreate) []*dg.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	if len(opts) == 1 && opts[0].Type == dg.ApplicationCommandOptionSubCommandGroup {
		opts = opts[0].Options
	}
	if len(opts) == 1 && opts[0].Type == dg.ApplicationCommandOptionSubCommand {
		opts = opts[0].Options
	}
	return opts
}

func focusedOption(opts []*dg.ApplicationCommandInteractionDataOption) *dg.ApplicationCommandInteractionDataOption {
	for _, opt := range opts {
		if opt.Focused {
			return opt
		}
		if sub := focusedOption(opt.Options); sub != nil {
			return sub
		}
	}
	return nil
}

func commandName(parts []string) string {
	return strings.Join(parts, " ")
}
