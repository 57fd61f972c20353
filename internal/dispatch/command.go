package dispatch

import (
	"context"
	"fmt"
	"runtime"

	dg "github.com/bwmarrin/discordgo"
	"github.com/graxinc/errutil"

	"github.com/glotchimo/armada/internal/handlers"
	"github.com/glotchimo/armada/internal/ratelimit"
	"github.com/glotchimo/armada/internal/utils"
)

// CommandPipeline dispatches command and autocomplete interactions.
type CommandPipeline struct {
	env      Env
	commands []handlers.Command
	limiter  *ratelimit.Limiter
}

func NewCommandPipeline(env Env, commands []handlers.Command, limiter *ratelimit.Limiter) *CommandPipeline {
	return &CommandPipeline{
		env:      env,
		commands: commands,
		limiter:  limiter,
	}
}

func (p *CommandPipeline) Process(ctx context.Context, i *dg.InteractionCreate) {
	user := utils.InteractionUser(i.Interaction)
	if user == nil || user.ID == p.env.SelfID() || user.Bot {
		return
	}

	parts := commandParts(i)
	name := commandName(parts)

	cmd := FindCommand(p.commands, parts)
	if cmd == nil {
		p.env.Logger.Error("command not found", "interaction_id", i.ID, "command", name)
		return
	}

	if i.Type == dg.InteractionApplicationCommandAutocomplete {
		p.autocomplete(ctx, i, cmd, name, user)
		return
	}

	if p.limiter.Take(user.ID) {
		return
	}

	// Anything after a successful defer must answer the interaction; a
	// failed defer means the interaction is already gone, so bail silently.
	switch cmd.Defer() {
	case handlers.CommandDeferPublic:
		if err := p.env.Responder.Defer(i, false); err != nil {
			return
		}
	case handlers.CommandDeferHidden:
		if err := p.env.Responder.Defer(i, true); err != nil {
			return
		}
	}

	data := p.env.Events.Create(p.env.Guild(i.GuildID))

	dep := handlers.Dependencies{
		Session:     p.env.Session,
		Responder:   p.env.Responder,
		Logger:      p.env.Logger,
		Data:        data,
		Interaction: i,
		Options:     utils.MapOptions(leafOptions(i)),
	}

	err := func() error {
		ok, err := p.runChecks(cmd, i, user, dep)
		if err != nil || !ok {
			return err
		}
		return p.execute(ctx, cmd, dep)
	}()
	if err == nil {
		return
	}

	code := utils.GenerateID()

	// Best effort; the interaction may already be unanswerable.
	_ = p.env.Responder.Send(i, errorEmbed(data, code))

	p.env.Logger.Error("command error",
		"error", err,
		"code", code,
		"interaction_id", i.ID,
		"command", utils.FormatInteraction(p.env.Session, i),
		"user_tag", user.String(),
		"user_id", user.ID,
		"channel_id", i.ChannelID,
		"guild_id", i.GuildID,
	)
}

func (p *CommandPipeline) autocomplete(ctx context.Context, i *dg.InteractionCreate, cmd handlers.Command, name string, user *dg.User) {
	ac, ok := cmd.(handlers.Autocompleter)
	if !ok {
		p.env.Logger.Error("autocomplete not implemented", "interaction_id", i.ID, "command", name)
		return
	}

	focused := focusedOption(i.ApplicationCommandData().Options)
	if focused == nil {
		return
	}

	dep := handlers.Dependencies{
		Session:     p.env.Session,
		Responder:   p.env.Responder,
		Logger:      p.env.Logger,
		Interaction: i,
		Options:     utils.MapOptions(leafOptions(i)),
	}

	err := func() error {
		choices, err := ac.Autocomplete(ctx, dep, focused)
		if err != nil {
			return err
		}
		if len(choices) > MaxAutocompleteChoices {
			choices = choices[:MaxAutocompleteChoices]
		}
		return p.env.Responder.SendChoices(i, choices)
	}()
	if err != nil {
		p.env.Logger.Error("autocomplete error",
			"error", err,
			"interaction_id", i.ID,
			"command", name,
			"option", focused.Name,
			"user_tag", user.String(),
			"user_id", user.ID,
			"channel_id", i.ChannelID,
			"guild_id", i.GuildID,
		)
	}
}

// runChecks enforces the command's cooldown and bot-permission guards, in
// that order, answering with a localized embed on the first failure.
func (p *CommandPipeline) runChecks(cmd handlers.Command, i *dg.InteractionCreate, user *dg.User, dep handlers.Dependencies) (bool, error) {
	if cd := cmd.Cooldown(); cd != nil {
		if cd.Take(user.ID) {
			if err := p.env.Responder.Send(i, cooldownEmbed(dep.Data, cd.Amount(), cd.Interval())); err != nil {
				return false, errutil.With(err)
			}
			return false, nil
		}
	}

	if required := cmd.RequireBotPerms(); required != 0 && i.ChannelID != "" {
		held, err := p.env.BotPerms(i.ChannelID)
		if err != nil {
			return false, errutil.With(err)
		}
		if missing := utils.MissingPermissions(required, held); len(missing) > 0 {
			if err := p.env.Responder.Send(i, missingPermsEmbed(dep.Data, missing)); err != nil {
				return false, errutil.With(err)
			}
			return false, nil
		}
	}

	return true, nil
}

func (p *CommandPipeline) execute(ctx context.Context, cmd handlers.Command, dep handlers.Dependencies) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			stack = stack[:runtime.Stack(stack, false)]
			err = errutil.With(fmt.Errorf("panic: %v\n%s", r, stack))
		}
	}()

	return cmd.Execute(ctx, dep)
}
