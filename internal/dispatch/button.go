package dispatch

import (
	"context"
	"fmt"
	"runtime"
	"slices"

	dg "github.com/bwmarrin/discordgo"
	"github.com/graxinc/errutil"

	"github.com/glotchimo/armada/internal/handlers"
	"github.com/glotchimo/armada/internal/ratelimit"
	"github.com/glotchimo/armada/internal/utils"
)

// ButtonPipeline dispatches message component interactions to registered
// buttons.
type ButtonPipeline struct {
	env     Env
	buttons []handlers.Button
	limiter *ratelimit.Limiter
}

func NewButtonPipeline(env Env, buttons []handlers.Button, limiter *ratelimit.Limiter) *ButtonPipeline {
	return &ButtonPipeline{
		env:     env,
		buttons: buttons,
		limiter: limiter,
	}
}

func (p *ButtonPipeline) Process(ctx context.Context, i *dg.InteractionCreate) {
	user := utils.InteractionUser(i.Interaction)
	if user == nil || user.ID == p.env.SelfID() || user.Bot {
		return
	}

	if p.limiter.Take(user.ID) {
		return
	}

	customID := i.MessageComponentData().CustomID
	button := p.findButton(customID)
	if button == nil {
		return
	}

	if button.RequireGuild() && i.GuildID == "" {
		return
	}

	// Ownership check: the button only responds to the user whose tag is on
	// the message's first embed.
	if button.RequireEmbedAuthorTag() && !embedAuthorIs(i.Message, user) {
		return
	}

	switch button.Defer() {
	case handlers.ButtonDeferReply:
		if err := p.env.Responder.Defer(i, false); err != nil {
			return
		}
	case handlers.ButtonDeferUpdate:
		if err := p.env.Responder.DeferUpdate(i); err != nil {
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
	}

	if err := p.execute(ctx, button, dep); err != nil {
		code := utils.GenerateID()

		_ = p.env.Responder.Send(i, errorEmbed(data, code))

		p.env.Logger.Error("button error",
			"error", err,
			"code", code,
			"interaction_id", i.ID,
			"button", customID,
			"user_tag", user.String(),
			"user_id", user.ID,
			"channel_id", i.ChannelID,
			"guild_id", i.GuildID,
		)
	}
}

func (p *ButtonPipeline) findButton(customID string) handlers.Button {
	for _, button := range p.buttons {
		if slices.Contains(button.IDs(), customID) {
			return button
		}
	}
	return nil
}

func (p *ButtonPipeline) execute(ctx context.Context, button handlers.Button, dep handlers.Dependencies) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			stack = stack[:runtime.Stack(stack, false)]
			err = errutil.With(fmt.Errorf("panic: %v\n%s", r, stack))
		}
	}()

	return button.Execute(ctx, dep)
}

func embedAuthorIs(msg *dg.Message, user *dg.User) bool {
	if msg == nil || len(msg.Embeds) == 0 {
		return false
	}
	author := msg.Embeds[0].Author
	return author != nil && author.Name == user.String()
}
