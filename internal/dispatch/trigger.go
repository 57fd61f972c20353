package dispatch

import (
	"context"

	dg "github.com/bwmarrin/discordgo"

	"github.com/glotchimo/armada/internal/handlers"
	"github.com/glotchimo/armada/internal/ratelimit"
)

// TriggerPipeline runs every trigger a message activates. Triggers execute
// in registration order and are deliberately not isolated from each other: a
// failing trigger aborts the rest of the loop and the error surfaces to the
// message pipeline's caller.
type TriggerPipeline struct {
	env      Env
	triggers []handlers.Trigger
	limiter  *ratelimit.Limiter
}

func NewTriggerPipeline(env Env, triggers []handlers.Trigger, limiter *ratelimit.Limiter) *TriggerPipeline {
	return &TriggerPipeline{
		env:      env,
		triggers: triggers,
		limiter:  limiter,
	}
}

func (p *TriggerPipeline) Process(ctx context.Context, msg *dg.Message) error {
	if p.limiter.Take(msg.Author.ID) {
		return nil
	}

	var activated []handlers.Trigger
	for _, trigger := range p.triggers {
		if trigger.RequireGuild() && msg.GuildID == "" {
			continue
		}
		if !trigger.Triggered(msg) {
			continue
		}
		activated = append(activated, trigger)
	}

	if len(activated) == 0 {
		return nil
	}

	data := p.env.Events.Create(p.env.Guild(msg.GuildID))

	dep := handlers.Dependencies{
		Session:   p.env.Session,
		Responder: p.env.Responder,
		Logger:    p.env.Logger,
		Data:      data,
		Message:   msg,
	}

	for _, trigger := range activated {
		if err := trigger.Execute(ctx, dep); err != nil {
			return err
		}
	}

	return nil
}
