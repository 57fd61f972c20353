package dispatch

import (
	"context"
	"fmt"
	"runtime"

	dg "github.com/bwmarrin/discordgo"
	"github.com/graxinc/errutil"

	"github.com/glotchimo/armada/internal/handlers"
	"github.com/glotchimo/armada/internal/ratelimit"
)

// ReactionPipeline dispatches reaction-add events. Reactions cannot be
// deferred, so there is no defer step.
type ReactionPipeline struct {
	env       Env
	reactions []handlers.Reaction
	limiter   *ratelimit.Limiter
}

func NewReactionPipeline(env Env, reactions []handlers.Reaction, limiter *ratelimit.Limiter) *ReactionPipeline {
	return &ReactionPipeline{
		env:       env,
		reactions: reactions,
		limiter:   limiter,
	}
}

func (p *ReactionPipeline) Process(ctx context.Context, event *dg.MessageReactionAdd, msg *dg.Message, reactor *dg.User) {
	if reactor.ID == p.env.SelfID() || reactor.Bot {
		return
	}

	// Rate limited by the message author, not the reactor.
	if p.limiter.Take(msg.Author.ID) {
		return
	}

	reaction := p.findReaction(event.Emoji.Name)
	if reaction == nil {
		return
	}

	if reaction.RequireGuild() && msg.GuildID == "" {
		return
	}

	if reaction.RequireSentByClient() && msg.Author.ID != p.env.SelfID() {
		return
	}

	if reaction.RequireEmbedAuthorTag() && !embedAuthorIs(msg, reactor) {
		return
	}

	data := p.env.Events.Create(p.env.Guild(msg.GuildID))

	dep := handlers.Dependencies{
		Session:   p.env.Session,
		Responder: p.env.Responder,
		Logger:    p.env.Logger,
		Data:      data,
		Message:   msg,
		Reactor:   reactor,
		Reaction:  event,
	}

	if err := p.execute(ctx, reaction, dep); err != nil {
		p.env.Logger.Error("reaction error",
			"error", err,
			"emoji", event.Emoji.Name,
			"user_tag", reactor.String(),
			"user_id", reactor.ID,
			"message_id", msg.ID,
			"channel_id", msg.ChannelID,
			"guild_id", msg.GuildID,
		)
	}
}

func (p *ReactionPipeline) findReaction(emoji string) handlers.Reaction {
	for _, reaction := range p.reactions {
		if reaction.Emoji() == emoji {
			return reaction
		}
	}
	return nil
}

func (p *ReactionPipeline) execute(ctx context.Context, reaction handlers.Reaction, dep handlers.Dependencies) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			stack = stack[:runtime.Stack(stack, false)]
			err = errutil.With(fmt.Errorf("panic: %v\n%s", r, stack))
		}
	}()

	return reaction.Execute(ctx, dep)
}
