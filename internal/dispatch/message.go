package dispatch

import (
	"context"

	dg "github.com/bwmarrin/discordgo"
)

// MessagePipeline filters raw message-create events and feeds the survivors
// to the trigger pipeline.
type MessagePipeline struct {
	env      Env
	triggers *TriggerPipeline
}

func NewMessagePipeline(env Env, triggers *TriggerPipeline) *MessagePipeline {
	return &MessagePipeline{
		env:      env,
		triggers: triggers,
	}
}

func (p *MessagePipeline) Process(ctx context.Context, msg *dg.Message) error {
	if msg.Author == nil || msg.Author.ID == p.env.SelfID() {
		return nil
	}

	// System messages (joins, boosts, pins) never activate triggers.
	if msg.Type != dg.MessageTypeDefault && msg.Type != dg.MessageTypeReply {
		return nil
	}

	return p.triggers.Process(ctx, msg)
}
