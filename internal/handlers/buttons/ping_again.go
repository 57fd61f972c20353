// Package buttons holds the bot's message component handlers.
package buttons

import (
	"context"

	"github.com/graxinc/errutil"

	"github.com/glotchimo/armada/internal/handlers"
	"github.com/glotchimo/armada/internal/handlers/commands"
	"github.com/glotchimo/armada/internal/response"
)

// PingAgain refreshes the latency line on a ping response in place.
type PingAgain struct{}

func NewPingAgain() *PingAgain {
	return &PingAgain{}
}

func (b *PingAgain) IDs() []string {
	return []string{commands.PingAgainID}
}

func (b *PingAgain) Defer() handlers.ButtonDefer {
	return handlers.ButtonDeferUpdate
}

func (b *PingAgain) RequireGuild() bool {
	return false
}

func (b *PingAgain) RequireEmbedAuthorTag() bool {
	return false
}

func (b *PingAgain) Execute(ctx context.Context, dep handlers.Dependencies) error {
	err := dep.Responder.Send(dep.Interaction, response.MessageOptions{
		Content:    commands.PingContent(dep.Session),
		Components: commands.PingComponents(),
		Update:     true,
	})
	if err != nil {
		return errutil.With(err)
	}
	return nil
}
