// Package reactions holds the bot's reaction-add handlers.
package reactions

import (
	"context"

	"github.com/graxinc/errutil"

	"github.com/glotchimo/armada/internal/handlers"
	"github.com/glotchimo/armada/internal/utils"
)

const waveEmoji = "👋"

// Wave waves back at anyone who waves at a message.
type Wave struct{}

func NewWave() *Wave {
	return &Wave{}
}

func (r *Wave) Emoji() string {
	return waveEmoji
}

func (r *Wave) RequireGuild() bool {
	return false
}

func (r *Wave) RequireSentByClient() bool {
	return false
}

func (r *Wave) RequireEmbedAuthorTag() bool {
	return false
}

func (r *Wave) Execute(ctx context.Context, dep handlers.Dependencies) error {
	err := dep.Session.MessageReactionAdd(dep.Message.ChannelID, dep.Message.ID, waveEmoji)
	if err != nil {
		if utils.IsIgnorableAPIError(err) {
			return nil
		}
		return errutil.With(err)
	}
	return nil
}
