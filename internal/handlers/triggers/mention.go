// Package triggers holds the bot's message content handlers.
package triggers

import (
	"context"
	"strings"

	dg "github.com/bwmarrin/discordgo"
	"github.com/graxinc/errutil"

	"github.com/glotchimo/armada/internal/handlers"
	"github.com/glotchimo/armada/internal/utils"
)

// Mention answers messages that are nothing but a mention of the bot with a
// pointer at the slash commands.
type Mention struct {
	selfID func() string
}

func NewMention(selfID func() string) *Mention {
	return &Mention{selfID: selfID}
}

func (t *Mention) RequireGuild() bool {
	return false
}

func (t *Mention) Triggered(msg *dg.Message) bool {
	content := strings.TrimSpace(msg.Content)
	return content == utils.FormatUserMention(t.selfID())
}

func (t *Mention) Execute(ctx context.Context, dep handlers.Dependencies) error {
	_, err := dep.Session.ChannelMessageSendReply(
		dep.Message.ChannelID,
		"Hi! I work through slash commands. Try `/ping` to get started.",
		dep.Message.Reference(),
	)
	if err != nil {
		return errutil.With(err)
	}
	return nil
}
