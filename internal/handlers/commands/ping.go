// Package commands holds the bot's slash command handlers.
package commands

import (
	"context"
	"fmt"
	"time"

	dg "github.com/bwmarrin/discordgo"
	"github.com/graxinc/errutil"

	"github.com/glotchimo/armada/internal/handlers"
	"github.com/glotchimo/armada/internal/ratelimit"
	"github.com/glotchimo/armada/internal/response"
)

// PingAgainID is the custom ID of the re-ping button attached to ping
// responses.
const PingAgainID = "ping_again"

type Ping struct {
	cooldown *ratelimit.Limiter
}

func NewPing() *Ping {
	return &Ping{cooldown: ratelimit.New(2, 10*time.Second)}
}

func (c *Ping) Names() []string {
	return []string{"ping"}
}

func (c *Ping) Defer() handlers.CommandDefer {
	return handlers.CommandDeferHidden
}

func (c *Ping) Cooldown() *ratelimit.Limiter {
	return c.cooldown
}

func (c *Ping) RequireBotPerms() int64 {
	return 0
}

func (c *Ping) Execute(ctx context.Context, dep handlers.Dependencies) error {
	err := dep.Responder.Send(dep.Interaction, response.MessageOptions{
		Content:    PingContent(dep.Session),
		Components: PingComponents(),
		Ephemeral:  true,
	})
	if err != nil {
		return errutil.With(err)
	}
	return nil
}

// PingContent formats the latency line, shared with the re-ping button.
func PingContent(s *dg.Session) string {
	return fmt.Sprintf("Pong! Gateway latency is %dms.", s.HeartbeatLatency().Milliseconds())
}

// PingComponents builds the action row with the re-ping button.
func PingComponents() []dg.MessageComponent {
	return []dg.MessageComponent{
		dg.ActionsRow{
			Components: []dg.MessageComponent{
				dg.Button{
					Label:    "Ping again",
					Style:    dg.SecondaryButton,
					CustomID: PingAgainID,
				},
			},
		},
	}
}
