package commands

import (
	"context"
	"fmt"
	"time"

	dg "github.com/bwmarrin/discordgo"
	"github.com/graxinc/errutil"

	"github.com/glotchimo/armada/internal/handlers"
	"github.com/glotchimo/armada/internal/lang"
	"github.com/glotchimo/armada/internal/ratelimit"
	"github.com/glotchimo/armada/internal/response"
	"github.com/glotchimo/armada/internal/utils"
)

type Info struct {
	started  time.Time
	cooldown *ratelimit.Limiter
}

func NewInfo(started time.Time) *Info {
	return &Info{
		started:  started,
		cooldown: ratelimit.New(5, 30*time.Second),
	}
}

func (c *Info) Names() []string {
	return []string{"info"}
}

func (c *Info) Defer() handlers.CommandDefer {
	return handlers.CommandDeferPublic
}

func (c *Info) Cooldown() *ratelimit.Limiter {
	return c.cooldown
}

func (c *Info) RequireBotPerms() int64 {
	return dg.PermissionEmbedLinks
}

func (c *Info) Execute(ctx context.Context, dep handlers.Dependencies) error {
	commit := utils.GetCommit()
	if commit == "" {
		commit = lang.Get(dep.Data.Lang, "other.na")
	}

	embed := &dg.MessageEmbed{
		Title: dep.Session.State.User.Username,
		Color: 0x5865F2,
		Fields: []*dg.MessageEmbedField{
			{
				Name:   "Servers",
				Value:  fmt.Sprintf("%d", len(dep.Session.State.Guilds)),
				Inline: true,
			},
			{
				Name:   "Shard",
				Value:  fmt.Sprintf("%d/%d", dep.Session.ShardID, dep.Session.ShardCount),
				Inline: true,
			},
			{
				Name:   "Uptime",
				Value:  utils.FormatDuration(time.Since(c.started)),
				Inline: true,
			},
			{
				Name:   "Started",
				Value:  utils.FormatTimestamp(c.started, utils.TimestampRelative),
				Inline: true,
			},
			{
				Name:   "Commit",
				Value:  commit,
				Inline: true,
			},
		},
	}

	err := dep.Responder.Send(dep.Interaction, response.MessageOptions{
		Embeds: []*dg.MessageEmbed{embed},
	})
	if err != nil {
		return errutil.With(err)
	}
	return nil
}
