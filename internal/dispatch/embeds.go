package dispatch

import (
	"strings"
	"time"

	dg "github.com/bwmarrin/discordgo"

	"github.com/glotchimo/armada/internal/lang"
	"github.com/glotchimo/armada/internal/models"
	"github.com/glotchimo/armada/internal/response"
	"github.com/glotchimo/armada/internal/utils"
)

func cooldownEmbed(data *models.EventData, amount int, interval time.Duration) response.MessageOptions {
	return response.MessageOptions{
		Embeds: []*dg.MessageEmbed{{
			Title:       lang.Get(data.Lang, "title.cooldownHit"),
			Description: lang.Getf(data.Lang, "validation.cooldownHit", amount, utils.FormatDuration(interval)),
			Color:       0xFFA500,
		}},
	}
}

func missingPermsEmbed(data *models.EventData, missing []string) response.MessageOptions {
	names := make([]string, len(missing))
	for i, name := range missing {
		names[i] = "**" + name + "**"
	}

	return response.MessageOptions{
		Embeds: []*dg.MessageEmbed{{
			Title:       lang.Get(data.Lang, "title.missingPerms"),
			Description: lang.Getf(data.Lang, "validation.missingPerms", strings.Join(names, ", ")),
			Color:       0xFFA500,
		}},
	}
}

func errorEmbed(data *models.EventData, code string) response.MessageOptions {
	return response.MessageOptions{
		Embeds: []*dg.MessageEmbed{{
			Title:       lang.Get(data.Lang, "title.error"),
			Description: lang.Getf(data.Lang, "error.command", code),
			Color:       0xFF0000,
		}},
	}
}
