package models

import (
	dg "github.com/bwmarrin/discordgo"

	"github.com/glotchimo/armada/internal/lang"
)

// EventData carries per-event context through a dispatch. It is built fresh
// for each event and discarded when the handler returns.
type EventData struct {
	// Lang is the locale responses to this event are rendered in.
	Lang lang.Locale
	// GuildLang is the guild-wide locale. It is currently derived the same
	// way as Lang; both are kept so they can diverge (event audience vs
	// guild announcements) without touching call sites.
	GuildLang lang.Locale
}

// EventDataService derives EventData from the guild an event occurred in.
type EventDataService struct{}

func NewEventDataService() *EventDataService {
	return &EventDataService{}
}

func (s *EventDataService) Create(guild *dg.Guild) *EventData {
	preferred := ""
	if guild != nil {
		preferred = string(guild.PreferredLocale)
	}

	locale := lang.Resolve(preferred)
	return &EventData{
		Lang:      locale,
		GuildLang: locale,
	}
}
