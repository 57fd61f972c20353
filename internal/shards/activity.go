package shards

import (
	"fmt"

	dg "github.com/bwmarrin/discordgo"
)

var activityTypes = map[string]dg.ActivityType{
	"PLAYING":   dg.ActivityTypeGame,
	"STREAMING": dg.ActivityTypeStreaming,
	"LISTENING": dg.ActivityTypeListening,
	"WATCHING":  dg.ActivityTypeWatching,
	"COMPETING": dg.ActivityTypeCompeting,
}

// ParseActivityType maps a presence activity name to its gateway type.
func ParseActivityType(name string) (dg.ActivityType, error) {
	t, ok := activityTypes[name]
	if !ok {
		return 0, fmt.Errorf("unknown activity type: %q", name)
	}
	return t, nil
}
