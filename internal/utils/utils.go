package utils

import (
	"bytes"
	"os/exec"
	"strings"

	dg "github.com/bwmarrin/discordgo"
	"github.com/rs/xid"
)

func GenerateID() string {
	return xid.New().String()
}

func MapOptions(opts []*dg.ApplicationCommandInteractionDataOption) map[string]*dg.ApplicationCommandInteractionDataOption {
	om := make(map[string]*dg.ApplicationCommandInteractionDataOption, len(opts))
	for _, opt := range opts {
		om[opt.Name] = opt
	}
	return om
}

// InteractionUser returns the acting user of an interaction: the member's
// user in a guild, the top-level user in a DM.
func InteractionUser(i *dg.Interaction) *dg.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

func GetCommit() string {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return ""
	}

	return strings.TrimSpace(out.String())
}
