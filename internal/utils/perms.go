package utils

import (
	"fmt"

	dg "github.com/bwmarrin/discordgo"
)

var permissionNames = map[int64]string{
	dg.PermissionViewChannel:           "View Channels",
	dg.PermissionSendMessages:          "Send Messages",
	dg.PermissionSendMessagesInThreads: "Send Messages in Threads",
	dg.PermissionEmbedLinks:            "Embed Links",
	dg.PermissionAttachFiles:           "Attach Files",
	dg.PermissionAddReactions:          "Add Reactions",
	dg.PermissionUseExternalEmojis:     "Use External Emoji",
	dg.PermissionReadMessageHistory:    "Read Message History",
	dg.PermissionManageMessages:        "Manage Messages",
	dg.PermissionManageThreads:         "Manage Threads",
	dg.PermissionCreatePublicThreads:   "Create Public Threads",
	dg.PermissionMentionEveryone:       "Mention @everyone, @here, and All Roles",
	dg.PermissionManageRoles:           "Manage Roles",
	dg.PermissionManageChannels:        "Manage Channels",
	dg.PermissionBanMembers:            "Ban Members",
	dg.PermissionKickMembers:           "Kick Members",
	dg.PermissionModerateMembers:       "Timeout Members",
	dg.PermissionVoiceConnect:          "Connect",
	dg.PermissionVoiceSpeak:            "Speak",
}

// PermissionName returns the display name for a single permission flag.
func PermissionName(perm int64) string {
	if name, ok := permissionNames[perm]; ok {
		return name
	}
	return fmt.Sprintf("Unknown Permission (0x%x)", perm)
}

// MissingPermissions expands the flags in required that held does not
// include into display names.
func MissingPermissions(required, held int64) []string {
	var missing []string
	for i := 0; i < 63; i++ {
		perm := int64(1) << i
		if required&perm != 0 && held&perm == 0 {
			missing = append(missing, PermissionName(perm))
		}
	}
	return missing
}
