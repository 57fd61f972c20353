package utils

import (
	"errors"

	dg "github.com/bwmarrin/discordgo"
)

// 160006 is "maximum number of active threads reached", which discordgo does
// not name.
const errCodeMaxActiveThreads = 160006

// ignoredErrorCodes enumerates the Discord API errors that indicate stale or
// inaccessible entities rather than real failures. Calls hitting these are
// treated as no-ops.
var ignoredErrorCodes = map[int]bool{
	dg.ErrCodeUnknownChannel:               true,
	dg.ErrCodeUnknownGuild:                 true,
	dg.ErrCodeUnknownMessage:               true,
	dg.ErrCodeUnknownUser:                  true,
	dg.ErrCodeUnknownInteraction:           true,
	dg.ErrCodeCannotSendMessagesToThisUser: true,
	dg.ErrCodeMissingAccess:                true,
	errCodeMaxActiveThreads:                true,
}

// IsIgnorableAPIError reports whether err is a Discord REST error on the
// ignore allow-list.
func IsIgnorableAPIError(err error) bool {
	var restErr *dg.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	return restErr.Message != nil && ignoredErrorCodes[restErr.Message.Code]
}
