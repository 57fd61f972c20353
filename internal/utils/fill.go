package utils

import (
	dg "github.com/bwmarrin/discordgo"
	"github.com/graxinc/errutil"
)

// FillMessage returns the full message for a reaction event, preferring the
// state cache over a REST fetch. A nil message with a nil error means the
// fetch failed with an ignorable API error and the event should be dropped.
func FillMessage(s *dg.Session, channelID, messageID string) (*dg.Message, error) {
	if msg, err := s.State.Message(channelID, messageID); err == nil {
		return msg, nil
	}

	msg, err := s.ChannelMessage(channelID, messageID)
	if err != nil {
		if IsIgnorableAPIError(err) {
			return nil, nil
		}
		return nil, errutil.With(err)
	}
	return msg, nil
}

// FillUser resolves a user by ID, with the same ignorable-error contract as
// FillMessage.
func FillUser(s *dg.Session, userID string) (*dg.User, error) {
	user, err := s.User(userID)
	if err != nil {
		if IsIgnorableAPIError(err) {
			return nil, nil
		}
		return nil, errutil.With(err)
	}
	return user, nil
}
