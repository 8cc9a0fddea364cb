package engine

import (
	"context"

	"shopmate/log"
)

// isDuplicate reports whether this channel message id has already been
// handled. The gate fails open: when the store cannot answer, the message
// is treated as new, because a duplicate reply is a better failure mode
// than a dropped customer message.
func (e *Engine) isDuplicate(ctx context.Context, channelMessageID string) bool {
	if channelMessageID == "" {
		return false
	}
	seen, err := e.store.HasChannelMessageID(ctx, channelMessageID)
	if err != nil {
		log.Log.Warnf("[Engine] Dedup check failed, treating message as new | ChannelMessageID: %s | Error: %v", channelMessageID, err)
		return false
	}
	return seen
}
