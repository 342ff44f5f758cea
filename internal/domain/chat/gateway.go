package chat

import "errors"

// ErrChannelNotFound reports a destination channel the gateway cannot
// resolve. The delivery loop treats it the same as a send failure.
var ErrChannelNotFound = errors.New("chat channel not found")

// Gateway is the narrow surface of the chat platform the core depends on.
// This decouples the scheduling and logging logic from the bot library.
type Gateway interface {
	// ResolveChannel checks that the channel exists and is reachable,
	// returning ErrChannelNotFound (possibly wrapped) when it is not.
	ResolveChannel(channelID int64) error
	// Send delivers a plain text message to the channel.
	Send(channelID int64, text string) error
}
