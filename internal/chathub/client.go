package chathub

import "fadechat/backend/internal/models"

// Client is the interface for one live connection of any transport type.
// It abstracts the underlying communication mechanism, allowing the hub to
// manage different client types uniformly.
type Client interface {
	// GetConnectionID returns the ephemeral transport-level identifier,
	// assigned at handshake and never reused.
	GetConnectionID() string

	// GetUserID returns the authenticated user id for this connection, or ""
	// when the connection carries no resolved identity.
	GetUserID() string

	// GetSendChannel returns the channel the fanout dispatcher writes events
	// into for this specific client. It is a send-only channel.
	GetSendChannel() chan<- models.Event

	// Run starts the client's read and write pumps, which handle incoming and
	// outgoing traffic.
	Run()

	// Close gracefully shuts down the client's connection and associated
	// channels.
	Close()
}
