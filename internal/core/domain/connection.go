package domain

import "context"

// Transport is the send side of one live client channel.
type Transport interface {
	// Send queues payload for delivery, giving up when ctx is done.
	Send(ctx context.Context, payload []byte) error
	// Close terminates the channel with a close code and reason.
	Close(code int, reason string) error
}

// Connection is one admitted client bound to a single room.
type Connection struct {
	ID        ConnectionID
	Room      RoomName
	Username  string
	Transport Transport
}
