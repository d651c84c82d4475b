package ports

import (
	"context"
	"time"

	"roomchat/internal/core/domain"
)

// TokenVerifier authenticates an access token and returns its subject.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

type RoomRegistry interface {
	Connect(ctx context.Context, room domain.RoomName, username string, transport domain.Transport) (*domain.Connection, []string)
	Disconnect(ctx context.Context, room domain.RoomName, id domain.ConnectionID) bool
	StoreMessage(room domain.RoomName, msg *domain.Message)
	GetMessage(room domain.RoomName, id domain.MessageID) (*domain.Message, bool)
	IsUserPresent(room domain.RoomName, username string) bool
	AddReaction(room domain.RoomName, id domain.MessageID, emoji, username string) bool
	RemoveReaction(room domain.RoomName, id domain.MessageID, emoji, username string) bool
	Broadcast(ctx context.Context, room domain.RoomName, event domain.Event)

	PostMessage(ctx context.Context, msg *domain.Message) error
	React(ctx context.Context, room domain.RoomName, id domain.MessageID, emoji, username string, add bool) ([]string, error)
	Online(room domain.RoomName) []string
	Stats() RegistryStats
}

type RegistryStats struct {
	Rooms       int
	Connections int
}

// MetricsRecorder receives registry and view-once lifecycle signals.
type MetricsRecorder interface {
	RoomOpened(room domain.RoomName)
	RoomClosed(room domain.RoomName)
	ConnectionJoined(room domain.RoomName)
	ConnectionLeft(room domain.RoomName)
	EventBroadcast(eventType domain.EventType, recipients int, duration time.Duration)
	SendFailed(room domain.RoomName)
	FrameRejected(reason string)
	AdmissionRejected(reason string)
	ViewOnceIssued()
	ViewOnceRedeemed(ok bool)
}
