package domain

import "time"

type EventType string

const (
	EventJoin           EventType = "join"
	EventLeave          EventType = "leave"
	EventMessage        EventType = "message"
	EventReactionUpdate EventType = "reaction_update"
)

// Event is anything the registry fans out to a room.
type Event interface {
	EventType() EventType
}

type PresenceEvent struct {
	Type   EventType `json:"type"`
	User   string    `json:"user"`
	Online []string  `json:"online"`
}

func (e PresenceEvent) EventType() EventType { return e.Type }

func NewJoinEvent(user string, online []string) PresenceEvent {
	return PresenceEvent{Type: EventJoin, User: user, Online: nonNil(online)}
}

func NewLeaveEvent(user string, online []string) PresenceEvent {
	return PresenceEvent{Type: EventLeave, User: user, Online: nonNil(online)}
}

type MessageEvent struct {
	Type      EventType `json:"type"`
	User      string    `json:"user"`
	Content   string    `json:"content"`
	MessageID MessageID `json:"message_id"`
	Timestamp time.Time `json:"timestamp"`
	ViewOnce  bool      `json:"view_once,omitempty"`
}

func (e MessageEvent) EventType() EventType { return e.Type }

func NewMessageEvent(m *Message) MessageEvent {
	return MessageEvent{
		Type:      EventMessage,
		User:      m.Author,
		Content:   m.Content,
		MessageID: m.ID,
		Timestamp: m.CreatedAt,
		ViewOnce:  m.ViewOnce,
	}
}

type ReactionUpdateEvent struct {
	Type      EventType `json:"type"`
	MessageID MessageID `json:"message_id"`
	Emoji     string    `json:"emoji"`
	Users     []string  `json:"users"`
}

func (e ReactionUpdateEvent) EventType() EventType { return e.Type }

// NewReactionUpdateEvent always carries a users list, empty when the last
// reaction for emoji was removed.
func NewReactionUpdateEvent(id MessageID, emoji string, users []string) ReactionUpdateEvent {
	return ReactionUpdateEvent{Type: EventReactionUpdate, MessageID: id, Emoji: emoji, Users: nonNil(users)}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
