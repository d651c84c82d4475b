package domain

import (
	"time"
)

type RoomName string
type ConnectionID string
type MessageID string

// Message is a chat message held in a room's history. Everything except
// Reactions is fixed once the message is stored.
type Message struct {
	ID        MessageID
	Room      RoomName
	Author    string
	Content   string
	CreatedAt time.Time
	ViewOnce  bool
	Reactions Reactions
}

// Clone returns a copy that shares no mutable state with m.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	c.Reactions = m.Reactions.Clone()
	return &c
}

// Reactions maps an emoji to the users who reacted with it, in the order they
// reacted. A user appears at most once per emoji and an emoji with no users is
// never kept.
type Reactions map[string][]string

// Add records username under emoji. It reports whether the state changed.
func (r Reactions) Add(emoji, username string) bool {
	for _, u := range r[emoji] {
		if u == username {
			return false
		}
	}
	r[emoji] = append(r[emoji], username)
	return true
}

// Remove drops username from emoji, deleting the emoji once nobody is left.
// It reports whether username was present.
func (r Reactions) Remove(emoji, username string) bool {
	users, ok := r[emoji]
	if !ok {
		return false
	}
	for i, u := range users {
		if u != username {
			continue
		}
		rest := make([]string, 0, len(users)-1)
		rest = append(rest, users[:i]...)
		rest = append(rest, users[i+1:]...)
		if len(rest) == 0 {
			delete(r, emoji)
		} else {
			r[emoji] = rest
		}
		return true
	}
	return false
}

// Users returns a copy of the users for emoji. Never nil.
func (r Reactions) Users(emoji string) []string {
	users := make([]string, len(r[emoji]))
	copy(users, r[emoji])
	return users
}

func (r Reactions) Clone() Reactions {
	c := make(Reactions, len(r))
	for emoji, users := range r {
		c[emoji] = append([]string(nil), users...)
	}
	return c
}
