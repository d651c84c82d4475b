package domain

import "time"

// ViewOnceToken hands out a stored file exactly once.
type ViewOnceToken struct {
	Token     string    `json:"token"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}
