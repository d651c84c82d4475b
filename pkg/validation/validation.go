package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// UsernameRegex validates account names
	UsernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// RoomNameRegex validates room names
	RoomNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
)

const (
	MaxContentLength = 16 * 1024
	MaxEmojiLength   = 64
)

// ValidateUsername validates username
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) != username {
		return fmt.Errorf("username must not have surrounding whitespace")
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters")
	}
	if len(username) > 50 {
		return fmt.Errorf("username is too long (max 50 characters)")
	}
	if !UsernameRegex.MatchString(username) {
		return fmt.Errorf("username contains invalid characters (only letters, numbers, _, - allowed)")
	}
	return nil
}

// ValidatePassword validates password against a minimum length
func ValidatePassword(password string, minLength int) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	if len(password) < minLength {
		return fmt.Errorf("password too short (min %d chars)", minLength)
	}
	if len(password) > 72 {
		return fmt.Errorf("password is too long (max 72 bytes)")
	}
	return nil
}

// ValidateRoomName validates room name
func ValidateRoomName(room string) error {
	if room == "" {
		return fmt.Errorf("room name is required")
	}
	if len(room) > 100 {
		return fmt.Errorf("room name is too long (max 100 characters)")
	}
	if !RoomNameRegex.MatchString(room) {
		return fmt.Errorf("invalid room name format")
	}
	return nil
}

// ValidateContent validates chat message content
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("content is required")
	}
	if len(content) > MaxContentLength {
		return fmt.Errorf("content is too long (max %d bytes)", MaxContentLength)
	}
	if !utf8.ValidString(content) {
		return fmt.Errorf("content is not valid UTF-8")
	}
	return nil
}

func ValidateEmoji(emoji string) error {
	if emoji == "" {
		return fmt.Errorf("emoji is required")
	}
	if len(emoji) > MaxEmojiLength || !utf8.ValidString(emoji) {
		return fmt.Errorf("invalid emoji")
	}
	return nil
}

// SanitizeFilename strips directories and rejects names that cannot be stored.
func SanitizeFilename(name string) (string, error) {
	base := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, "\\", "/")))
	if base == "/" || base == "." || base == ".." || base == "" {
		return "", fmt.Errorf("invalid file name")
	}
	if len(base) > 255 {
		return "", fmt.Errorf("file name is too long (max 255 characters)")
	}
	return base, nil
}
