package utils

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateRequestID generates a unique request ID
func GenerateRequestID() string {
	return fmt.Sprintf("req_%d_%s", time.Now().UnixNano(), uuid.NewString()[:8])
}

// GenerateStoredName returns a collision-free file name that keeps the
// extension of original.
func GenerateStoredName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if len(ext) > 16 {
		ext = ""
	}
	return uuid.NewString() + ext
}
