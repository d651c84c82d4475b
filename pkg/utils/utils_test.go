package utils

import (
	"strings"
	"testing"
)

func TestGenerateRequestID(t *testing.T) {
	id1 := GenerateRequestID()
	id2 := GenerateRequestID()

	if id1 == id2 {
		t.Error("expected different IDs")
	}
	if !strings.HasPrefix(id1, "req_") {
		t.Errorf("expected prefix 'req_', got %s", id1)
	}
}

func TestGenerateStoredName(t *testing.T) {
	name := GenerateStoredName("Holiday.JPG")
	if !strings.HasSuffix(name, ".jpg") {
		t.Errorf("expected .jpg suffix, got %s", name)
	}
	if GenerateStoredName("a.png") == GenerateStoredName("a.png") {
		t.Error("expected different names")
	}
	if name := GenerateStoredName("noext"); strings.Contains(name, ".") {
		t.Errorf("expected no extension, got %s", name)
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"hello", 3, "hel"},
	}

	for _, tt := range tests {
		if got := TruncateString(tt.input, tt.maxLen); got != tt.expected {
			t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.expected)
		}
	}
}

func TestMaskSensitive(t *testing.T) {
	if got := MaskSensitive("eyJhbGciOi", 4); got != "eyJh******" {
		t.Errorf("MaskSensitive() = %q", got)
	}
	if got := MaskSensitive("abc", 4); got != "***" {
		t.Errorf("MaskSensitive() = %q", got)
	}
}
