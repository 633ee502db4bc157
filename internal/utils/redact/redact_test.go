package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSanitizerLevels(t *testing.T) {
	tests := []struct {
		in   Level
		want Level
	}{
		{LevelNone, LevelNone},
		{"FULL", LevelFull},
		{LevelHashed, LevelHashed},
		{"", LevelHashed},
		{"verbose", LevelHashed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewSanitizer(tt.in, "salt").level, string(tt.in))
	}
}

func TestPrompt(t *testing.T) {
	prompt := "a cat video for john.doe@example.com, call 555-123-4567 from 10.0.0.1"

	assert.Equal(t, "[REDACTED]", NewSanitizer(LevelNone, "s").Prompt(prompt))
	assert.Equal(t, prompt, NewSanitizer(LevelFull, "s").Prompt(prompt))

	hashed := NewSanitizer(LevelHashed, "s").Prompt(prompt)
	assert.Contains(t, hashed, "a cat video for [EMAIL:")
	assert.Contains(t, hashed, "[PHONE:")
	assert.Contains(t, hashed, "[IP:")
	assert.NotContains(t, hashed, "john.doe@example.com")
	assert.NotContains(t, hashed, "555-123-4567")
}

func TestPromptHashDependsOnSalt(t *testing.T) {
	a := NewSanitizer(LevelHashed, "one").Prompt("x@example.com")
	b := NewSanitizer(LevelHashed, "two").Prompt("x@example.com")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, NewSanitizer(LevelHashed, "one").Prompt("x@example.com"))
}

func TestURL(t *testing.T) {
	assert.Equal(t, "https://storage.example.com/v/abc.mp4", URL("https://storage.example.com/v/abc.mp4?Expires=1&Signature=zz"))
	assert.Equal(t, "https://x/y", URL("https://x/y#frag"))
	assert.Equal(t, "https://x/y", URL("https://x/y"))
}

func TestMessage(t *testing.T) {
	msg := `download_image: transport failure: Get "https://cdn.example.com/a.png?sig=secret": dial tcp; Authorization: Bearer abc.def-123; token ya29.a0AfH6SM`

	got := Message(msg)
	assert.Contains(t, got, `"https://cdn.example.com/a.png"`)
	assert.NotContains(t, got, "sig=secret")
	assert.Contains(t, got, "Bearer [REDACTED]")
	assert.NotContains(t, got, "abc.def-123")
	assert.NotContains(t, got, "ya29.")
}
