// Package redact keeps secrets and user content out of logs, spans and error
// bodies.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Level controls how much of a prompt survives.
type Level string

const (
	// LevelNone replaces prompts entirely
	LevelNone Level = "none"
	// LevelHashed replaces emails, phone numbers and IPs with salted hashes
	LevelHashed Level = "hashed"
	// LevelFull logs prompts verbatim
	LevelFull Level = "full"
)

var (
	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern  = regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	ipv4Pattern   = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	urlPattern    = regexp.MustCompile(`https?://[^\s"'<>]+`)
	bearerPattern = regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9._~+/=-]+`)
	googleToken   = regexp.MustCompile(`ya29\.[A-Za-z0-9._-]+`)
)

// Sanitizer redacts prompts according to its level.
type Sanitizer struct {
	level Level
	salt  string
}

// NewSanitizer creates a sanitizer. Unknown levels behave like LevelHashed.
func NewSanitizer(level Level, salt string) *Sanitizer {
	switch Level(strings.ToLower(string(level))) {
	case LevelNone, LevelFull:
		level = Level(strings.ToLower(string(level)))
	default:
		level = LevelHashed
	}
	return &Sanitizer{level: level, salt: salt}
}

// Prompt returns the loggable form of a prompt.
func (s *Sanitizer) Prompt(input string) string {
	switch s.level {
	case LevelNone:
		return "[REDACTED]"
	case LevelFull:
		return input
	}

	result := emailPattern.ReplaceAllStringFunc(input, func(match string) string {
		return fmt.Sprintf("[EMAIL:%s]", s.hash(match))
	})
	result = phonePattern.ReplaceAllStringFunc(result, func(match string) string {
		return fmt.Sprintf("[PHONE:%s]", s.hash(match))
	})
	return ipv4Pattern.ReplaceAllStringFunc(result, func(match string) string {
		return fmt.Sprintf("[IP:%s]", s.hash(match))
	})
}

// hash returns the first 8 hex chars of a salted SHA-256
func (s *Sanitizer) hash(data string) string {
	sum := sha256.Sum256([]byte(data + s.salt))
	return hex.EncodeToString(sum[:])[:8]
}

// URL drops the query and fragment, which carry signatures on media URLs.
func URL(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		return raw[:i]
	}
	return raw
}

// Message strips URL query strings and bearer or OAuth tokens from free text
// such as error messages.
func Message(msg string) string {
	msg = urlPattern.ReplaceAllStringFunc(msg, URL)
	msg = bearerPattern.ReplaceAllString(msg, "${1}[REDACTED]")
	return googleToken.ReplaceAllString(msg, "[REDACTED]")
}
