package helpers

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func ValidateEmail(email string) bool { return emailPattern.MatchString(email) }

// ValidatePassword requires at least eight characters.
func ValidatePassword(password string) bool { return utf8.RuneCountInString(password) >= 8 }

func ValidateRequired(value string) bool { return value != "" }

// IsValidChatMessage reports whether msg can be sent to the assistant: not
// blank and no longer than MaxChatMessageLength.
func IsValidChatMessage(msg string) bool {
	return strings.TrimSpace(msg) != "" && utf8.RuneCountInString(msg) <= MaxChatMessageLength
}
