package helpers

import "strings"

const defaultErrorMessage = "An unexpected error occurred"

// ErrorMessage returns text suitable for showing to the user.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return defaultErrorMessage
}
