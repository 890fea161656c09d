// Package uuidutil normalizes UUID values used as entity identifiers.
package uuidutil

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ParseString parses common UUID string formats and returns a normalized lower-case UUID string.
func ParseString(raw string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid UUID value")
	}
	return strings.ToLower(parsed.String()), nil
}

// New returns a freshly generated random UUID in canonical lower-case form.
func New() string {
	return uuid.NewString()
}

// IsValid reports whether raw parses as a UUID.
func IsValid(raw string) bool {
	_, err := uuid.Parse(strings.TrimSpace(raw))
	return err == nil
}
