package valueobjects

import (
	"strings"

	"github.com/google/uuid"
)

// NewEntryID returns a fresh random entry identifier.
func NewEntryID() string {
	return uuid.New().String()
}

// NormalizeEntryID trims surrounding whitespace from an externally supplied id.
// Imported archives keep their own ids, so any non-empty string is accepted.
func NormalizeEntryID(id string) string {
	return strings.TrimSpace(id)
}
