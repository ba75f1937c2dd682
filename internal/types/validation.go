package types

import (
	"fmt"
	"strings"
)

// ValidateIDPresent rejects blank record identifiers before any network
// round trip is spent on them.
func ValidateIDPresent(id, field string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s must not be empty", field)
	}
	return nil
}

// ValidateModule rejects blank module (entity) names.
func ValidateModule(module string) error {
	if strings.TrimSpace(module) == "" {
		return fmt.Errorf("module must not be empty")
	}
	return nil
}

// ErrNotFound is returned when a record lookup matches nothing.
var ErrNotFound = fmt.Errorf("record not found")
