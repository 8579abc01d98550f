// Package id generates opaque identifiers.
package id

import (
	"strings"

	"github.com/google/uuid"
)

type Generator interface {
	New() string
}

// UUID yields random v4 UUIDs without dashes.
type UUID struct{}

func (UUID) New() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
