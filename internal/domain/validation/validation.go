// Package validation carries field-level input errors from the domain to the
// transport layer.
package validation

import (
	"errors"
	"sort"
	"strings"
)

// ErrInvalid matches every Errors value via errors.Is.
var ErrInvalid = errors.New("validation failed")

// Errors maps a field name to its messages.
type Errors map[string][]string

// New returns Errors holding one message for field.
func New(field, msg string) Errors {
	return Errors{field: {msg}}
}

func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Merge copies other into e, prefixing each field name.
func (e Errors) Merge(prefix string, other Errors) {
	for field, msgs := range other {
		key := field
		if prefix != "" {
			key = prefix + "." + field
		}
		e[key] = append(e[key], msgs...)
	}
}

// Err returns nil when there is nothing to report.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e[f], " "))
	}
	return "validation: " + strings.Join(parts, "; ")
}

func (e Errors) Is(target error) bool { return target == ErrInvalid }
