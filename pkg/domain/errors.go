package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoActiveSession is returned when a mutation is issued while no user is active.
var ErrNoActiveSession = errors.New("no active user session")

// FieldError reports one violated constraint, keyed by JSON field path
// (for example "expenses[1].account").
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError enumerates every field that failed validation.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invoice validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Path+": "+f.Message)
	}
	return "invoice validation failed: " + strings.Join(parts, "; ")
}

// Add records a failed constraint.
func (e *ValidationError) Add(path, message string) {
	e.Fields = append(e.Fields, FieldError{Path: path, Message: message})
}

// Has reports whether path failed at least one constraint.
func (e *ValidationError) Has(path string) bool {
	for _, f := range e.Fields {
		if f.Path == path {
			return true
		}
	}
	return false
}

// Paths returns the failed field paths in report order, deduplicated.
func (e *ValidationError) Paths() []string {
	seen := make(map[string]struct{}, len(e.Fields))
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if _, ok := seen[f.Path]; ok {
			continue
		}
		seen[f.Path] = struct{}{}
		out = append(out, f.Path)
	}
	return out
}

// Err returns nil when no field failed.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// CorruptStateError is returned when a stored value exists but cannot be decoded.
// The stored bytes are left untouched.
type CorruptStateError struct {
	Key string
	Err error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("stored state under %q is corrupt: %v", e.Key, e.Err)
}

func (e *CorruptStateError) Unwrap() error { return e.Err }

// StorageError wraps a backend failure for a key.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
