package rag

import (
	"errors"
	"fmt"
)

// ErrInvalidIndex is returned by NewAnswerer when no store is supplied.
var ErrInvalidIndex = errors.New("rag: index must provide vector search and document lookup")

// ConfigError reports a missing or invalid answerer setting.
type ConfigError struct {
	Field string
	Err   error
}

// Error implements error.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rag: invalid %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("rag: %s is required", e.Field)
}

// Unwrap returns the underlying cause, if any.
func (e *ConfigError) Unwrap() error { return e.Err }
