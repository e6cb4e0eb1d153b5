package models

import (
	"fmt"
	"strings"
)

// ValidationError represents a bad configuration or selection value
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}

// SchemaError is raised when a source lacks a required column.
// This is a contract violation, unlike malformed cell values.
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s", e.Source, strings.Join(e.Missing, ", "))
}

// IsTransient returns false; the input must be fixed
func (e *SchemaError) IsTransient() bool {
	return false
}
