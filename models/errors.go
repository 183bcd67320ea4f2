package models

import (
	"fmt"
	"sort"
	"strings"
)

// ConfigurationError reports required settings that are absent or invalid.
type ConfigurationError struct {
	Missing []string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) == 0 {
		return "configuration error: " + e.Reason
	}
	msg := "configuration error: missing " + strings.Join(e.Missing, ", ")
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// ValidationError maps form field names to a message for that field.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// UploadError wraps a failed object storage write.
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload of %q failed: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// SubmissionError reports a sink that failed or answered with a non-2xx status.
type SubmissionError struct {
	Sink       string
	StatusCode int
	Err        error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sink %s: %v", e.Sink, e.Err)
	}
	return fmt.Sprintf("sink %s: unexpected status %d", e.Sink, e.StatusCode)
}

func (e *SubmissionError) Unwrap() error { return e.Err }
