package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrCircuitOpen is returned without contacting the backend while it is
// considered down.
var ErrCircuitOpen = errors.New("backend unavailable: circuit open")

// StatusError is a non-2xx answer from the backend. Its message format
// ("401: Unauthorized") is what the classifier and log lines rely on.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e == nil {
		return ""
	}
	message := strings.TrimSpace(e.Message)
	if message == "" {
		message = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%d: %s", e.Status, message)
}

func NewStatusError(status int, message string) *StatusError {
	return &StatusError{Status: status, Message: message}
}

type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidationError lists every field of a form that failed its schema.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		parts = append(parts, field.Field+": "+field.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Field(name string) (FieldError, bool) {
	if e == nil {
		return FieldError{}, false
	}
	for _, field := range e.Fields {
		if field.Field == name {
			return field, true
		}
	}
	return FieldError{}, false
}
