package domain

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorKind is the user-facing failure taxonomy. Each kind maps to one
// presentation in the UI: field errors, form message, toast or re-login.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindUnauthorized ErrorKind = "unauthorized"
	KindConflict     ErrorKind = "conflict"
	KindTransient    ErrorKind = "transient"
	KindNotPermitted ErrorKind = "not_permitted"
	KindNotFound     ErrorKind = "not_found"
)

// ValidationError carries per-field messages. It never reaches the network.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Invalid wraps a non-empty field map as a ValidationError, or returns nil.
func Invalid(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Sentinels other packages wrap so Classify can place their errors.
var (
	ErrNotPermitted = errors.New("action not permitted")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// statuser is implemented by upstream transport errors.
type statuser interface {
	Status() int
}

// Classify maps any error onto the taxonomy. Unknown errors, network
// failures and upstream 5xx responses are transient.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if IsValidation(err) {
		return KindValidation
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrNotPermitted):
		return KindNotPermitted
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	}

	var se statuser
	if errors.As(err, &se) {
		switch code := se.Status(); {
		case code == http.StatusUnauthorized:
			return KindUnauthorized
		case code == http.StatusForbidden:
			return KindNotPermitted
		case code == http.StatusNotFound:
			return KindNotFound
		case code >= 400 && code < 500 && code != http.StatusTooManyRequests && code != http.StatusRequestTimeout:
			return KindConflict
		}
	}
	return KindTransient
}
