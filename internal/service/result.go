// Package service provides business logic for the application.
package service

import "math"

// Kind classifies a failed Result. The handler maps each kind to one HTTP status.
type Kind int

const (
	KindNone Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Messages shared by every service.
const (
	MsgInternal           = "Internal server error"
	validationErrorPrefix = "Validation error: "
)

// Result is the envelope every service operation returns.
// A failed result has Error set and a zero Data.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`

	Kind Kind  `json:"-"`
	Err  error `json:"-"` // underlying cause, for logging only
}

// OK builds a successful result.
func OK[T any](data T, message string) Result[T] {
	return Result[T]{Success: true, Data: data, Message: message}
}

// Fail builds a failed result of the given kind.
func Fail[T any](kind Kind, msg string, cause error) Result[T] {
	return Result[T]{Kind: kind, Error: msg, Err: cause}
}

// Invalid builds a validation failure. detail is appended to "Validation error: ".
func Invalid[T any](detail string) Result[T] {
	return Fail[T](KindValidation, validationErrorPrefix+detail, nil)
}

// Internal builds an internal failure that hides cause from the client.
func Internal[T any](cause error) Result[T] {
	return Fail[T](KindInternal, MsgInternal, cause)
}

// Pagination defaults.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// pageWindow turns a 1-based page and a page size into limit and offset.
func pageWindow(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if page > math.MaxInt32 {
		page = math.MaxInt32
	}
	return limit, (page - 1) * limit
}
