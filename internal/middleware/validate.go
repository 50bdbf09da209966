package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/taskflow/taskflow/internal/metrics"
	"github.com/taskflow/taskflow/internal/validation"
)

// Validation failure messages.
const (
	MsgValidationFailed = "Validation failed"
	MsgInvalidJSON      = "Invalid JSON body"
	MsgBodyTooLarge     = "Request body too large"
)

type paramKey string

type (
	queryKey struct{}
	bodyKey  struct{}
)

// ValidateParam parses the URL parameter name and stores the typed value
// for Param. A failed parse answers 400 and stops the chain.
func ValidateParam[T any](rec metrics.Recorder, name string, parse func(string) (T, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// chi matches on RawPath when it is set, so only then is the
			// segment still escaped.
			raw := chi.URLParam(r, name)
			if r.URL.RawPath != "" {
				if unescaped, err := url.PathUnescape(raw); err == nil {
					raw = unescaped
				}
			}

			value, err := parse(raw)
			if err != nil {
				rejectInput(w, rec, "param", err)
				return
			}

			ctx := context.WithValue(r.Context(), paramKey(name), value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ValidateQuery parses the query string and stores the typed value for Query.
func ValidateQuery[T any](rec metrics.Recorder, parse func(url.Values) (T, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			value, err := parse(r.URL.Query())
			if err != nil {
				rejectInput(w, rec, "query", err)
				return
			}

			ctx := context.WithValue(r.Context(), queryKey{}, value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ValidateBody reads the JSON body and stores the typed value for Body.
func ValidateBody[T any](rec metrics.Recorder, parse func([]byte) (T, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, err := io.ReadAll(r.Body)
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					writeError(w, http.StatusRequestEntityTooLarge, MsgBodyTooLarge, "")
					return
				}
				rejectInput(w, rec, "body", &validation.JSONError{Err: err})
				return
			}

			value, err := parse(data)
			if err != nil {
				rejectInput(w, rec, "body", err)
				return
			}

			ctx := context.WithValue(r.Context(), bodyKey{}, value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Param returns the value stored by ValidateParam.
func Param[T any](ctx context.Context, name string) T {
	v, _ := ctx.Value(paramKey(name)).(T)
	return v
}

// Query returns the value stored by ValidateQuery.
func Query[T any](ctx context.Context) T {
	v, _ := ctx.Value(queryKey{}).(T)
	return v
}

// Body returns the value stored by ValidateBody.
func Body[T any](ctx context.Context) T {
	v, _ := ctx.Value(bodyKey{}).(T)
	return v
}

func rejectInput(w http.ResponseWriter, rec metrics.Recorder, source string, err error) {
	if rec != nil {
		rec.IncValidationFailure(source)
	}

	switch {
	case validation.IsJSONError(err):
		writeError(w, http.StatusBadRequest, MsgInvalidJSON, err.Error())
	case validation.IsValidationError(err):
		writeError(w, http.StatusBadRequest, MsgValidationFailed, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error", "")
	}
}
