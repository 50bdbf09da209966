// Package validation turns raw path params, query strings and JSON bodies
// into typed service inputs.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/gorilla/schema"
)

// Error collects every rule a request broke.
type Error struct {
	Messages []string
}

func (e *Error) Error() string {
	return strings.Join(e.Messages, "; ")
}

func newError(messages ...string) *Error {
	return &Error{Messages: messages}
}

// JSONError reports a body that could not be decoded.
type JSONError struct {
	Err error
}

func (e *JSONError) Error() string {
	return e.Err.Error()
}

func (e *JSONError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err is a rule violation.
func IsValidationError(err error) bool {
	var verr *Error
	return errors.As(err, &verr)
}

// IsJSONError reports whether err is a malformed body.
func IsJSONError(err error) bool {
	var jerr *JSONError
	return errors.As(err, &jerr)
}

var (
	validate     = newValidator()
	queryDecoder = newQueryDecoder()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "schema"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})

	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("trimmed", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == strings.TrimSpace(s)
	})
	_ = v.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s != "" && strings.Trim(s, "0123456789") == ""
	})

	return v
}

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// check runs the struct rules and converts failures to an *Error.
func check(s any) error {
	messages, err := violations(s)
	if err != nil {
		return err
	}
	if len(messages) > 0 {
		return newError(messages...)
	}
	return nil
}

// violations returns one message per broken rule. The error is only set
// when validation itself could not run.
func violations(s any) ([]string, error) {
	err := validate.Struct(s)
	if err == nil {
		return nil, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil, err
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, message(fe))
	}
	return messages, nil
}

func message(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required", "notblank":
		return field + " is required"
	case "min":
		if fe.Kind() == reflect.String && fe.Param() == "1" {
			return field + " cannot be empty"
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "trimmed":
		return field + " must not start or end with whitespace"
	case "email":
		return field + " must be a valid email address"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "digits":
		return field + " must be a non-negative integer"
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}

// nullable tells an absent JSON field apart from an explicit null.
type nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// decodeBody unmarshals a JSON object. Unknown fields are ignored.
func decodeBody(data []byte, dst any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return &JSONError{Err: errors.New("request body is empty")}
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return &JSONError{Err: err}
	}
	return nil
}

// decodeQuery fills a schema struct of string fields from a query string.
func decodeQuery(values url.Values, dst any) error {
	if err := queryDecoder.Decode(dst, values); err != nil {
		return newError(err.Error())
	}
	return nil
}
