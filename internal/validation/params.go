package validation

import (
	"strconv"
	"strings"
)

// Path parameter limits.
const (
	MaxUsernameLength = 50
	MaxEmailLength    = 254
)

// UserID parses a user id path parameter.
func UserID(raw string) (int64, error) {
	return positiveID(raw, "User ID must be a positive integer")
}

// TaskID parses a task id path parameter.
func TaskID(raw string) (int64, error) {
	return positiveID(raw, "Task ID must be a positive integer")
}

func positiveID(raw, msg string) (int64, error) {
	if raw == "" || strings.Trim(raw, "0123456789") != "" {
		return 0, newError(msg)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, newError(msg)
	}
	return id, nil
}

// Username checks a username path parameter.
func Username(raw string) (string, error) {
	return boundedParam(raw, "username", MaxUsernameLength)
}

// Email checks an email path parameter. Shape is not enforced here;
// a malformed address simply matches no user.
func Email(raw string) (string, error) {
	return boundedParam(raw, "email", MaxEmailLength)
}

func boundedParam(raw, field string, maxLen int) (string, error) {
	if raw == "" {
		return "", newError(field + " is required")
	}
	if len([]rune(raw)) > maxLen {
		return "", newError(field + " must be at most " + strconv.Itoa(maxLen) + " characters")
	}
	return raw, nil
}
