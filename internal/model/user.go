// Package model defines domain entities for the application.
package model

import "time"

// User represents an account that can own tasks.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never serialize
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	IsActive     bool       `json:"is_active"`
	APIKeyHash   string     `json:"-"`
	APIKeyPrefix string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLogin    *time.Time `json:"last_login"`
}

// HasAPIKey reports whether an API key has been issued for the user.
func (u *User) HasAPIKey() bool {
	return u.APIKeyPrefix != ""
}

// FullName joins first and last name, skipping empty parts.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// UserStats aggregates user counts.
type UserStats struct {
	TotalUsers      int64 `json:"total_users"`
	ActiveUsers     int64 `json:"active_users"`
	InactiveUsers   int64 `json:"inactive_users"`
	UsersWithAPIKey int64 `json:"users_with_api_key"`
	NewLast30Days   int64 `json:"new_last_30_days"`
}

// AuthContext holds the identity resolved from an API key.
// It is injected into the request context by the API key middleware.
type AuthContext struct {
	UserID    int64
	Username  string
	KeyPrefix string
}
