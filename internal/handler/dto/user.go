// Package dto provides the JSON shapes of API responses.
package dto

import (
	"time"

	"github.com/taskflow/taskflow/internal/model"
)

// User is the public view of a user. Secrets never leave the service.
type User struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	FullName  string     `json:"full_name"`
	IsActive  bool       `json:"is_active"`
	HasAPIKey bool       `json:"has_api_key"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastLogin *time.Time `json:"last_login"`
}

// ToUser converts a model.User.
func ToUser(u *model.User) User {
	return User{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		FullName:  u.FullName(),
		IsActive:  u.IsActive,
		HasAPIKey: u.HasAPIKey(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
		LastLogin: u.LastLogin,
	}
}

// ToUsers converts a list, never returning nil.
func ToUsers(users []*model.User) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		out = append(out, ToUser(u))
	}
	return out
}

// IssuedAPIKey is returned once, when a key is created.
type IssuedAPIKey struct {
	User   User   `json:"user"`
	APIKey string `json:"api_key"`
}
