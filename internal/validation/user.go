package validation

import (
	"net/url"
	"strconv"

	"github.com/taskflow/taskflow/internal/service"
)

type createUserBody struct {
	Username  string `json:"username" validate:"required,trimmed,min=1,max=50"`
	Email     string `json:"email" validate:"required,trimmed,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"max=50"`
	LastName  string `json:"last_name" validate:"max=50"`
	IsActive  *bool  `json:"is_active"`
}

// CreateUser validates a user registration body.
func CreateUser(data []byte) (service.CreateUserInput, error) {
	var body createUserBody
	if err := decodeBody(data, &body); err != nil {
		return service.CreateUserInput{}, err
	}

	if err := check(&body); err != nil {
		return service.CreateUserInput{}, err
	}

	return service.CreateUserInput{
		Username:  body.Username,
		Email:     body.Email,
		Password:  body.Password,
		FirstName: body.FirstName,
		LastName:  body.LastName,
		IsActive:  body.IsActive,
	}, nil
}

type updateUserBody struct {
	Username  *string `json:"username" validate:"omitempty,trimmed,min=1,max=50"`
	Email     *string `json:"email" validate:"omitempty,trimmed,email,max=254"`
	FirstName *string `json:"first_name" validate:"omitempty,max=50"`
	LastName  *string `json:"last_name" validate:"omitempty,max=50"`
	IsActive  *bool   `json:"is_active"`
}

// UpdateUser validates a partial user update. Passwords cannot be changed here.
func UpdateUser(data []byte) (service.UpdateUserInput, error) {
	var body updateUserBody
	if err := decodeBody(data, &body); err != nil {
		return service.UpdateUserInput{}, err
	}

	if err := check(&body); err != nil {
		return service.UpdateUserInput{}, err
	}

	return service.UpdateUserInput{
		Username:  body.Username,
		Email:     body.Email,
		FirstName: body.FirstName,
		LastName:  body.LastName,
		IsActive:  body.IsActive,
	}, nil
}

type loginBody struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login validates a credentials body.
func Login(data []byte) (service.LoginInput, error) {
	var body loginBody
	if err := decodeBody(data, &body); err != nil {
		return service.LoginInput{}, err
	}
	if err := check(&body); err != nil {
		return service.LoginInput{}, err
	}
	return service.LoginInput{Username: body.Username, Password: body.Password}, nil
}

type userListQuery struct {
	IsActive  string `schema:"isActive"`
	Search    string `schema:"search" validate:"max=100"`
	Page      string `schema:"page" validate:"omitempty,digits"`
	Limit     string `schema:"limit" validate:"omitempty,digits"`
	SortBy    string `schema:"sortBy" validate:"omitempty,oneof=username email created_at last_login"`
	SortOrder string `schema:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

// UserList validates the GET /users query string.
// isActive accepts "true" or "false"; any other value means no filter.
func UserList(values url.Values) (service.ListUsersInput, error) {
	var q userListQuery
	if err := decodeQuery(values, &q); err != nil {
		return service.ListUsersInput{}, err
	}
	if err := check(&q); err != nil {
		return service.ListUsersInput{}, err
	}

	input := service.ListUsersInput{
		Search:    q.Search,
		Page:      atoi(q.Page),
		Limit:     atoi(q.Limit),
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
	}
	switch q.IsActive {
	case "true":
		input.IsActive = boolPtr(true)
	case "false":
		input.IsActive = boolPtr(false)
	}

	return input, nil
}

func boolPtr(b bool) *bool { return &b }

// atoi converts a digits-only string. Overflow saturates; empty is zero.
func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}
