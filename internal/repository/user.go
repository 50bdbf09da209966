package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taskflow/taskflow/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUsernameExists = errors.New("username already exists")
	ErrEmailExists    = errors.New("email already exists")
	ErrAPIKeyExists   = errors.New("api key already exists")
)

// UserSortColumns maps accepted sort keys to columns.
var UserSortColumns = map[string]string{
	"username":   "username",
	"email":      "email",
	"created_at": "created_at",
	"last_login": "last_login",
}

// UserFilter contains filter options for listing users.
type UserFilter struct {
	IsActive *bool
	Search   string // matched against username, email, first and last name
	SortBy   string // key of UserSortColumns, default id
	SortDesc bool
	Limit    int
	Offset   int
}

const userColumns = `id, username, email, password_hash, first_name, last_name, is_active,
	COALESCE(api_key_hash, ''), COALESCE(api_key_prefix, ''), created_at, updated_at, last_login`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.IsActive,
		&u.APIKeyHash,
		&u.APIKeyPrefix,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.LastLogin,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user and sets its ID.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	query := r.rebind(`
		INSERT INTO users (username, email, password_hash, first_name, last_name, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := r.db.QueryRowContext(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return uniqueUserError(err)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getUserBy(ctx, "id", id)
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getUserBy(ctx, "username", username)
}

// GetUserByEmail retrieves a user by email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getUserBy(ctx, "email", email)
}

// GetUserByAPIKeyHash retrieves the user owning an API key.
func (r *Repository) GetUserByAPIKeyHash(ctx context.Context, keyHash string) (*model.User, error) {
	return r.getUserBy(ctx, "api_key_hash", keyHash)
}

// getUserBy is only called with fixed column names.
func (r *Repository) getUserBy(ctx context.Context, column string, value any) (*model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := r.rebind(`SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ?`)

	user, err := scanUser(r.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}
	return user, nil
}

// ListUsers returns users matching the filter.
func (r *Repository) ListUsers(ctx context.Context, filter UserFilter) ([]*model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var (
		conditions []string
		args       []any
	)

	if filter.IsActive != nil {
		conditions = append(conditions, "is_active = ?")
		args = append(args, *filter.IsActive)
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		conditions = append(conditions, `(LOWER(username) LIKE ? ESCAPE '\'
			OR LOWER(email) LIKE ? ESCAPE '\'
			OR LOWER(first_name) LIKE ? ESCAPE '\'
			OR LOWER(last_name) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern, pattern)
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += orderBy(UserSortColumns, filter.SortBy, filter.SortDesc)
	query, args = limitOffset(query, args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*model.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// UpdateUser persists the mutable profile fields of a user.
func (r *Repository) UpdateUser(ctx context.Context, user *model.User) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	user.UpdatedAt = time.Now().UTC()

	query := r.rebind(`
		UPDATE users
		SET username = ?, email = ?, first_name = ?, last_name = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`)

	result, err := r.db.ExecContext(ctx, query,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.IsActive,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return uniqueUserError(err)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	return expectOneRow(result, ErrUserNotFound)
}

// SetUserActive toggles the active flag.
func (r *Repository) SetUserActive(ctx context.Context, id int64, active bool) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx,
		r.rebind(`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`),
		active, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set user active: %w", err)
	}
	return expectOneRow(result, ErrUserNotFound)
}

// UpdateLastLogin records a successful login.
func (r *Repository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx,
		r.rebind(`UPDATE users SET last_login = ? WHERE id = ?`),
		at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return expectOneRow(result, ErrUserNotFound)
}

// SetUserAPIKey stores the hash and display prefix of a newly issued key,
// replacing any previous key.
func (r *Repository) SetUserAPIKey(ctx context.Context, id int64, keyHash, keyPrefix string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx,
		r.rebind(`UPDATE users SET api_key_hash = ?, api_key_prefix = ?, updated_at = ? WHERE id = ?`),
		keyHash, keyPrefix, time.Now().UTC(), id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAPIKeyExists
		}
		return fmt.Errorf("failed to set api key: %w", err)
	}
	return expectOneRow(result, ErrUserNotFound)
}

// DeleteUser removes a user. Tasks assigned to the user become unassigned.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Explicit so the result does not depend on foreign key enforcement.
	if _, err := tx.ExecContext(ctx,
		r.rebind(`UPDATE tasks SET user_id = NULL, updated_at = ? WHERE user_id = ?`),
		time.Now().UTC(), id,
	); err != nil {
		return fmt.Errorf("failed to unassign tasks: %w", err)
	}

	result, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if err := expectOneRow(result, ErrUserNotFound); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user delete: %w", err)
	}
	return nil
}

// GetUserStats aggregates user counts. since marks the start of the "new users" window.
func (r *Repository) GetUserStats(ctx context.Context, since time.Time) (*model.UserStats, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := r.rebind(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN api_key_hash IS NOT NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0)
		FROM users
	`)

	var stats model.UserStats
	err := r.db.QueryRowContext(ctx, query, since.UTC()).Scan(
		&stats.TotalUsers,
		&stats.ActiveUsers,
		&stats.UsersWithAPIKey,
		&stats.NewLast30Days,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	stats.InactiveUsers = stats.TotalUsers - stats.ActiveUsers

	return &stats, nil
}

func uniqueUserError(err error) error {
	switch violatedColumn(err) {
	case "username":
		return ErrUsernameExists
	case "email":
		return ErrEmailExists
	case "api_key_hash":
		return ErrAPIKeyExists
	default:
		return fmt.Errorf("unique constraint violated: %w", err)
	}
}

func expectOneRow(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// orderBy builds an ORDER BY clause from a whitelist. id is the tie breaker.
func orderBy(columns map[string]string, key string, desc bool) string {
	direction := "ASC"
	if desc {
		direction = "DESC"
	}
	column, ok := columns[key]
	if !ok {
		return " ORDER BY id " + direction
	}
	return " ORDER BY " + column + " " + direction + ", id " + direction
}

func limitOffset(query string, args []any, limit, offset int) (string, []any) {
	if limit <= 0 {
		return query, args
	}
	query += " LIMIT ?"
	args = append(args, limit)
	if offset > 0 {
		query += " OFFSET ?"
		args = append(args, offset)
	}
	return query, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
