package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/taskflow/taskflow/internal/auth"
	"github.com/taskflow/taskflow/internal/repository"
	"github.com/taskflow/taskflow/internal/service"
)

type output struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Key       string `json:"key"`
	KeyPrefix string `json:"key_prefix"`
	Created   bool   `json:"created"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", envOr("DATABASE_URL", "file:taskflow.db"), "SQLite DSN or PostgreSQL connection string")
		username    = flag.String("username", "admin", "User to own the API key")
		email       = flag.String("email", "admin@taskflow.local", "Email used when the user must be created")
		password    = flag.String("password", os.Getenv("BOOTSTRAP_PASSWORD"), "Password used when the user must be created")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.Migrate(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "migrate database:", err)
		os.Exit(1)
	}

	users := service.NewUserService(repo, nil, auth.NewPasswordHasher(auth.DefaultParams), nil)

	id, created, err := ensureUser(ctx, users, *username, *email, *password)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	res := users.IssueAPIKey(ctx, id)
	if !res.Success {
		fmt.Fprintln(os.Stderr, "issue api key:", res.Error)
		os.Exit(1)
	}

	out := output{
		UserID:    res.Data.User.ID,
		Username:  res.Data.User.Username,
		Email:     res.Data.User.Email,
		Key:       res.Data.APIKey,
		KeyPrefix: res.Data.User.APIKeyPrefix,
		Created:   created,
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.Key)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

// ensureUser returns the id of username, creating the user if it does not exist.
func ensureUser(ctx context.Context, users *service.UserService, username, email, password string) (int64, bool, error) {
	existing := users.GetUserByUsername(ctx, username)
	if existing.Success {
		if !existing.Data.IsActive {
			return 0, false, fmt.Errorf("user %s is deactivated", username)
		}
		return existing.Data.ID, false, nil
	}
	if existing.Kind != service.KindNotFound {
		return 0, false, fmt.Errorf("look up user %s: %s", username, existing.Error)
	}

	if len(password) < 8 {
		return 0, false, fmt.Errorf("user %s does not exist; -password (at least 8 characters) is required to create it", username)
	}

	res := users.CreateUser(ctx, service.CreateUserInput{
		Username: username,
		Email:    email,
		Password: password,
	})
	if !res.Success {
		return 0, false, fmt.Errorf("create user: %s", res.Error)
	}
	return res.Data.ID, true, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
