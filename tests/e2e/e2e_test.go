//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Details string          `json:"details"`
}

type userResponse struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	IsActive  bool       `json:"is_active"`
	LastLogin *time.Time `json:"last_login"`
}

type taskResponse struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	UserID *int64 `json:"user_id"`
}

type issuedKeyResponse struct {
	User   userResponse `json:"user"`
	APIKey string       `json:"api_key"`
}

func baseURL() string {
	return envOrDefault("TASKFLOW_BASE_URL", "http://localhost:8080")
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

// TestE2ESmoke walks a user and task lifecycle against a running server.
func TestE2ESmoke(t *testing.T) {
	base := baseURL()
	name := uniqueName("e2e")

	var user userResponse
	status := doJSON(t, http.MethodPost, base+"/users", "", map[string]any{
		"username": name,
		"email":    name + "@example.com",
		"password": "password123",
	}, &user)
	if status != http.StatusCreated {
		t.Fatalf("expected 201 from user create, got %d", status)
	}

	var loggedIn userResponse
	status = doJSON(t, http.MethodPost, base+"/users/login", "", map[string]any{
		"username": name,
		"password": "password123",
	}, &loggedIn)
	if status != http.StatusOK || loggedIn.LastLogin == nil {
		t.Fatalf("login: status %d, last_login %v", status, loggedIn.LastLogin)
	}

	var issued issuedKeyResponse
	status = doJSON(t, http.MethodPost, fmt.Sprintf("%s/users/%d/api-key", base, user.ID), "", nil, &issued)
	if status != http.StatusCreated || issued.APIKey == "" {
		t.Fatalf("issue api key: status %d", status)
	}

	var me userResponse
	status = doJSON(t, http.MethodGet, base+"/users/me", issued.APIKey, nil, &me)
	if status != http.StatusOK || me.ID != user.ID {
		t.Fatalf("/users/me: status %d, id %d", status, me.ID)
	}

	var task taskResponse
	status = doJSON(t, http.MethodPost, base+"/tasks", "", map[string]any{
		"title":   "e2e task",
		"user_id": user.ID,
	}, &task)
	if status != http.StatusCreated || task.UserID == nil {
		t.Fatalf("task create: status %d", status)
	}

	status = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/users/%d", base, user.ID), "", nil, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from user delete, got %d", status)
	}

	var orphan taskResponse
	status = doJSON(t, http.MethodGet, fmt.Sprintf("%s/tasks/%d", base, task.ID), "", nil, &orphan)
	if status != http.StatusOK || orphan.UserID != nil {
		t.Fatalf("task after owner delete: status %d, user_id %v", status, orphan.UserID)
	}

	status = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/tasks/%d", base, task.ID), "", nil, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 from task delete, got %d", status)
	}
	status = doJSON(t, http.MethodGet, fmt.Sprintf("%s/tasks/%d", base, task.ID), "", nil, nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted task, got %d", status)
	}
}

// TestE2ERateLimiting needs a server started with REDIS_URL set.
func TestE2ERateLimiting(t *testing.T) {
	base := baseURL()
	client := &http.Client{Timeout: 10 * time.Second}

	var limited *http.Response
	for i := 0; i < 200; i++ {
		resp, err := client.Get(base + "/users/stats")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = resp
			break
		}
		if resp.Header.Get("X-RateLimit-Limit") == "" {
			resp.Body.Close()
			t.Skip("rate limiting is disabled on the target server")
		}
		resp.Body.Close()
	}

	if limited == nil {
		t.Fatalf("expected 429 after exceeding the burst, but never hit the limit")
	}
	defer limited.Body.Close()

	if remaining := limited.Header.Get("X-RateLimit-Remaining"); remaining != "0" {
		t.Errorf("expected X-RateLimit-Remaining=0, got %s", remaining)
	}
	if limited.Header.Get("Retry-After") == "" {
		t.Error("missing Retry-After header on 429 response")
	}

	var env envelope
	if err := json.NewDecoder(limited.Body).Decode(&env); err != nil {
		t.Fatalf("decode 429 response: %v", err)
	}
	if env.Success || env.Error == "" {
		t.Errorf("unexpected 429 body: %+v", env)
	}
}

// TestE2ENoSecretsInResponses checks that keys and password hashes are never echoed.
func TestE2ENoSecretsInResponses(t *testing.T) {
	base := baseURL()
	client := &http.Client{Timeout: 10 * time.Second}

	fakeKey := "tf_" + strings.Repeat("x", 43)
	req, err := http.NewRequest(http.MethodGet, base+"/users/me", nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+fakeKey)

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for a fake key, got %d", resp.StatusCode)
	}
	if strings.Contains(string(body), fakeKey) {
		t.Error("SECURITY: error response leaked the Authorization header value")
	}

	resp, err = client.Get(base + "/users")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()

	for _, secret := range []string{"password", "$argon2id$", "api_key_hash"} {
		if strings.Contains(string(body), secret) {
			t.Errorf("SECURITY: user listing contains %q", secret)
		}
	}
}

// doJSON sends body as JSON and decodes the envelope's data into out.
func doJSON(t *testing.T, method, url, apiKey string, body any, out any) int {
	t.Helper()

	var buf io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		buf = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, url, buf)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out != nil && env.Success {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}

	return resp.StatusCode
}
