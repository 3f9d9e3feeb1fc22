package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type authResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// Login exchanges credentials for a token at {base}/user/login and stores
// it. A rejected login surfaces as an error with the server's message; no
// retry.
func Login(ctx context.Context, baseURL, username, password string) error {
	resp, err := postAuth(ctx, baseURL, "/user/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return SetToken(resp.Token, username, nil)
}

// Signup registers a new account at {base}/user/signup and stores the
// issued token. The confirm check runs client-side first so an obvious
// mismatch never leaves the machine.
func Signup(ctx context.Context, baseURL, username, password, confirm string) error {
	if password != confirm {
		return fmt.Errorf("signup: passwords do not match")
	}
	resp, err := postAuth(ctx, baseURL, "/user/signup", map[string]string{
		"username": username,
		"password": password,
		"confirm":  confirm,
	})
	if err != nil {
		return fmt.Errorf("signup: %w", err)
	}
	return SetToken(resp.Token, username, nil)
}

// Logout drops the stored token. Tokens provided via env cannot be dropped
// here.
func Logout() error {
	return DeleteToken()
}

func postAuth(ctx context.Context, baseURL, path string, payload map[string]string) (*authResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	url := strings.TrimRight(baseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var out authResponse
	if err := json.Unmarshal(raw, &out); err != nil && resp.StatusCode == http.StatusOK {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Message != "" {
			return nil, fmt.Errorf("%s", out.Message)
		}
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	if out.Token == "" {
		return nil, fmt.Errorf("server returned no token")
	}
	return &out, nil
}
