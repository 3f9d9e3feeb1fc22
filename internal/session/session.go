// Package session owns the client's authenticated session: the stored
// bearer token and the login/signup/logout calls that obtain or drop it.
// The token is the explicit session value every gateway call is scoped by.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// envToken short-circuits the credentials file when set.
const envToken = "STRIDER_TOKEN"

type TokenInfo struct {
	Token     string     `json:"token"`
	Username  string     `json:"username,omitempty"`
	Source    string     `json:"source"`     // "env" | "file"
	CreatedAt time.Time  `json:"created_at"` // when we saved to file
	ExpiresAt *time.Time `json:"expires_at"` // optional (server-provided)
}

func credPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, ".strider", "credentials.json"), nil
}

// GetToken resolves the current session. The env override wins; otherwise
// the credentials file is consulted. (nil, nil) means not logged in.
func GetToken() (*TokenInfo, error) {
	if env := strings.TrimSpace(os.Getenv(envToken)); env != "" {
		return &TokenInfo{Token: stripBearer(env), Source: "env"}, nil
	}
	return readStored()
}

func readStored() (*TokenInfo, error) {
	p, err := credPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var ti TokenInfo
	if err := json.Unmarshal(b, &ti); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	ti.Token = stripBearer(ti.Token)
	return &ti, nil
}

// SetToken writes the credentials file, creating its directory on first
// use. The file is owner-only readable.
func SetToken(token, username string, expires *time.Time) error {
	token = stripBearer(strings.TrimSpace(token))
	if token == "" {
		return errors.New("empty token")
	}
	p, err := credPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	b, err := json.MarshalIndent(TokenInfo{
		Token:     token,
		Username:  username,
		Source:    "file",
		CreatedAt: time.Now(),
		ExpiresAt: expires,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(p, b, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func DeleteToken() error {
	p, err := credPath()
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether a usable token is present.
func IsAuthenticated() bool {
	ti, err := GetToken()
	return err == nil && ti != nil && strings.TrimSpace(ti.Token) != ""
}

func stripBearer(s string) string {
	const prefix = "Bearer "
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return strings.TrimSpace(s[len(prefix):])
	}
	return s
}

// Source satisfies the gateway's TokenSource with the stored credentials.
type Source struct{}

func (Source) Token() (string, error) {
	ti, err := GetToken()
	if err != nil {
		return "", err
	}
	if ti == nil {
		return "", nil
	}
	return ti.Token, nil
}
