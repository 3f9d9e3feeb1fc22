package server

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	errBadCredentials = errors.New("invalid username or password")
	errUserExists     = errors.New("username already taken")
	errBadSignup      = errors.New("username and password are required")
	errConfirm        = errors.New("passwords do not match")
)

// authRegistry holds accounts and their issued tokens. Accounts live for
// the lifetime of the process; tokens are opaque uuids.
type authRegistry struct {
	mu     sync.RWMutex
	users  map[string]string // username -> password hash
	tokens map[string]string // token -> username
}

func newAuthRegistry() *authRegistry {
	return &authRegistry{
		users:  make(map[string]string),
		tokens: make(map[string]string),
	}
}

func (a *authRegistry) signup(username, password, confirm string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", errBadSignup
	}
	if password != confirm {
		return "", errConfirm
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.users[username]; ok {
		return "", errUserExists
	}
	a.users[username] = hashPassword(password)
	return a.issueLocked(username), nil
}

func (a *authRegistry) login(username, password string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	stored, ok := a.users[username]
	if !ok {
		return "", errBadCredentials
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(hashPassword(password))) != 1 {
		return "", errBadCredentials
	}
	return a.issueLocked(username), nil
}

// lookup resolves a bearer token to its username.
func (a *authRegistry) lookup(token string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	user, ok := a.tokens[token]
	return user, ok
}

func (a *authRegistry) issueLocked(username string) string {
	token := uuid.New().String()
	a.tokens[token] = username
	return token
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
