package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"strider/internal/model"
)

// Mem keeps todos in per-owner slices. When a snapshot path is set, every
// mutation rewrites the file; human-readable JSON, no locking beyond the
// mutex. Fine for a single-process daemon.
type Mem struct {
	mu      sync.RWMutex
	byOwner map[string][]model.Todo
	path    string
}

// NewMem returns an in-memory store, loading an existing snapshot from
// path when one is present. Empty path disables snapshotting.
func NewMem(path string) (*Mem, error) {
	m := &Mem{byOwner: make(map[string][]model.Todo), path: path}
	if path == "" {
		return m, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if err := json.Unmarshal(b, &m.byOwner); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return m, nil
}

func (m *Mem) List(ctx context.Context, owner string) ([]model.Todo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.Todo(nil), m.byOwner[owner]...), nil
}

func (m *Mem) Create(ctx context.Context, owner, text string) (model.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	todo := model.Todo{ID: uuid.New().String(), Text: text}
	next := append(append([]model.Todo(nil), m.byOwner[owner]...), todo)
	if err := m.commitLocked(owner, next); err != nil {
		return model.Todo{}, err
	}
	return todo, nil
}

func (m *Mem) Toggle(ctx context.Context, owner, id string) (model.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	todos := m.byOwner[owner]
	for i := range todos {
		if todos[i].ID != id {
			continue
		}
		next := append([]model.Todo(nil), todos...)
		next[i].Done = !next[i].Done
		if err := m.commitLocked(owner, next); err != nil {
			return model.Todo{}, err
		}
		return next[i], nil
	}
	return model.Todo{}, ErrNotFound
}

func (m *Mem) Delete(ctx context.Context, owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	todos := m.byOwner[owner]
	for i := range todos {
		if todos[i].ID != id {
			continue
		}
		next := append(append([]model.Todo(nil), todos[:i]...), todos[i+1:]...)
		return m.commitLocked(owner, next)
	}
	return ErrNotFound
}

// commitLocked installs next for owner only once the snapshot write has
// succeeded, so a failed write leaves memory and disk in agreement.
func (m *Mem) commitLocked(owner string, next []model.Todo) error {
	prev, had := m.byOwner[owner]
	m.byOwner[owner] = next
	if err := m.persistLocked(); err != nil {
		if had {
			m.byOwner[owner] = prev
		} else {
			delete(m.byOwner, owner)
		}
		return err
	}
	return nil
}

func (m *Mem) persistLocked() error {
	if m.path == "" {
		return nil
	}
	b, err := json.MarshalIndent(m.byOwner, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if err := os.WriteFile(m.path, b, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
