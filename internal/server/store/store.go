// Package store is the walker server's todo storage. Every operation is
// scoped to an owner: the store never returns one user's todos to another.
package store

import (
	"context"
	"errors"

	"strider/internal/model"
)

var ErrNotFound = errors.New("todo not found")

type Store interface {
	// List returns the owner's todos in creation order.
	List(ctx context.Context, owner string) ([]model.Todo, error)
	// Create stores a new todo and returns it with its assigned id.
	Create(ctx context.Context, owner, text string) (model.Todo, error)
	// Toggle flips the done flag and returns the updated todo.
	Toggle(ctx context.Context, owner, id string) (model.Todo, error)
	// Delete removes the todo. ErrNotFound if the owner has no such id.
	Delete(ctx context.Context, owner, id string) error
}
