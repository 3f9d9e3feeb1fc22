package gateway

import (
	"context"
	"fmt"

	"strider/internal/report"
)

// Walker operations understood by the backend.
const (
	OpReadTodos     = "read_todos"
	OpCreateTodo    = "create_todo"
	OpToggleTodo    = "toggle_todo"
	OpDeleteTodo    = "delete_todo"
	OpServerMessage = "get_server_message"
)

// Request names a walker operation, an optional target node id, and a
// payload mapping.
type Request struct {
	Op      string
	NodeID  string
	Payload map[string]any
}

// Response is what a walker returns: zero or more report entries.
type Response struct {
	Reports report.Value `json:"reports"`
}

// Gateway dispatches named backend operations and returns their reports.
type Gateway interface {
	Call(ctx context.Context, req Request) (*Response, error)
}

// CallError is a rejected remote call. No structured error-code taxonomy
// exists beyond the HTTP status; Message is human-readable.
type CallError struct {
	Op      string
	Status  int
	Message string
}

func (e *CallError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: server returned status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}
