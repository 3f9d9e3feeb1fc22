// Package state holds the client-side view of one user's todo list. A List
// is the single source of truth for the todos a view renders; it mediates
// every remote call and exposes derived read-only projections.
//
// Mutations of existing items (Toggle, Delete) are optimistic: the local
// change lands immediately and is rolled back from a pre-mutation snapshot
// if the remote call fails. Add is confirm-then-append because ids are
// server-assigned and no placeholder ids are used, so a successful create
// can never produce a duplicate entry.
package state

import (
	"context"
	"strings"
	"sync"

	"strider/internal/gateway"
	"strider/internal/model"
	"strider/internal/report"
)

type List struct {
	mu      sync.Mutex
	gw      gateway.Gateway
	todos   []model.Todo
	input   string
	filter  model.Filter
	loading bool
	lastErr string
}

// Snapshot is a consistent copy of the container state for rendering.
type Snapshot struct {
	Todos   []model.Todo
	Input   string
	Filter  model.Filter
	Loading bool
	Err     string
}

func New(gw gateway.Gateway) *List {
	return &List{gw: gw}
}

// Load replaces the list wholesale from the server. On failure the local
// list is left untouched and the error is recorded. Repeated loads against
// an unchanged server converge to the same list.
func (l *List) Load(ctx context.Context) error {
	l.mu.Lock()
	l.loading = true
	l.lastErr = ""
	l.mu.Unlock()

	resp, err := l.gw.Call(ctx, gateway.Request{Op: gateway.OpReadTodos})

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading = false
	if err != nil {
		l.lastErr = "load todos: " + err.Error()
		return err
	}
	todos, err := report.Decode[model.Todo](resp.Reports)
	if err != nil {
		l.lastErr = "load todos: " + err.Error()
		return err
	}
	l.todos = todos
	return nil
}

// Add creates a todo from the trimmed text. Empty text is a silent no-op:
// no remote call, no error. On success the server-returned todo (with its
// assigned id) is appended and the pending input is cleared. On failure the
// server's side effect is unknown, so the list is resynchronized with a
// full Load before the error is recorded.
func (l *List) Add(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	resp, err := l.gw.Call(ctx, gateway.Request{
		Op:      gateway.OpCreateTodo,
		Payload: map[string]any{"text": text},
	})
	if err != nil {
		_ = l.Load(ctx)
		l.mu.Lock()
		l.lastErr = "add todo: " + err.Error()
		l.mu.Unlock()
		return err
	}

	todos, err := report.Decode[model.Todo](resp.Reports)
	if err != nil {
		l.mu.Lock()
		l.lastErr = "add todo: " + err.Error()
		l.mu.Unlock()
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(todos) > 0 {
		l.todos = append(l.todos, todos[0])
	}
	l.input = ""
	l.lastErr = ""
	return nil
}

// Toggle flips the done flag. The flip is applied locally before the remote
// call resolves and rolled back if it fails.
func (l *List) Toggle(ctx context.Context, id string) error {
	l.mu.Lock()
	flipped := false
	if i := l.indexLocked(id); i >= 0 {
		l.todos[i].Done = !l.todos[i].Done
		flipped = true
	}
	l.mu.Unlock()

	_, err := l.gw.Call(ctx, gateway.Request{Op: gateway.OpToggleTodo, NodeID: id})

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		if flipped {
			if i := l.indexLocked(id); i >= 0 {
				l.todos[i].Done = !l.todos[i].Done
			}
		}
		l.lastErr = "toggle todo: " + err.Error()
		return err
	}
	l.lastErr = ""
	return nil
}

// Delete removes the todo. The removal is applied locally before the remote
// call resolves; a failed call restores the entry at its former position,
// so a todo the server still knows stays visible.
func (l *List) Delete(ctx context.Context, id string) error {
	l.mu.Lock()
	var removed model.Todo
	removedAt := l.indexLocked(id)
	if removedAt >= 0 {
		removed = l.todos[removedAt]
		l.todos = append(l.todos[:removedAt], l.todos[removedAt+1:]...)
	}
	l.mu.Unlock()

	_, err := l.gw.Call(ctx, gateway.Request{Op: gateway.OpDeleteTodo, NodeID: id})

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		if removedAt >= 0 {
			at := removedAt
			if at > len(l.todos) {
				at = len(l.todos)
			}
			l.todos = append(l.todos[:at], append([]model.Todo{removed}, l.todos[at:]...)...)
		}
		l.lastErr = "delete todo: " + err.Error()
		return err
	}
	l.lastErr = ""
	return nil
}

// ClearCompleted drops every done entry from the local list. It issues no
// delete-calls; the server copy is untouched and a later Load brings the
// entries back.
func (l *List) ClearCompleted() {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.todos[:0]
	for _, t := range l.todos {
		if !t.Done {
			kept = append(kept, t)
		}
	}
	l.todos = kept
}

// SetInput stores the pending (uncommitted) text for a new todo and clears
// the last error.
func (l *List) SetInput(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.input = text
	l.lastErr = ""
}

func (l *List) SetFilter(f model.Filter) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.filter = f
}

// Todos returns a copy of the full list in server order.
func (l *List) Todos() []model.Todo {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Todo(nil), l.todos...)
}

// Filtered returns the subsequence of todos passing the active filter,
// preserving order.
func (l *List) Filtered() []model.Todo {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.Todo, 0, len(l.todos))
	for _, t := range l.todos {
		if l.filter.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// ActiveCount is the number of not-done entries.
func (l *List) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, t := range l.todos {
		if !t.Done {
			n++
		}
	}
	return n
}

// HasCompleted reports whether any entry is done.
func (l *List) HasCompleted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range l.todos {
		if t.Done {
			return true
		}
	}
	return false
}

func (l *List) Input() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.input
}

func (l *List) Filter() model.Filter {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filter
}

func (l *List) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// Err is the last remote failure, empty after a successful operation or a
// user edit of the input.
func (l *List) Err() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

func (l *List) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		Todos:   append([]model.Todo(nil), l.todos...),
		Input:   l.input,
		Filter:  l.filter,
		Loading: l.loading,
		Err:     l.lastErr,
	}
}

func (l *List) indexLocked(id string) int {
	for i, t := range l.todos {
		if t.ID == id {
			return i
		}
	}
	return -1
}
