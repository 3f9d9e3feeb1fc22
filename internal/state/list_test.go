package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"strider/internal/gateway"
	"strider/internal/model"
	"strider/internal/report"
)

// fakeGateway records every request and answers through a swappable handler.
type fakeGateway struct {
	mu      sync.Mutex
	calls   []gateway.Request
	handler func(req gateway.Request) (*gateway.Response, error)
}

func (g *fakeGateway) Call(ctx context.Context, req gateway.Request) (*gateway.Response, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	h := g.handler
	g.mu.Unlock()
	if h == nil {
		return &gateway.Response{}, nil
	}
	return h(req)
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *fakeGateway) lastOp() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.calls) == 0 {
		return ""
	}
	return g.calls[len(g.calls)-1].Op
}

func reportsOf(t *testing.T, payload any) report.Value {
	t.Helper()
	v, err := report.Of(payload)
	if err != nil {
		t.Fatalf("report.Of: %v", err)
	}
	return v
}

// serverFake behaves like the real backend: assigns ids, answers
// read_todos with the full list.
type serverFake struct {
	mu    sync.Mutex
	next  int
	todos []model.Todo
}

func (s *serverFake) handle(t *testing.T) func(gateway.Request) (*gateway.Response, error) {
	return func(req gateway.Request) (*gateway.Response, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		switch req.Op {
		case gateway.OpReadTodos:
			return &gateway.Response{Reports: reportsOf(t, s.todos)}, nil
		case gateway.OpCreateTodo:
			s.next++
			todo := model.Todo{ID: fmt.Sprintf("t%d", s.next), Text: req.Payload["text"].(string)}
			s.todos = append(s.todos, todo)
			return &gateway.Response{Reports: reportsOf(t, []model.Todo{todo})}, nil
		case gateway.OpToggleTodo:
			for i := range s.todos {
				if s.todos[i].ID == req.NodeID {
					s.todos[i].Done = !s.todos[i].Done
					return &gateway.Response{Reports: reportsOf(t, []model.Todo{s.todos[i]})}, nil
				}
			}
			return nil, &gateway.CallError{Op: req.Op, Status: 404, Message: "todo not found"}
		case gateway.OpDeleteTodo:
			for i := range s.todos {
				if s.todos[i].ID == req.NodeID {
					s.todos = append(s.todos[:i], s.todos[i+1:]...)
					return &gateway.Response{}, nil
				}
			}
			return nil, &gateway.CallError{Op: req.Op, Status: 404, Message: "todo not found"}
		}
		return nil, &gateway.CallError{Op: req.Op, Status: 404, Message: "unknown walker"}
	}
}

func TestAddGrowsInCallOrderWithDistinctIDs(t *testing.T) {
	srv := &serverFake{}
	gw := &fakeGateway{handler: srv.handle(t)}
	l := New(gw)
	ctx := context.Background()

	for _, text := range []string{"buy milk", "walk dog", "write tests"} {
		if err := l.Add(ctx, text); err != nil {
			t.Fatalf("Add(%q): %v", text, err)
		}
	}

	todos := l.Todos()
	if len(todos) != 3 {
		t.Fatalf("len(todos) = %d, want 3", len(todos))
	}
	seen := map[string]bool{}
	for i, want := range []string{"buy milk", "walk dog", "write tests"} {
		if todos[i].Text != want {
			t.Errorf("todos[%d].Text = %q, want %q", i, todos[i].Text, want)
		}
		if todos[i].ID == "" || seen[todos[i].ID] {
			t.Errorf("todos[%d].ID = %q, want distinct non-empty", i, todos[i].ID)
		}
		seen[todos[i].ID] = true
	}
}

func TestAddBlankIsSilentNoOp(t *testing.T) {
	gw := &fakeGateway{}
	l := New(gw)
	ctx := context.Background()

	for _, text := range []string{"", "   ", "\t\n"} {
		if err := l.Add(ctx, text); err != nil {
			t.Fatalf("Add(%q): %v", text, err)
		}
	}
	if gw.callCount() != 0 {
		t.Errorf("gateway called %d times, want 0", gw.callCount())
	}
	if len(l.Todos()) != 0 {
		t.Errorf("todos changed on blank add")
	}
	if l.Loading() {
		t.Errorf("loading set on blank add")
	}
	if l.Err() != "" {
		t.Errorf("error set on blank add: %q", l.Err())
	}
}

func TestAddScenarioBuyMilk(t *testing.T) {
	gw := &fakeGateway{handler: func(req gateway.Request) (*gateway.Response, error) {
		return &gateway.Response{Reports: reportsOf(t, []model.Todo{{ID: "t1", Text: "buy milk"}})}, nil
	}}
	l := New(gw)
	l.SetInput("buy milk")
	if err := l.Add(context.Background(), l.Input()); err != nil {
		t.Fatalf("Add: %v", err)
	}
	want := []model.Todo{{ID: "t1", Text: "buy milk", Done: false}}
	if diff := cmp.Diff(want, l.Todos()); diff != "" {
		t.Errorf("todos mismatch (-want +got):\n%s", diff)
	}
	if l.Input() != "" {
		t.Errorf("input = %q, want cleared", l.Input())
	}
}

func TestAddFailureResyncsAndRecordsError(t *testing.T) {
	serverTruth := []model.Todo{{ID: "t9", Text: "already there"}}
	gw := &fakeGateway{}
	gw.handler = func(req gateway.Request) (*gateway.Response, error) {
		switch req.Op {
		case gateway.OpCreateTodo:
			return nil, errors.New("boom")
		case gateway.OpReadTodos:
			return &gateway.Response{Reports: reportsOf(t, serverTruth)}, nil
		}
		return nil, errors.New("unexpected op " + req.Op)
	}
	l := New(gw)
	if err := l.Add(context.Background(), "doomed"); err == nil {
		t.Fatal("Add succeeded, want error")
	}
	if gw.lastOp() != gateway.OpReadTodos {
		t.Errorf("no resync load after failed create, last op %q", gw.lastOp())
	}
	if diff := cmp.Diff(serverTruth, l.Todos()); diff != "" {
		t.Errorf("resynced todos mismatch (-want +got):\n%s", diff)
	}
	if l.Err() == "" {
		t.Error("error not recorded after failed add")
	}
}

func TestLoadIdempotent(t *testing.T) {
	srv := &serverFake{todos: []model.Todo{
		{ID: "t1", Text: "a"},
		{ID: "t2", Text: "b", Done: true},
	}}
	gw := &fakeGateway{handler: srv.handle(t)}
	l := New(gw)
	ctx := context.Background()

	if err := l.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	first := l.Todos()
	if err := l.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(first, l.Todos()); diff != "" {
		t.Errorf("repeated load diverged (-first +second):\n%s", diff)
	}
}

func TestLoadFlattensNestedReports(t *testing.T) {
	gw := &fakeGateway{handler: func(req gateway.Request) (*gateway.Response, error) {
		return &gateway.Response{Reports: reportsOf(t, []any{
			[]model.Todo{{ID: "t1", Text: "a"}, {ID: "t2", Text: "b"}},
			model.Todo{ID: "t3", Text: "c"},
		})}, nil
	}}
	l := New(gw)
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	todos := l.Todos()
	if len(todos) != 3 {
		t.Fatalf("len(todos) = %d, want 3", len(todos))
	}
	for i, want := range []string{"t1", "t2", "t3"} {
		if todos[i].ID != want {
			t.Errorf("todos[%d].ID = %q, want %q", i, todos[i].ID, want)
		}
	}
}

func TestLoadFailureKeepsLocalList(t *testing.T) {
	srv := &serverFake{todos: []model.Todo{{ID: "t1", Text: "a"}}}
	gw := &fakeGateway{handler: srv.handle(t)}
	l := New(gw)
	ctx := context.Background()
	if err := l.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	gw.handler = func(req gateway.Request) (*gateway.Response, error) {
		return nil, errors.New("network down")
	}
	if err := l.Load(ctx); err == nil {
		t.Fatal("Load succeeded, want error")
	}
	if len(l.Todos()) != 1 {
		t.Errorf("todos changed on failed load: %v", l.Todos())
	}
	if l.Err() == "" {
		t.Error("error not recorded")
	}
	if l.Loading() {
		t.Error("loading still set after failed load")
	}
}

func TestFilterPartition(t *testing.T) {
	srv := &serverFake{todos: []model.Todo{
		{ID: "t1", Text: "a"},
		{ID: "t2", Text: "b", Done: true},
		{ID: "t3", Text: "c"},
		{ID: "t4", Text: "d", Done: true},
	}}
	l := New(&fakeGateway{handler: srv.handle(t)})
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	l.SetFilter(model.FilterAll)
	if diff := cmp.Diff(l.Todos(), l.Filtered()); diff != "" {
		t.Errorf("filter all != todos (-todos +filtered):\n%s", diff)
	}

	l.SetFilter(model.FilterActive)
	active := l.Filtered()
	l.SetFilter(model.FilterCompleted)
	completed := l.Filtered()

	for _, todo := range active {
		if todo.Done {
			t.Errorf("active filter returned done todo %q", todo.ID)
		}
	}
	for _, todo := range completed {
		if !todo.Done {
			t.Errorf("completed filter returned pending todo %q", todo.ID)
		}
	}
	if len(active)+len(completed) != len(l.Todos()) {
		t.Errorf("active (%d) + completed (%d) do not partition todos (%d)",
			len(active), len(completed), len(l.Todos()))
	}
	if l.ActiveCount() != len(active) {
		t.Errorf("ActiveCount = %d, want %d", l.ActiveCount(), len(active))
	}
	if !l.HasCompleted() {
		t.Error("HasCompleted = false with done entries present")
	}
}

func TestToggleIsOptimisticallyVisible(t *testing.T) {
	release := make(chan error)
	gw := &fakeGateway{handler: func(req gateway.Request) (*gateway.Response, error) {
		if req.Op == gateway.OpReadTodos {
			return &gateway.Response{Reports: reportsOf(t, []model.Todo{{ID: "t1", Text: "a"}})}, nil
		}
		return &gateway.Response{}, <-release
	}}
	l := New(gw)
	ctx := context.Background()
	if err := l.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- l.Toggle(ctx, "t1") }()

	// The flip must be visible while the remote call is still in flight.
	deadline := time.Now().Add(2 * time.Second)
	for !l.Todos()[0].Done {
		if time.Now().After(deadline) {
			t.Fatal("toggle not applied optimistically")
		}
		time.Sleep(time.Millisecond)
	}

	release <- nil
	if err := <-done; err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !l.Todos()[0].Done {
		t.Error("done flag lost after confirmation")
	}
}

func TestToggleRollsBackOnFailure(t *testing.T) {
	gw := &fakeGateway{handler: func(req gateway.Request) (*gateway.Response, error) {
		if req.Op == gateway.OpReadTodos {
			return &gateway.Response{Reports: reportsOf(t, []model.Todo{{ID: "t1", Text: "a"}})}, nil
		}
		return nil, errors.New("server rejected")
	}}
	l := New(gw)
	ctx := context.Background()
	if err := l.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := l.Toggle(ctx, "t1"); err == nil {
		t.Fatal("Toggle succeeded, want error")
	}
	if l.Todos()[0].Done {
		t.Error("flip not rolled back after failed toggle")
	}
	if l.Err() == "" {
		t.Error("error not recorded")
	}
}

func TestDeleteRemovesOnSuccess(t *testing.T) {
	srv := &serverFake{todos: []model.Todo{{ID: "t1", Text: "a"}, {ID: "t2", Text: "b"}}}
	l := New(&fakeGateway{handler: srv.handle(t)})
	ctx := context.Background()
	if err := l.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := l.Delete(ctx, "t1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	todos := l.Todos()
	if len(todos) != 1 || todos[0].ID != "t2" {
		t.Errorf("todos = %v, want [t2]", todos)
	}
}

func TestDeleteRestoresOnFailure(t *testing.T) {
	gw := &fakeGateway{handler: func(req gateway.Request) (*gateway.Response, error) {
		if req.Op == gateway.OpReadTodos {
			return &gateway.Response{Reports: reportsOf(t, []model.Todo{
				{ID: "t1", Text: "a"},
				{ID: "t2", Text: "b"},
				{ID: "t3", Text: "c"},
			})}, nil
		}
		return nil, errors.New("server rejected")
	}}
	l := New(gw)
	ctx := context.Background()
	if err := l.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := l.Delete(ctx, "t2"); err == nil {
		t.Fatal("Delete succeeded, want error")
	}
	todos := l.Todos()
	if len(todos) != 3 || todos[1].ID != "t2" {
		t.Errorf("todos = %v, want t2 restored at position 1", todos)
	}
	if l.Err() == "" {
		t.Error("error not recorded")
	}
}

func TestClearCompletedIsLocalOnly(t *testing.T) {
	srv := &serverFake{todos: []model.Todo{
		{ID: "t1", Text: "a", Done: true},
		{ID: "t2", Text: "b"},
	}}
	gw := &fakeGateway{handler: srv.handle(t)}
	l := New(gw)
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	before := gw.callCount()

	l.ClearCompleted()

	todos := l.Todos()
	if len(todos) != 1 || todos[0].ID != "t2" {
		t.Errorf("todos = %v, want [t2]", todos)
	}
	if gw.callCount() != before {
		t.Errorf("ClearCompleted issued %d gateway calls, want 0", gw.callCount()-before)
	}
}

func TestSetInputClearsError(t *testing.T) {
	gw := &fakeGateway{handler: func(req gateway.Request) (*gateway.Response, error) {
		return nil, errors.New("down")
	}}
	l := New(gw)
	_ = l.Load(context.Background())
	if l.Err() == "" {
		t.Fatal("expected a recorded error")
	}
	l.SetInput("new text")
	if l.Err() != "" {
		t.Errorf("error survived input edit: %q", l.Err())
	}
}
