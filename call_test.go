package servact

import (
	"context"
	"errors"
	"net/url"
	"testing"
)

func newTestCall(t *testing.T) *Call {
	t.Helper()
	def := mustAudit(t, accountIDL)
	m := mustMethod(t, def, "createAccount")
	msg, err := ComposeCall(m, url.Values{
		"username": {"johndoe"},
		"password": {"abc123"},
	})
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}
	return NewCall(context.Background(), m, msg, nil)
}

func TestCallOutcome(t *testing.T) {
	call := newTestCall(t)

	if call.Finished() {
		t.Error("fresh call should not be finished")
	}
	if _, ok := call.Outcome(); ok {
		t.Error("fresh call should have no outcome")
	}

	call.SetResult(map[string]any{"id": 42})

	if !call.Finished() {
		t.Error("call should be finished after SetResult")
	}
	outcome, ok := call.Outcome()
	if !ok || outcome.Kind != OutcomeResult {
		t.Fatalf("unexpected outcome: %v %v", outcome, ok)
	}
}

// Once any outcome key is set, setting a different one must fail loudly.
func TestCallOutcomeIsWriteOnce(t *testing.T) {
	tests := []struct {
		name   string
		first  func(*Call)
		second func(*Call)
	}{
		{"result then error", func(c *Call) { c.SetResult(1) }, func(c *Call) { c.SetError("nope") }},
		{"result then result", func(c *Call) { c.SetResult(1) }, func(c *Call) { c.SetResult(2) }},
		{"error then exception", func(c *Call) { c.SetError("x") }, func(c *Call) { c.SetException("y") }},
		{"exception then result", func(c *Call) { c.SetException("y") }, func(c *Call) { c.SetResult(1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := newTestCall(t)
			tt.first(call)

			defer func() {
				rec := recover()
				if rec == nil {
					t.Fatal("expected second outcome write to panic")
				}
				stateErr, ok := rec.(*StateError)
				if !ok {
					t.Fatalf("expected *StateError, got %T", rec)
				}
				if stateErr.Method != "createAccount" {
					t.Errorf("unexpected method in state error: %s", stateErr.Method)
				}
			}()
			tt.second(call)
		})
	}
}

func TestCallAccessors(t *testing.T) {
	call := newTestCall(t)

	if call.Method().Name != "createAccount" {
		t.Errorf("unexpected method: %s", call.Method().Name)
	}
	if call.Message().String("username") != "johndoe" {
		t.Errorf("unexpected message value")
	}
	if call.Context() == nil {
		t.Error("expected non-nil context")
	}
	if call.Logger() == nil {
		t.Error("expected non-nil logger")
	}
}

func TestStateErrorMessage(t *testing.T) {
	err := &StateError{Method: "m", Existing: OutcomeResult, Attempt: OutcomeError}
	if got := err.Error(); got != "call to m already finished with result; refusing to set error" {
		t.Errorf("unexpected message: %q", got)
	}
	var target *StateError
	if !errors.As(error(err), &target) {
		t.Error("StateError should satisfy errors.As")
	}
}
