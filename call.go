package servact

import (
	"context"
	"log/slog"
)

// OutcomeKind tags the terminal state of a call.
type OutcomeKind int

const (
	// OutcomeResult is a successful result value, validated against the
	// method's return type before it reaches the client.
	OutcomeResult OutcomeKind = iota
	// OutcomeException is a typed application condition reported by an
	// action.
	OutcomeException
	// OutcomeError is an application-level error message reported by an
	// action.
	OutcomeError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeResult:
		return "result"
	case OutcomeException:
		return "exception"
	case OutcomeError:
		return "error"
	}
	return "unknown"
}

// Outcome is the resolved terminal state of one call: exactly one of a
// result value, a typed exception value, or an error message.
type Outcome struct {
	Kind    OutcomeKind
	Value   any    // result or exception value
	Message string // error message, set only for OutcomeError
}

// Call is the unit of work for one invocation. It associates the composed
// CallMessage with its MethodDefinition, carries the per-call diagnostic
// logger handed to every action, and owns the write-once outcome cell.
//
// A Call is created fresh per request and never shared between requests;
// it is not safe for concurrent use by multiple goroutines.
type Call struct {
	ctx    context.Context
	msg    *CallMessage
	def    *MethodDefinition
	logger *slog.Logger

	outcome *Outcome // write-once; nil until an action sets it
}

// NewCall creates a call for one invocation of a method.
func NewCall(ctx context.Context, def *MethodDefinition, msg *CallMessage, logger *slog.Logger) *Call {
	if logger == nil {
		logger = slog.Default()
	}
	return &Call{
		ctx:    ctx,
		msg:    msg,
		def:    def,
		logger: logger.With(slog.String("service", def.service.Name), slog.String("method", def.Name)),
	}
}

// Context returns the request context for the call.
func (c *Call) Context() context.Context { return c.ctx }

// Message returns the validated call message.
func (c *Call) Message() *CallMessage { return c.msg }

// Method returns the definition of the method being invoked.
func (c *Call) Method() *MethodDefinition { return c.def }

// Logger returns the per-call diagnostic logger. Anything an action wants
// observed but not returned goes here; output is attributed to the service
// and method rather than discarded.
func (c *Call) Logger() *slog.Logger { return c.logger }

// SetResult records a successful result value as the call's outcome.
func (c *Call) SetResult(v any) {
	c.set(Outcome{Kind: OutcomeResult, Value: v})
}

// SetException records a typed application condition as the call's outcome.
func (c *Call) SetException(v any) {
	c.set(Outcome{Kind: OutcomeException, Value: v})
}

// SetError records an application error message as the call's outcome.
func (c *Call) SetError(msg string) {
	c.set(Outcome{Kind: OutcomeError, Message: msg})
}

// set enforces the write-once invariant. The outcome is a single tagged
// cell, not three independent fields, so mutual exclusivity is structural:
// the only way to violate it is a second write, which panics with a
// *StateError that the executor recovers and surfaces as the call failure.
func (c *Call) set(o Outcome) {
	if c.outcome != nil {
		panic(&StateError{
			Method:   c.def.Name,
			Existing: c.outcome.Kind,
			Attempt:  o.Kind,
		})
	}
	c.outcome = &o
}

// Finished reports whether an outcome has been recorded.
func (c *Call) Finished() bool { return c.outcome != nil }

// Outcome returns the recorded outcome, if any.
func (c *Call) Outcome() (Outcome, bool) {
	if c.outcome == nil {
		return Outcome{}, false
	}
	return *c.outcome, true
}
