package servact

// Action is one unit of handler business logic. Actions registered for a
// method run strictly in order against the same Call until one of them
// records an outcome; remaining actions are skipped.
//
// An action may read the call message, perform side effects, and set at
// most one outcome. Blocking work is fine; the executor waits for each
// action to return before running the next.
type Action interface {
	Run(c *Call)
}

// ActionFunc adapts a function to the Action interface.
type ActionFunc func(c *Call)

// Run calls f(c).
func (f ActionFunc) Run(c *Call) { f(c) }
