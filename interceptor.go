package servact

// ExecFunc represents the next stage in an interceptor chain. It is passed
// to Interceptor functions to invoke the next interceptor or the action
// executor itself.
type ExecFunc func(call *Call) (Outcome, error)

// Interceptor is a hook that wraps action execution for one call.
//
//	func timing(call *servact.Call, next servact.ExecFunc) (servact.Outcome, error) {
//	    start := time.Now()
//	    outcome, err := next(call)
//	    call.Logger().Info("call finished", slog.Duration("duration", time.Since(start)))
//	    return outcome, err
//	}
//
// Interceptors can inspect the call before invoking next, inspect the
// outcome after, or short-circuit by returning an error without calling
// next. They run after the call message has been composed, so a malformed
// request never reaches them.
type Interceptor func(call *Call, next ExecFunc) (Outcome, error)

// chainInterceptors combines multiple interceptors into a single ExecFunc
// around exec. The first interceptor in the slice is the outermost one.
func chainInterceptors(interceptors []Interceptor, exec ExecFunc) ExecFunc {
	chain := exec
	for i := len(interceptors) - 1; i >= 0; i-- {
		current, next := interceptors[i], chain
		chain = func(call *Call) (Outcome, error) {
			return current(call, next)
		}
	}
	return chain
}
