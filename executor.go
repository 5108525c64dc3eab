package servact

import (
	"log/slog"
	"runtime/debug"
)

// Execute runs a call's actions strictly in order until one records an
// outcome, and returns that outcome.
//
// Failure modes, each distinct so the boundary can classify them:
//   - the queue is exhausted without an outcome: the handler never
//     completed the call, returned as a CodeHandlerIncomplete error
//     rather than an empty result;
//   - an action sets a second outcome: the *StateError panic from the
//     write-once cell is recovered and returned as the call's failure;
//   - an action panics for any other reason: recovered, logged with the
//     stack attributed to the method's handler, returned as internal.
//
// Each call owns its Call and message, so concurrent calls need no
// synchronization; within one call, actions never run concurrently.
func Execute(call *Call, actions []Action) (Outcome, error) {
	for _, action := range actions {
		if err := runAction(call, action); err != nil {
			return Outcome{}, err
		}
		if call.Finished() {
			break
		}
	}

	outcome, ok := call.Outcome()
	if !ok {
		return Outcome{}, Errorf(CodeHandlerIncomplete,
			"handler for %s.%s ran %d action(s) without recording an outcome",
			call.Method().service.Name, call.Method().Name, len(actions))
	}
	return outcome, nil
}

func runAction(call *Call, action Action) (err error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if stateErr, ok := rec.(*StateError); ok {
			err = stateErr
			return
		}
		call.Logger().Error("action panicked",
			slog.Any("panic", rec),
			slog.String("stack", string(debug.Stack())))
		err = Errorf(CodeInternal, "action panicked: %v", rec)
	}()

	action.Run(call)
	return nil
}
