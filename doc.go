// Package servact exposes RPC methods described by an IDL document as
// individually invocable HTTP handlers.
//
// The lifecycle has two phases. At startup, [Audit] parses and verifies the
// IDL document, producing an immutable [ServiceDefinition]; any violation is
// fatal and the service never starts. Per request, the bound handler
// composes the raw parameters into a typed [CallMessage], runs the method's
// registered [Action] queue against a fresh [Call] until exactly one outcome
// is recorded, validates the outcome against the declared return type, and
// writes the response envelope.
//
//	def, err := servact.Audit(src)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	handlers := servact.NewHandlerSet("AccountService").
//	    Method("createAccount", servact.ActionFunc(createAccount))
//
//	app := servact.NewApp(def)
//	if err := app.Register(handlers); err != nil {
//	    log.Fatal(err)
//	}
//	h, err := app.Handler()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	http.ListenAndServe(":8080", h)
//
// Actions record their terminal state through the call's write-once outcome
// cell: [Call.SetResult], [Call.SetException], or [Call.SetError]. Setting a
// second outcome is a handler bug and fails the call loudly. A queue that
// finishes without any outcome is reported as a distinct handler-incomplete
// failure, never as an empty result.
package servact
