package servact

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"sync"

	"github.com/go-chi/chi/v5"
)

// App binds an audited ServiceDefinition to handler actions and derives an
// HTTP handler for it. Configure with the With* builders, register exactly
// one HandlerSet, then mount Handler().
//
// The definition is read-only and the action table is frozen once
// Handler() is built, so request handling shares no mutable state and is
// safe for concurrent invocations.
type App struct {
	mu                 sync.Mutex
	def                *ServiceDefinition
	actions            map[string][]Action
	logger             *slog.Logger
	errorTransformer   ErrorTransformer
	maskInternalErrors bool
	interceptors       []Interceptor
	middlewares        []func(http.Handler) http.Handler
}

// NewApp creates an App for an audited service definition.
func NewApp(def *ServiceDefinition) *App {
	return &App{def: def}
}

// WithLogger sets the logger used for per-call diagnostics.
// If not set, slog.Default() will be used.
func (a *App) WithLogger(logger *slog.Logger) *App {
	a.logger = logger
	return a
}

// WithErrorTransformer adds a custom error transformer.
// It returns the app for chaining.
func (a *App) WithErrorTransformer(fn ErrorTransformer) *App {
	a.errorTransformer = fn
	return a
}

// WithMaskInternalErrors enables masking of internal error messages.
// This is useful in production to avoid leaking sensitive information.
func (a *App) WithMaskInternalErrors() *App {
	a.maskInternalErrors = true
	return a
}

// WithInterceptor adds an interceptor around action execution.
// Interceptors execute in the order they were added.
func (a *App) WithInterceptor(i Interceptor) *App {
	a.interceptors = append(a.interceptors, i)
	return a
}

// WithMiddleware adds an HTTP middleware to wrap the app.
// Middleware is applied in the order added (first added is outermost).
func (a *App) WithMiddleware(mw func(http.Handler) http.Handler) *App {
	a.middlewares = append(a.middlewares, mw)
	return a
}

// HandlerSet declares the actions implementing a service: a service name
// that must match the audited definition exactly, and an ordered action
// list per method.
type HandlerSet struct {
	service string
	methods map[string][]Action
}

// NewHandlerSet creates a handler set for the named service.
func NewHandlerSet(service string) *HandlerSet {
	return &HandlerSet{
		service: service,
		methods: make(map[string][]Action),
	}
}

// Method sets the ordered action list for one method, replacing any
// previous list for that name.
func (h *HandlerSet) Method(name string, actions ...Action) *HandlerSet {
	h.methods[name] = actions
	return h
}

// Register binds a handler set to the app's definition.
//
// Binding is checked eagerly and every violation is fatal: a mismatched
// service name or a definition method with no registered actions rejects
// startup. The reverse is deliberately lax: methods registered here that
// the definition does not declare are ignored with a warning, which allows
// a handler to stay ahead of the schema during development. Missing
// methods reject, extra methods do not.
func (a *App) Register(h *HandlerSet) error {
	if h.service != a.def.Name {
		return &BindingError{
			Service: h.service,
			Msg:     fmt.Sprintf("declared service %q does not match audited definition %q", h.service, a.def.Name),
		}
	}

	var errs []error
	for _, m := range a.def.Methods {
		if len(h.methods[m.Name]) == 0 {
			errs = append(errs, &BindingError{
				Service: h.service,
				Method:  m.Name,
				Msg:     "no actions registered",
			})
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	for name := range h.methods {
		if _, ok := a.def.Method(name); !ok {
			a.log().Warn("ignoring actions for undeclared method",
				slog.String("service", h.service),
				slog.String("method", name))
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = make(map[string][]Action, len(a.def.Methods))
	for _, m := range a.def.Methods {
		a.actions[m.Name] = h.methods[m.Name]
	}
	return nil
}

// Handler mounts one route per audited method at its REST binding and
// returns the resulting http.Handler with all configured middleware
// applied. Register must have been called first.
func (a *App) Handler() (http.Handler, error) {
	a.mu.Lock()
	actions := a.actions
	a.mu.Unlock()
	if actions == nil {
		return nil, &BindingError{Service: a.def.Name, Msg: "no handler registered"}
	}

	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		a.writeFailure(w, NewError(CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		a.writeFailure(w, Errorf(CodeMethodNotAllowed, "method %s not allowed", req.Method))
	})
	for _, m := range a.def.Methods {
		r.Method(m.Verb, m.Path, a.methodHandler(m, actions[m.Name]))
	}

	var h http.Handler = r
	// Apply middleware in reverse order so first added is outermost.
	for i := len(a.middlewares) - 1; i >= 0; i-- {
		h = a.middlewares[i](h)
	}
	return h, nil
}

// methodHandler builds the boundary adapter for one method: extract raw
// parameters, compose the call message, execute actions, adapt the outcome.
func (a *App) methodHandler(def *MethodDefinition, actions []Action) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				a.log().Error("panic recovered",
					slog.String("method", def.Name),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())))
				a.writeFailure(w, Errorf(CodeInternal, "internal server error (panic): %v", rec))
			}
		}()

		raw, err := rawParams(req)
		if err != nil {
			a.writeFailure(w, Errorf(CodeInvalidArgument, "parse parameters: %v", err))
			return
		}

		msg, err := ComposeCall(def, raw)
		if err != nil {
			a.writeFailure(w, err)
			return
		}

		call := NewCall(req.Context(), def, msg, a.logger)
		exec := chainInterceptors(a.interceptors, func(c *Call) (Outcome, error) {
			return Execute(c, actions)
		})

		outcome, err := exec(call)
		if err != nil {
			a.writeFailure(w, err)
			return
		}

		switch outcome.Kind {
		case OutcomeResult:
			reply, err := ComposeReply(def, outcome.Value)
			if err != nil {
				a.writeFailure(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			if err := encodeResponse(w, reply); err != nil {
				a.log().Error("failed to encode response",
					slog.String("method", def.Name),
					slog.Any("error", err))
			}
		case OutcomeException:
			a.writeFailure(w, Errorf(CodeApplicationException,
				"%s raised an exception", def.Name).WithDetail("value", outcome.Value))
		case OutcomeError:
			a.writeFailure(w, NewError(CodeApplicationError, outcome.Message))
		}
	}
}

// rawParams merges query string, form body, and path parameters into the
// single name-to-values mapping the message adapter composes from.
func rawParams(req *http.Request) (url.Values, error) {
	if err := req.ParseForm(); err != nil {
		return nil, err
	}
	raw := make(url.Values, len(req.Form))
	for k, vs := range req.Form {
		raw[k] = vs
	}
	if rctx := chi.RouteContext(req.Context()); rctx != nil {
		for i, key := range rctx.URLParams.Keys {
			raw.Set(key, rctx.URLParams.Values[i])
		}
	}
	return raw, nil
}

func (a *App) log() *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return slog.Default()
}

func (a *App) writeFailure(w http.ResponseWriter, err error) {
	var svcErr *Error
	if a.errorTransformer != nil {
		svcErr = a.errorTransformer(err)
	}
	if svcErr == nil {
		svcErr = DefaultErrorTransformer(err)
	}
	if a.maskInternalErrors && svcErr.Code == CodeInternal {
		svcErr = NewError(CodeInternal, "internal server error")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(svcErr.Code.HTTPStatus())
	if encErr := encodeErrorResponse(w, svcErr); encErr != nil {
		a.log().Error("failed to encode error response",
			slog.String("code", string(svcErr.Code)),
			slog.Any("error", encErr))
	}
}
