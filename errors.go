package servact

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorCode represents a machine-readable error code.
type ErrorCode string

const (
	// CodeInvalidArgument marks a request whose raw parameters failed to
	// compose into a valid call message. A client-input failure; no action
	// ever ran.
	CodeInvalidArgument ErrorCode = "invalid_argument"

	// CodeApplicationException marks an exception outcome recorded by an
	// action: the input was well formed but the operation reported a typed
	// application condition.
	CodeApplicationException ErrorCode = "application_exception"

	// CodeApplicationError marks an error outcome recorded by an action.
	CodeApplicationError ErrorCode = "application_error"

	// CodeInvalidReply marks a handler result that failed validation
	// against the method's declared return type. A handler defect, not an
	// application condition.
	CodeInvalidReply ErrorCode = "invalid_reply"

	// CodeHandlerIncomplete marks a call whose actions all ran without
	// recording any outcome.
	CodeHandlerIncomplete ErrorCode = "handler_incomplete"

	CodeNotFound         ErrorCode = "not_found"
	CodeMethodNotAllowed ErrorCode = "method_not_allowed"
	CodeCanceled         ErrorCode = "canceled"
	CodeDeadlineExceeded ErrorCode = "deadline_exceeded"
	CodeInternal         ErrorCode = "internal"
)

// Error is the standard JSON error envelope.
type Error struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates a new service error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a new service error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetail returns a new Error with the key-value pair added to details.
func (e *Error) WithDetail(key string, value any) *Error {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// ErrorTransformer maps an application error to a service error.
// If it returns nil, the default transformer logic is applied.
type ErrorTransformer func(error) *Error

// DefaultErrorTransformer maps standard Go errors to service errors.
func DefaultErrorTransformer(err error) *Error {
	if err == nil {
		return nil
	}

	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(CodeDeadlineExceeded, "request timeout")
	}

	if errors.Is(err, context.Canceled) {
		return NewError(CodeCanceled, "context canceled")
	}

	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		details := make(map[string]any)
		messages := make([]string, 0, len(valErrs))
		for _, ve := range valErrs {
			msg := formatValidationError(ve)
			details[ve.Field()] = msg
			messages = append(messages, ve.Field()+": "+msg)
		}
		return &Error{
			Code:    CodeInvalidArgument,
			Message: strings.Join(messages, "; "),
			Details: details,
		}
	}

	return NewError(CodeInternal, err.Error())
}

// HTTPStatus maps an ErrorCode to an HTTP status code.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeApplicationException:
		return http.StatusUnprocessableEntity
	case CodeApplicationError:
		return http.StatusInternalServerError
	case CodeInvalidReply, CodeHandlerIncomplete:
		return http.StatusInternalServerError
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeCanceled:
		return 499 // Client Closed Request (Nginx standard)
	case CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "min":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}

// BindingError reports a handler set that does not conform to the audited
// definition at registration time. Fatal to startup.
type BindingError struct {
	Service string
	Method  string
	Msg     string
}

func (e *BindingError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("handler binding for %s.%s: %s", e.Service, e.Method, e.Msg)
	}
	return fmt.Sprintf("handler binding for %s: %s", e.Service, e.Msg)
}

// StateError reports a second outcome write on a call whose outcome is
// already set. It indicates a handler programming error and is raised as a
// panic by the outcome setters, then recovered by the executor so the call
// fails loudly without taking the process down.
type StateError struct {
	Method   string
	Existing OutcomeKind
	Attempt  OutcomeKind
}

func (e *StateError) Error() string {
	return fmt.Sprintf("call to %s already finished with %s; refusing to set %s",
		e.Method, e.Existing, e.Attempt)
}
