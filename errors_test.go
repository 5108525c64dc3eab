package servact

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	err := NewError(CodeInvalidArgument, "bad input")
	if err.Error() != "invalid_argument: bad input" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestErrorf(t *testing.T) {
	err := Errorf(CodeApplicationError, "thing %d failed", 7)
	if err.Message != "thing 7 failed" {
		t.Errorf("unexpected message: %q", err.Message)
	}
}

func TestWithDetail(t *testing.T) {
	base := NewError(CodeInvalidArgument, "bad input")
	detailed := base.WithDetail("field", "username")

	if base.Details != nil {
		t.Error("WithDetail must not mutate the original error")
	}
	if detailed.Details["field"] != "username" {
		t.Errorf("unexpected details: %v", detailed.Details)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{CodeInvalidArgument, http.StatusBadRequest},
		{CodeApplicationException, http.StatusUnprocessableEntity},
		{CodeApplicationError, http.StatusInternalServerError},
		{CodeInvalidReply, http.StatusInternalServerError},
		{CodeHandlerIncomplete, http.StatusInternalServerError},
		{CodeNotFound, http.StatusNotFound},
		{CodeMethodNotAllowed, http.StatusMethodNotAllowed},
		{CodeCanceled, 499},
		{CodeDeadlineExceeded, http.StatusGatewayTimeout},
		{CodeInternal, http.StatusInternalServerError},
		{ErrorCode("mystery"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.code.HTTPStatus(); got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.code, tt.want, got)
		}
	}
}

func TestDefaultErrorTransformer(t *testing.T) {
	if DefaultErrorTransformer(nil) != nil {
		t.Error("nil error must transform to nil")
	}

	svcErr := NewError(CodeApplicationError, "kept")
	if got := DefaultErrorTransformer(fmt.Errorf("wrap: %w", svcErr)); got != svcErr {
		t.Errorf("wrapped *Error must be unwrapped, got %v", got)
	}

	if got := DefaultErrorTransformer(context.DeadlineExceeded); got.Code != CodeDeadlineExceeded {
		t.Errorf("expected deadline_exceeded, got %s", got.Code)
	}
	if got := DefaultErrorTransformer(context.Canceled); got.Code != CodeCanceled {
		t.Errorf("expected canceled, got %s", got.Code)
	}
	if got := DefaultErrorTransformer(errors.New("plain")); got.Code != CodeInternal {
		t.Errorf("expected internal fallback, got %s", got.Code)
	}
}

func TestBindingErrorMessage(t *testing.T) {
	err := &BindingError{Service: "AccountService", Method: "getAccount", Msg: "no actions registered"}
	want := "handler binding for AccountService.getAccount: no actions registered"
	if err.Error() != want {
		t.Errorf("unexpected message: %q", err.Error())
	}

	err = &BindingError{Service: "AccountService", Msg: "no handler registered"}
	want = "handler binding for AccountService: no handler registered"
	if err.Error() != want {
		t.Errorf("unexpected message: %q", err.Error())
	}
}
