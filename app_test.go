package servact

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func accountApp(t *testing.T, create Action) http.Handler {
	t.Helper()
	def := mustAudit(t, accountIDL)

	handlers := NewHandlerSet("AccountService").
		Method("createAccount", create).
		Method("getAccount", ActionFunc(func(c *Call) {
			c.SetResult(map[string]any{"id": c.Message().Int("id"), "allocation": 1000})
		}))

	app := NewApp(def)
	if err := app.Register(handlers); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	h, err := app.Handler()
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	return h
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func postForm(h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res
}

func TestAppCreateAccount(t *testing.T) {
	h := accountApp(t, ActionFunc(func(c *Call) {
		if c.Message().String("username") == "" {
			t.Error("action saw an empty username")
		}
		c.SetResult(map[string]any{"id": 42, "allocation": 1000})
	}))

	res := postForm(h, "/accounts", url.Values{
		"username": {"johndoe"},
		"password": {"abc123"},
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	body := decodeBody(t, res)
	result, ok := body["result"].(map[string]any)
	if !ok {
		t.Fatalf("expected result envelope, got %v", body)
	}
	if result["id"] != float64(42) || result["allocation"] != float64(1000) {
		t.Errorf("unexpected result: %v", result)
	}
}

func TestAppMissingParams(t *testing.T) {
	ran := false
	h := accountApp(t, ActionFunc(func(c *Call) {
		ran = true
		c.SetResult(nil)
	}))

	res := postForm(h, "/accounts", url.Values{})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if ran {
		t.Error("no action may run for a malformed request")
	}

	body := decodeBody(t, res)
	errBody := body["error"].(map[string]any)
	if errBody["code"] != string(CodeInvalidArgument) {
		t.Errorf("expected invalid_argument, got %v", errBody["code"])
	}
	details := errBody["details"].(map[string]any)
	if details["username"] != "required" || details["password"] != "required" {
		t.Errorf("expected both missing fields named, got %v", details)
	}
}

func TestAppPathParams(t *testing.T) {
	h := accountApp(t, ActionFunc(func(c *Call) { c.SetResult(nil) }))

	req := httptest.NewRequest("GET", "/accounts/7", nil)
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	result := decodeBody(t, res)["result"].(map[string]any)
	if result["id"] != float64(7) {
		t.Errorf("path param was not bound, got %v", result)
	}
}

func TestAppExceptionOutcome(t *testing.T) {
	h := accountApp(t, ActionFunc(func(c *Call) {
		c.SetException(map[string]any{"reason": "username taken"})
	}))

	res := postForm(h, "/accounts", url.Values{
		"username": {"johndoe"},
		"password": {"abc123"},
	})
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", res.Code)
	}
	errBody := decodeBody(t, res)["error"].(map[string]any)
	if errBody["code"] != string(CodeApplicationException) {
		t.Errorf("expected application_exception, got %v", errBody["code"])
	}
	value := errBody["details"].(map[string]any)["value"].(map[string]any)
	if value["reason"] != "username taken" {
		t.Errorf("exception value must be carried, got %v", value)
	}
}

func TestAppErrorOutcome(t *testing.T) {
	h := accountApp(t, ActionFunc(func(c *Call) {
		c.SetError("storage unavailable")
	}))

	res := postForm(h, "/accounts", url.Values{
		"username": {"johndoe"},
		"password": {"abc123"},
	})
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
	errBody := decodeBody(t, res)["error"].(map[string]any)
	if errBody["code"] != string(CodeApplicationError) {
		t.Errorf("expected application_error, got %v", errBody["code"])
	}
	if errBody["message"] != "storage unavailable" {
		t.Errorf("unexpected message: %v", errBody["message"])
	}
}

func TestAppHandlerIncomplete(t *testing.T) {
	h := accountApp(t, ActionFunc(func(c *Call) {}))

	res := postForm(h, "/accounts", url.Values{
		"username": {"johndoe"},
		"password": {"abc123"},
	})
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
	errBody := decodeBody(t, res)["error"].(map[string]any)
	if errBody["code"] != string(CodeHandlerIncomplete) {
		t.Errorf("expected handler_incomplete, got %v", errBody["code"])
	}
}

func TestAppInvalidReply(t *testing.T) {
	h := accountApp(t, ActionFunc(func(c *Call) {
		c.SetResult(map[string]any{"id": "not-an-int", "allocation": 1000})
	}))

	res := postForm(h, "/accounts", url.Values{
		"username": {"johndoe"},
		"password": {"abc123"},
	})
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
	errBody := decodeBody(t, res)["error"].(map[string]any)
	if errBody["code"] != string(CodeInvalidReply) {
		t.Errorf("expected invalid_reply, got %v", errBody["code"])
	}
}

func TestAppRouteNotFound(t *testing.T) {
	h := accountApp(t, ActionFunc(func(c *Call) { c.SetResult(nil) }))

	req := httptest.NewRequest("GET", "/nope", nil)
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	if res.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", res.Code)
	}
}

func TestAppRegisterWrongService(t *testing.T) {
	def := mustAudit(t, accountIDL)
	app := NewApp(def)

	err := app.Register(NewHandlerSet("BillingService"))
	if err == nil || !strings.Contains(err.Error(), "does not match") {
		t.Errorf("expected service name mismatch, got %v", err)
	}
}

func TestAppRegisterMissingMethods(t *testing.T) {
	def := mustAudit(t, accountIDL)
	app := NewApp(def)

	// Only one of the two audited methods is implemented.
	err := app.Register(NewHandlerSet("AccountService").
		Method("createAccount", ActionFunc(func(c *Call) { c.SetResult(nil) })))
	if err == nil || !strings.Contains(err.Error(), "getAccount") {
		t.Errorf("expected missing getAccount binding, got %v", err)
	}
}

func TestAppRegisterExtraMethodsIgnored(t *testing.T) {
	def := mustAudit(t, accountIDL)
	app := NewApp(def)

	noop := ActionFunc(func(c *Call) { c.SetResult(nil) })
	err := app.Register(NewHandlerSet("AccountService").
		Method("createAccount", noop).
		Method("getAccount", noop).
		Method("futureMethod", noop))
	if err != nil {
		t.Errorf("extra methods must be ignored, got %v", err)
	}
}

func TestAppHandlerWithoutRegister(t *testing.T) {
	def := mustAudit(t, accountIDL)
	_, err := NewApp(def).Handler()
	if err == nil {
		t.Error("expected error when no handler is registered")
	}
}

func TestAppInterceptor(t *testing.T) {
	def := mustAudit(t, accountIDL)
	app := NewApp(def)

	var order []string
	app.WithInterceptor(func(call *Call, next ExecFunc) (Outcome, error) {
		order = append(order, "before")
		outcome, err := next(call)
		order = append(order, "after")
		return outcome, err
	})

	noop := ActionFunc(func(c *Call) {
		order = append(order, "action")
		c.SetResult(map[string]any{"id": 1, "allocation": 1})
	})
	if err := app.Register(NewHandlerSet("AccountService").
		Method("createAccount", noop).
		Method("getAccount", noop)); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	h, err := app.Handler()
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	res := postForm(h, "/accounts", url.Values{
		"username": {"johndoe"},
		"password": {"abc123"},
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if strings.Join(order, ",") != "before,action,after" {
		t.Errorf("unexpected interceptor order: %v", order)
	}
}

func TestAppConcurrentCalls(t *testing.T) {
	h := accountApp(t, ActionFunc(func(c *Call) {
		c.SetResult(map[string]any{"id": 42, "allocation": 1000})
	}))

	done := make(chan int, 16)
	for i := 0; i < 16; i++ {
		go func() {
			res := postForm(h, "/accounts", url.Values{
				"username": {"johndoe"},
				"password": {"abc123"},
			})
			done <- res.Code
		}()
	}
	for i := 0; i < 16; i++ {
		if code := <-done; code != http.StatusOK {
			t.Errorf("concurrent call failed with %d", code)
		}
	}
}
