package servact

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

var (
	validate      = validator.New()
	schemaDecoder = schema.NewDecoder()
)

func init() {
	schemaDecoder.IgnoreUnknownKeys(true)
}

// CallMessage is the validated, typed representation of one invocation's
// arguments. It is immutable once composed and owned by its Call for the
// duration of the request.
type CallMessage struct {
	def  *MethodDefinition
	args map[string]any
	raw  url.Values
}

// Get returns the coerced value of an argument, if it was supplied.
func (m *CallMessage) Get(name string) (any, bool) {
	v, ok := m.args[name]
	return v, ok
}

// String returns a string argument, or "" if absent or not a string.
func (m *CallMessage) String(name string) string {
	v, _ := m.args[name].(string)
	return v
}

// Int returns an int argument, or 0 if absent or not an int.
func (m *CallMessage) Int(name string) int64 {
	v, _ := m.args[name].(int64)
	return v
}

// Float returns a float argument, or 0 if absent or not a float.
func (m *CallMessage) Float(name string) float64 {
	v, _ := m.args[name].(float64)
	return v
}

// Bool returns a bool argument, or false if absent or not a bool.
func (m *CallMessage) Bool(name string) bool {
	v, _ := m.args[name].(bool)
	return v
}

// Strings returns a []string argument, or nil if absent.
func (m *CallMessage) Strings(name string) []string {
	vs, ok := m.args[name].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Bind decodes the raw parameter values into a caller-supplied struct
// pointer, for actions that prefer a typed parameter struct over the
// per-argument accessors. Decoding follows gorilla/schema conventions.
func (m *CallMessage) Bind(v any) error {
	if err := schemaDecoder.Decode(v, m.raw); err != nil {
		return Errorf(CodeInvalidArgument, "bind parameters: %v", err)
	}
	return nil
}

// ComposeCall resolves and coerces raw request parameters into a typed
// CallMessage for the method.
//
// Every declared argument is resolved by name; missing required arguments,
// coercion failures, structural mismatches, and constraint violations are
// all collected so the returned CodeInvalidArgument error names every
// offending field at once. This runs before any action: a malformed
// request never reaches business logic.
func ComposeCall(def *MethodDefinition, raw url.Values) (*CallMessage, error) {
	msg := &CallMessage{
		def:  def,
		args: make(map[string]any, len(def.Args)),
		raw:  raw,
	}

	fields := make(map[string]any)
	for _, arg := range def.Args {
		values, present := raw[arg.Name]
		if !present || len(values) == 0 {
			if !arg.Optional {
				fields[arg.Name] = "required"
			}
			continue
		}

		v, err := coerceArg(def.service, arg, values)
		if err != nil {
			fields[arg.Name] = err.Error()
			continue
		}

		if arg.Constraint != "" {
			if err := validate.Var(v, arg.Constraint); err != nil {
				fields[arg.Name] = constraintMessage(err)
				continue
			}
		}

		msg.args[arg.Name] = v
	}

	if len(fields) > 0 {
		return nil, invalidArgument(fields)
	}
	return msg, nil
}

// ComposeReply validates a handler-produced result value against the
// method's declared return type.
//
// A violating result is a contract breach by the handler, not a client or
// application condition, so it fails with CodeInvalidReply. The value is
// normalized through its JSON form so handlers may return structs, maps,
// or anything in between.
func ComposeReply(def *MethodDefinition, v any) (any, error) {
	if def.Return == nil {
		if v != nil {
			return nil, Errorf(CodeInvalidReply,
				"%s declares no return value but the handler produced one", def.Name)
		}
		return nil, nil
	}

	tree, err := normalize(v)
	if err != nil {
		return nil, Errorf(CodeInvalidReply, "%s: result is not serializable: %v", def.Name, err)
	}

	checked, err := checkValue(def.service, *def.Return, tree, "result")
	if err != nil {
		return nil, Errorf(CodeInvalidReply, "%s: %v", def.Name, err)
	}
	return checked, nil
}

func invalidArgument(fields map[string]any) *Error {
	msgs := make([]string, 0, len(fields))
	for name, msg := range fields {
		msgs = append(msgs, fmt.Sprintf("%s: %v", name, msg))
	}
	// Deterministic message ordering for logs and tests.
	sort.Strings(msgs)
	return &Error{
		Code:    CodeInvalidArgument,
		Message: strings.Join(msgs, "; "),
		Details: fields,
	}
}

func constraintMessage(err error) string {
	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) && len(valErrs) > 0 {
		return formatValidationError(valErrs[0])
	}
	return err.Error()
}

// coerceArg converts the raw string values of one parameter into the
// argument's declared type.
func coerceArg(svc *ServiceDefinition, arg *Argument, values []string) (any, error) {
	if arg.Type.List {
		elem := TypeRef{Name: arg.Type.Name}
		out := make([]any, 0, len(values))
		for i, raw := range values {
			v, err := coerceSingle(svc, elem, raw)
			if err != nil {
				return nil, fmt.Errorf("element %d: %v", i, err)
			}
			out = append(out, v)
		}
		return out, nil
	}
	return coerceSingle(svc, arg.Type, values[0])
}

func coerceSingle(svc *ServiceDefinition, ref TypeRef, raw string) (any, error) {
	switch ref.Name {
	case "string":
		return raw, nil
	case "int":
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("expected int, got %q", raw)
		}
		return n, nil
	case "float":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("expected float, got %q", raw)
		}
		return f, nil
	case "bool":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("expected bool, got %q", raw)
		}
		return b, nil
	}

	// Object-typed parameters arrive as JSON text and are validated
	// structurally against the type declaration.
	var tree any
	if err := json.Unmarshal([]byte(raw), &tree); err != nil {
		return nil, fmt.Errorf("expected %s as JSON: %v", ref.Name, err)
	}
	return checkValue(svc, ref, tree, ref.Name)
}

// normalize reduces an arbitrary Go value to the generic JSON value tree
// that checkValue walks.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// checkValue validates a generic value tree against a type reference and
// returns the canonical form (integers as int64, objects as
// map[string]any). path names the location for error reporting.
func checkValue(svc *ServiceDefinition, ref TypeRef, v any, path string) (any, error) {
	if ref.List {
		list, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%s: expected %s, got %s", path, ref, kindOf(v))
		}
		elem := TypeRef{Name: ref.Name}
		out := make([]any, len(list))
		for i, item := range list {
			checked, err := checkValue(svc, elem, item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = checked
		}
		return out, nil
	}

	switch ref.Name {
	case "string":
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s: expected string, got %s", path, kindOf(v))
		}
		return s, nil
	case "bool":
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%s: expected bool, got %s", path, kindOf(v))
		}
		return b, nil
	case "float":
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("%s: expected float, got %s", path, kindOf(v))
		}
		return f, nil
	case "int":
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) {
			return nil, fmt.Errorf("%s: expected int, got %s", path, kindOf(v))
		}
		return int64(f), nil
	}

	td, ok := svc.typeByName(ref.Name)
	if !ok {
		// Unreachable after a successful audit.
		return nil, fmt.Errorf("%s: unknown type %s", path, ref.Name)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected %s, got %s", path, ref.Name, kindOf(v))
	}

	out := make(map[string]any, len(td.Fields))
	declared := make(map[string]bool, len(td.Fields))
	for _, f := range td.Fields {
		declared[f.Name] = true
		fv, present := obj[f.Name]
		if !present {
			return nil, fmt.Errorf("%s: missing required field %s", path, f.Name)
		}
		checked, err := checkValue(svc, f.Type, fv, path+"."+f.Name)
		if err != nil {
			return nil, err
		}
		out[f.Name] = checked
	}
	for k := range obj {
		if !declared[k] {
			return nil, fmt.Errorf("%s: unknown field %s", path, k)
		}
	}
	return out, nil
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
