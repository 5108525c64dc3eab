package servact

import (
	"errors"
	"fmt"
	"strings"

	"github.com/servact/servact/internal/directive"
	"github.com/servact/servact/internal/idl"
)

// AuditError is a single violation found while auditing an IDL document.
type AuditError struct {
	Line    int
	Subject string // the type, method, or field at fault
	Msg     string
}

func (e *AuditError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Subject, e.Msg)
}

// AuditErrors is the complete list of violations from one audit pass.
// The audit is exhaustive: it never stops at the first problem, so a
// schema can be fixed in one iteration.
type AuditErrors []*AuditError

func (e AuditErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("schema audit failed with %d error(s):\n  %s", len(e), strings.Join(msgs, "\n  "))
}

// Audit parses and verifies an IDL document, producing the immutable
// ServiceDefinition a server is built from.
//
// Checks, all reported together:
//   - the document declares exactly one service;
//   - every method carries a documentation block;
//   - every method's documentation carries a parseable @rest directive
//     with a known HTTP verb;
//   - every referenced type is declared earlier in the document (types are
//     resolved in a single pass; forward references fail);
//   - type, field, method, and argument names are unique within their scope;
//   - every {param} in a path template names a scalar argument of the method.
//
// On failure the returned error is an AuditErrors value. A service whose
// audit fails must never begin accepting requests.
func Audit(src string) (*ServiceDefinition, error) {
	doc, parseErrs := idl.Parse(src)

	a := &auditor{declared: make(map[string]int)}
	for _, pe := range parseErrs {
		a.errorf(pe.Line, "", "%s", pe.Msg)
	}

	for _, t := range doc.Types {
		a.auditType(t)
	}

	switch len(doc.Services) {
	case 0:
		a.errorf(0, "", "document declares no service")
	case 1:
		a.auditService(doc.Services[0])
	default:
		a.errorf(doc.Services[1].Line, doc.Services[1].Name, "document declares more than one service")
	}

	if len(a.errs) > 0 {
		return nil, a.errs
	}
	return a.build(doc), nil
}

type auditor struct {
	errs     AuditErrors
	declared map[string]int // type name -> declaration line
}

func (a *auditor) errorf(line int, subject, format string, args ...any) {
	a.errs = append(a.errs, &AuditError{Line: line, Subject: subject, Msg: fmt.Sprintf(format, args...)})
}

func (a *auditor) auditType(t *idl.TypeDecl) {
	if _, dup := a.declared[t.Name]; dup {
		a.errorf(t.Line, t.Name, "duplicate type declaration")
		return
	}

	seen := make(map[string]bool)
	for _, f := range t.Fields {
		if seen[f.Name] {
			a.errorf(f.Line, t.Name+"."+f.Name, "duplicate field")
			continue
		}
		seen[f.Name] = true
		a.checkRef(f.Line, t.Name+"."+f.Name, f.Type)
	}

	// Declared only after its own fields are checked, so self references
	// fail the single-pass rule like any other forward reference.
	a.declared[t.Name] = t.Line
}

func (a *auditor) auditService(svc *idl.ServiceDecl) {
	seen := make(map[string]bool)
	for _, m := range svc.Methods {
		if seen[m.Name] {
			a.errorf(m.Line, m.Name, "duplicate method declaration")
			continue
		}
		seen[m.Name] = true
		a.auditMethod(m)
	}
}

func (a *auditor) auditMethod(m *idl.MethodDecl) {
	if !documented(m.Doc) {
		a.errorf(m.Line, m.Name, "missing documentation")
	}

	rest, err := directive.ParseRest(m.Doc)
	switch {
	case errors.Is(err, directive.ErrMissing):
		a.errorf(m.Line, m.Name, "missing @rest directive")
	case err != nil:
		a.errorf(m.Line, m.Name, "%s", err.Error())
	}

	args := make(map[string]*idl.Arg, len(m.Args))
	for _, arg := range m.Args {
		if _, dup := args[arg.Name]; dup {
			a.errorf(arg.Line, m.Name+"."+arg.Name, "duplicate argument")
			continue
		}
		args[arg.Name] = arg
		a.checkRef(arg.Line, m.Name+"."+arg.Name, arg.Type)
	}

	if m.Return != nil {
		a.checkRef(m.Line, m.Name, *m.Return)
	}

	if rest != nil {
		params, _ := directive.PathParams(rest.Path)
		for _, p := range params {
			arg, ok := args[p]
			if !ok {
				a.errorf(m.Line, m.Name, "path parameter {%s} has no matching argument", p)
				continue
			}
			if !arg.Type.Scalar() {
				a.errorf(arg.Line, m.Name+"."+p, "path parameter must be scalar, is %s", arg.Type)
			}
		}
	}
}

// checkRef enforces the single-pass type resolution rule: a custom type
// reference is valid only when the type was declared on an earlier line.
func (a *auditor) checkRef(line int, subject string, ref idl.TypeRef) {
	if ref.Scalar() || (ref.List && isScalarName(ref.Name)) {
		return
	}
	decl, ok := a.declared[ref.Name]
	if !ok {
		a.errorf(line, subject, "type %s is not declared before use", ref.Name)
		return
	}
	if decl >= line {
		a.errorf(line, subject, "type %s is declared after use (forward references are not allowed)", ref.Name)
	}
}

func isScalarName(name string) bool {
	switch name {
	case "int", "float", "bool", "string":
		return true
	}
	return false
}

// documented reports whether the doc block contains prose beyond directives.
func documented(doc []string) bool {
	for _, line := range doc {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "@") {
			return true
		}
	}
	return false
}

// build converts the verified parse tree into the immutable definition.
// Only called once every check has passed.
func (a *auditor) build(doc *idl.Document) *ServiceDefinition {
	svc := doc.Services[0]
	def := &ServiceDefinition{
		Name:          svc.Name,
		methodsByName: make(map[string]*MethodDefinition, len(svc.Methods)),
		typesByName:   make(map[string]*TypeDefinition, len(doc.Types)),
	}

	for _, t := range doc.Types {
		td := &TypeDefinition{Name: t.Name}
		for _, f := range t.Fields {
			td.Fields = append(td.Fields, FieldDefinition{Name: f.Name, Type: refFromIDL(f.Type)})
		}
		def.Types = append(def.Types, td)
		def.typesByName[td.Name] = td
	}

	for _, m := range svc.Methods {
		rest, _ := directive.ParseRest(m.Doc)
		md := &MethodDefinition{
			Name:    m.Name,
			Doc:     m.Doc,
			Verb:    rest.Verb,
			Path:    rest.Path,
			service: def,
		}
		if m.Return != nil {
			ret := refFromIDL(*m.Return)
			md.Return = &ret
		}
		for _, arg := range m.Args {
			md.Args = append(md.Args, &Argument{
				Name:       arg.Name,
				Type:       refFromIDL(arg.Type),
				Optional:   arg.Optional,
				Constraint: arg.Constraint,
			})
		}
		def.Methods = append(def.Methods, md)
		def.methodsByName[md.Name] = md
	}

	return def
}
