package idl

import (
	"bufio"
	"fmt"
	"strings"
)

// ParseError describes one syntax problem with its source line.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Parse scans an IDL source text into a raw Document.
//
// Syntax errors do not abort the scan: the offending line is skipped and
// reported, so a caller sees every problem in one pass. The returned
// Document contains everything that did parse.
func Parse(src string) (*Document, []*ParseError) {
	p := &parser{doc: &Document{}}
	sc := bufio.NewScanner(strings.NewReader(src))
	line := 0
	for sc.Scan() {
		line++
		p.line(line, strings.TrimSpace(sc.Text()))
	}
	if p.curType != nil || p.curService != nil {
		p.errorf(line, "unexpected end of document: unclosed block")
	}
	return p.doc, p.errs
}

type parser struct {
	doc        *Document
	errs       []*ParseError
	pendingDoc []string
	curType    *TypeDecl
	curService *ServiceDecl
}

func (p *parser) errorf(line int, format string, args ...any) {
	p.errs = append(p.errs, &ParseError{Line: line, Msg: fmt.Sprintf(format, args...)})
}

// takeDoc consumes the pending doc block for the declaration being parsed.
func (p *parser) takeDoc() []string {
	doc := p.pendingDoc
	p.pendingDoc = nil
	return doc
}

func (p *parser) line(n int, text string) {
	switch {
	case text == "":
		// A blank line detaches any comment block from what follows.
		p.pendingDoc = nil

	case strings.HasPrefix(text, "#"):
		p.pendingDoc = append(p.pendingDoc, strings.TrimSpace(strings.TrimPrefix(text, "#")))

	case text == "}":
		p.pendingDoc = nil
		switch {
		case p.curType != nil:
			p.doc.Types = append(p.doc.Types, p.curType)
			p.curType = nil
		case p.curService != nil:
			p.doc.Services = append(p.doc.Services, p.curService)
			p.curService = nil
		default:
			p.errorf(n, "unmatched '}'")
		}

	case p.curType != nil:
		p.fieldLine(n, text)

	case p.curService != nil:
		p.methodLine(n, text)

	case strings.HasPrefix(text, "type "):
		name, ok := p.blockHeader(n, text, "type")
		if ok {
			p.curType = &TypeDecl{Name: name, Doc: p.takeDoc(), Line: n}
		}

	case strings.HasPrefix(text, "service "):
		name, ok := p.blockHeader(n, text, "service")
		if ok {
			p.curService = &ServiceDecl{Name: name, Doc: p.takeDoc(), Line: n}
		}

	default:
		p.pendingDoc = nil
		p.errorf(n, "expected 'type' or 'service' declaration, got %q", text)
	}
}

// blockHeader parses "kind Name {" and returns the declared name.
func (p *parser) blockHeader(n int, text, kind string) (string, bool) {
	rest := strings.TrimSpace(strings.TrimPrefix(text, kind))
	name, ok := strings.CutSuffix(rest, "{")
	if !ok {
		p.errorf(n, "%s declaration must end with '{'", kind)
		return "", false
	}
	name = strings.TrimSpace(name)
	if !validIdent(name) {
		p.errorf(n, "invalid %s name %q", kind, name)
		return "", false
	}
	return name, true
}

func (p *parser) fieldLine(n int, text string) {
	p.pendingDoc = nil
	parts := strings.Fields(text)
	if len(parts) != 2 {
		p.errorf(n, "field must be 'name type', got %q", text)
		return
	}
	name := parts[0]
	if !validIdent(name) {
		p.errorf(n, "invalid field name %q", name)
		return
	}
	ref, err := parseTypeRef(parts[1])
	if err != nil {
		p.errorf(n, "field %s: %v", name, err)
		return
	}
	p.curType.Fields = append(p.curType.Fields, &Field{Name: name, Type: ref, Line: n})
}

func (p *parser) methodLine(n int, text string) {
	doc := p.takeDoc()

	open := strings.IndexByte(text, '(')
	if open < 0 {
		p.errorf(n, "method must declare an argument list, got %q", text)
		return
	}
	name := strings.TrimSpace(text[:open])
	if !validIdent(name) {
		p.errorf(n, "invalid method name %q", name)
		return
	}

	// The argument list may itself contain parenthesized constraint lists,
	// so the closing paren is found by depth, not by LastIndex.
	depth := 0
	closeIdx := -1
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				closeIdx = i
			}
		}
		if closeIdx >= 0 {
			break
		}
	}
	if closeIdx < 0 {
		p.errorf(n, "method %s: unterminated argument list", name)
		return
	}

	m := &MethodDecl{Name: name, Doc: doc, Line: n}

	argList := strings.TrimSpace(text[open+1 : closeIdx])
	if argList != "" {
		for _, raw := range splitTop(argList) {
			arg, err := parseArg(strings.TrimSpace(raw), n)
			if err != nil {
				p.errorf(n, "method %s: %v", name, err)
				continue
			}
			m.Args = append(m.Args, arg)
		}
	}

	if ret := strings.TrimSpace(text[closeIdx+1:]); ret != "" {
		ref, err := parseTypeRef(ret)
		if err != nil {
			p.errorf(n, "method %s: return type: %v", name, err)
			return
		}
		m.Return = &ref
	}

	p.curService.Methods = append(p.curService.Methods, m)
}

// splitTop splits an argument list on commas outside parentheses.
func splitTop(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// parseArg parses "name[?] type [(constraints)]".
func parseArg(s string, line int) (*Arg, error) {
	name, rest, ok := strings.Cut(s, " ")
	if !ok {
		return nil, fmt.Errorf("argument must be 'name type', got %q", s)
	}
	arg := &Arg{Line: line}
	arg.Name, arg.Optional = strings.CutSuffix(name, "?")
	if !validIdent(arg.Name) {
		return nil, fmt.Errorf("invalid argument name %q", arg.Name)
	}

	rest = strings.TrimSpace(rest)
	typeStr := rest
	if open := strings.IndexByte(rest, '('); open >= 0 {
		if !strings.HasSuffix(rest, ")") {
			return nil, fmt.Errorf("argument %s: unterminated constraint list", arg.Name)
		}
		typeStr = strings.TrimSpace(rest[:open])
		arg.Constraint = strings.TrimSpace(rest[open+1 : len(rest)-1])
	}

	ref, err := parseTypeRef(typeStr)
	if err != nil {
		return nil, fmt.Errorf("argument %s: %v", arg.Name, err)
	}
	arg.Type = ref
	return arg, nil
}

func parseTypeRef(s string) (TypeRef, error) {
	var ref TypeRef
	s, ref.List = strings.CutPrefix(s, "[]")
	if !validIdent(s) {
		return TypeRef{}, fmt.Errorf("invalid type %q", s)
	}
	ref.Name = s
	return ref, nil
}

func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
