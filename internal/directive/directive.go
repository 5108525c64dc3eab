// Package directive parses REST binding directives from IDL doc blocks.
//
// A directive is a doc line in the form:
//
//	@rest VERB /path/template
//
// The path template may contain {param} placeholders that are matched
// against method arguments by the auditor.
package directive

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissing is returned when a doc block contains no @rest directive.
var ErrMissing = errors.New("no @rest directive")

// Rest is a parsed REST binding.
type Rest struct {
	Verb string // canonical upper-case HTTP verb
	Path string // path template, e.g. /accounts/{id}
}

func (r *Rest) String() string {
	return r.Verb + " " + r.Path
}

// knownVerbs is the fixed set of HTTP verbs a binding may use.
var knownVerbs = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"DELETE":  true,
	"PATCH":   true,
	"HEAD":    true,
	"OPTIONS": true,
}

// ParseRest extracts the @rest binding from a doc block.
//
// Returns ErrMissing if no line carries the directive. A present but
// malformed directive (bad verb, bad template, or a second directive)
// returns a descriptive error instead.
func ParseRest(doc []string) (*Rest, error) {
	var rest *Rest
	for _, line := range doc {
		text, ok := strings.CutPrefix(strings.TrimSpace(line), "@rest")
		if !ok {
			continue
		}
		if rest != nil {
			return nil, errors.New("multiple @rest directives")
		}
		parts := strings.Fields(text)
		if len(parts) != 2 {
			return nil, fmt.Errorf("@rest directive must be 'VERB /path', got %q", strings.TrimSpace(text))
		}
		verb := strings.ToUpper(parts[0])
		if !knownVerbs[verb] {
			return nil, fmt.Errorf("unknown HTTP verb %q", parts[0])
		}
		if _, err := PathParams(parts[1]); err != nil {
			return nil, err
		}
		rest = &Rest{Verb: verb, Path: parts[1]}
	}
	if rest == nil {
		return nil, ErrMissing
	}
	return rest, nil
}

// PathParams returns the {param} placeholder names of a path template,
// validating the template shape along the way.
func PathParams(path string) ([]string, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("path template %q must start with '/'", path)
	}
	var params []string
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '{':
			end := strings.IndexByte(path[i:], '}')
			if end < 0 {
				return nil, fmt.Errorf("path template %q has an unclosed '{'", path)
			}
			name := path[i+1 : i+end]
			if name == "" {
				return nil, fmt.Errorf("path template %q has an empty parameter", path)
			}
			params = append(params, name)
			i += end
		case '}':
			return nil, fmt.Errorf("path template %q has an unmatched '}'", path)
		}
	}
	return params, nil
}
