package servact

import "github.com/servact/servact/internal/idl"

// ServiceDefinition is the audited, immutable description of one service.
// It is produced by Audit and shared read-only across all requests.
type ServiceDefinition struct {
	Name    string
	Methods []*MethodDefinition
	Types   []*TypeDefinition

	methodsByName map[string]*MethodDefinition
	typesByName   map[string]*TypeDefinition
}

// Method looks up an audited method by name.
func (d *ServiceDefinition) Method(name string) (*MethodDefinition, bool) {
	m, ok := d.methodsByName[name]
	return m, ok
}

// TypeDefinition is a named record type from the IDL document.
type TypeDefinition struct {
	Name   string
	Fields []FieldDefinition
}

// FieldDefinition is one field of a record type.
type FieldDefinition struct {
	Name string
	Type TypeRef
}

// MethodDefinition is one audited method with its REST binding.
type MethodDefinition struct {
	Name   string
	Doc    []string
	Args   []*Argument
	Return *TypeRef // nil for void methods

	// REST binding from the @rest doc directive. Always set after a
	// successful audit.
	Verb string
	Path string

	service *ServiceDefinition
}

// Service returns the definition this method belongs to.
func (m *MethodDefinition) Service() *ServiceDefinition { return m.service }

// Argument is one declared method argument.
type Argument struct {
	Name       string
	Type       TypeRef
	Optional   bool
	Constraint string // validator tag list, e.g. "min=3,max=64"
}

// TypeRef names a scalar, a declared record type, or a list of either.
type TypeRef struct {
	Name string
	List bool
}

// Scalar reports whether the reference names a built-in scalar type.
func (r TypeRef) Scalar() bool {
	if r.List {
		return false
	}
	switch r.Name {
	case "int", "float", "bool", "string":
		return true
	}
	return false
}

func (r TypeRef) String() string {
	if r.List {
		return "[]" + r.Name
	}
	return r.Name
}

// typeByName resolves a record type referenced from an argument, field, or
// return declaration. The audit guarantees resolution succeeds for any
// reference it admitted.
func (d *ServiceDefinition) typeByName(name string) (*TypeDefinition, bool) {
	t, ok := d.typesByName[name]
	return t, ok
}

func refFromIDL(r idl.TypeRef) TypeRef {
	return TypeRef{Name: r.Name, List: r.List}
}
