// Package idl parses service definition documents.
//
// A document is line oriented and resolved in a single pass: a type must be
// declared before anything refers to it. Comment lines starting with '#'
// immediately preceding a declaration form its doc block.
//
//	# Account record returned by account operations.
//	type Account {
//	    id int
//	    allocation int
//	}
//
//	service AccountService {
//	    # Creates an account with the default allocation.
//	    # @rest POST /accounts
//	    createAccount(username string (min=3,max=64), password string (min=6)) Account
//	}
//
// The parser produces a raw syntax tree; semantic checks (documentation,
// REST directives, type ordering) are the auditor's job.
package idl

// Document is the raw parse result of one IDL source text.
type Document struct {
	Types    []*TypeDecl
	Services []*ServiceDecl
}

// TypeDecl is a named record type declaration.
type TypeDecl struct {
	Name   string
	Doc    []string
	Fields []*Field
	Line   int
}

// Field is a single field of a record type.
type Field struct {
	Name string
	Type TypeRef
	Line int
}

// TypeRef names a scalar, a previously declared type, or a list of either.
type TypeRef struct {
	Name string // "int", "float", "bool", "string", or a declared type name
	List bool   // true for []T
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

// ServiceDecl is a service block with its method declarations.
type ServiceDecl struct {
	Name    string
	Doc     []string
	Methods []*MethodDecl
	Line    int
}

// MethodDecl is a single method declaration inside a service block.
type MethodDecl struct {
	Name   string
	Doc    []string // comment lines with the leading '#' stripped
	Args   []*Arg
	Return *TypeRef // nil when the method declares no return value
	Line   int
}

// Arg is a declared method argument.
type Arg struct {
	Name       string
	Type       TypeRef
	Optional   bool   // declared with a '?' suffix on the name
	Constraint string // validator tag list from the parenthesized suffix
	Line       int
}
