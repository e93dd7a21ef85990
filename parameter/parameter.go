package parameter

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Access controls whether a caller may override a parameter.
type Access string

const (
	AccessPublic     Access = "public"
	AccessRestricted Access = "restricted"
)

// ParseAccess parses an access level. Empty input means public.
func ParseAccess(s string) (Access, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "public":
		return AccessPublic, nil
	case "restricted", "private":
		return AccessRestricted, nil
	default:
		return "", fmt.Errorf("parameter: unknown access level %q", s)
	}
}

// Type is the declared value type of a parameter.
type Type string

const (
	TypeString       Type = "String"
	TypeInteger      Type = "Integer"
	TypeNumeric      Type = "Numeric"
	TypeDate         Type = "Date"
	TypeStringArray  Type = "StringArray"
	TypeIntegerArray Type = "IntegerArray"
	TypeNumericArray Type = "NumericArray"
	TypeDateArray    Type = "DateArray"
)

// ParseType parses a type name case-insensitively. Empty input means String.
func ParseType(s string) (Type, error) {
	if strings.TrimSpace(s) == "" {
		return TypeString, nil
	}
	for _, t := range []Type{
		TypeString, TypeInteger, TypeNumeric, TypeDate,
		TypeStringArray, TypeIntegerArray, TypeNumericArray, TypeDateArray,
	} {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("parameter: unknown type %q", s)
}

// IsArray reports whether the type holds a list of values.
func (t Type) IsArray() bool {
	return strings.HasSuffix(string(t), "Array")
}

// Element returns the scalar type of an array type, or t itself.
func (t Type) Element() Type {
	if !t.IsArray() {
		return t
	}
	return Type(strings.TrimSuffix(string(t), "Array"))
}

const (
	// DefaultPattern is the date layout used when a parameter declares none.
	DefaultPattern = "2006-01-02"
	// DefaultSeparator splits string encoded array values.
	DefaultSeparator = ";"
)

// Parameter is a declared query parameter.
type Parameter struct {
	Name      string
	Type      Type
	Access    Access
	Default   any
	Pattern   string
	Separator string
	// Rules are applied to coerced override values. Array parameters apply
	// them to every element.
	Rules []validation.Rule
}

func (p Parameter) pattern() string {
	if p.Pattern == "" {
		return DefaultPattern
	}
	return p.Pattern
}

func (p Parameter) separator() string {
	if p.Separator == "" {
		return DefaultSeparator
	}
	return p.Separator
}

// Public reports whether callers may override the parameter.
func (p Parameter) Public() bool {
	return p.Access == "" || p.Access == AccessPublic
}

// Set is an ordered collection of parameters with unique names.
type Set struct {
	params []Parameter
}

// NewSet builds a Set, rejecting empty and duplicate names.
func NewSet(params ...Parameter) (Set, error) {
	seen := make(map[string]struct{}, len(params))
	for _, p := range params {
		if p.Name == "" {
			return Set{}, fmt.Errorf("parameter: name is required")
		}
		if _, dup := seen[p.Name]; dup {
			return Set{}, fmt.Errorf("parameter: duplicate name %q", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return Set{params: append([]Parameter(nil), params...)}, nil
}

// MustSet is NewSet that panics on error. Meant for static declarations.
func MustSet(params ...Parameter) Set {
	s, err := NewSet(params...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of declared parameters.
func (s Set) Len() int { return len(s.params) }

// All returns the parameters in declaration order.
func (s Set) All() []Parameter {
	return append([]Parameter(nil), s.params...)
}

// Get returns the named parameter.
func (s Set) Get(name string) (Parameter, bool) {
	for _, p := range s.params {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}
