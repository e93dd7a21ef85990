package parameter

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Error reports an override that failed coercion or validation.
type Error struct {
	Name  string
	Value any
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("parameter %q: invalid value %v: %v", e.Name, e.Value, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Value is a resolved parameter value.
type Value struct {
	Name  string
	Type  Type
	Value any
}

// String renders the value as name=value for diagnostics.
func (v Value) String() string {
	return v.Name + "=" + formatValue(v.Value)
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case time.Time:
		return val.Format(time.RFC3339)
	case []time.Time:
		parts := make([]string, len(val))
		for i, t := range val {
			parts[i] = t.Format(time.RFC3339)
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		parts := make([]string, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			parts[i] = fmt.Sprint(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	return fmt.Sprint(v)
}

// Resolved is the request scoped parameter set, sorted by name.
type Resolved struct {
	values []Value
}

// Values returns a copy of the resolved values sorted by name.
func (r Resolved) Values() []Value {
	return append([]Value(nil), r.values...)
}

// Len returns the number of resolved values.
func (r Resolved) Len() int { return len(r.values) }

// Lookup returns the value resolved for name.
func (r Resolved) Lookup(name string) (any, bool) {
	i := sort.Search(len(r.values), func(i int) bool { return r.values[i].Name >= name })
	if i < len(r.values) && r.values[i].Name == name {
		return r.values[i].Value, true
	}
	return nil, false
}

// Map returns the resolved values keyed by name.
func (r Resolved) Map() map[string]any {
	m := make(map[string]any, len(r.values))
	for _, v := range r.values {
		m[v.Name] = v.Value
	}
	return m
}

// Strings renders every value with Value.String.
func (r Resolved) Strings() []string {
	out := make([]string, len(r.values))
	for i, v := range r.values {
		out[i] = v.String()
	}
	return out
}

// Resolve merges caller overrides into the declared parameters. Only public
// parameters honor an override; everything else keeps its default. The
// declared set is never modified.
func Resolve(declared Set, overrides map[string]any) (Resolved, error) {
	values := make([]Value, 0, declared.Len())

	for _, p := range declared.params {
		value := p.Default

		if raw, ok := overrides[p.Name]; ok && p.Public() {
			coerced, err := p.Coerce(raw)
			if err != nil {
				return Resolved{}, &Error{Name: p.Name, Value: raw, Err: err}
			}
			if err := p.validate(coerced); err != nil {
				return Resolved{}, &Error{Name: p.Name, Value: raw, Err: err}
			}
			value = coerced
		}

		values = append(values, Value{Name: p.Name, Type: p.Type, Value: value})
	}

	sort.Slice(values, func(i, j int) bool { return values[i].Name < values[j].Name })
	return Resolved{values: values}, nil
}

func (p Parameter) validate(v any) error {
	if len(p.Rules) == 0 {
		return nil
	}
	if p.Type.IsArray() {
		return validation.Validate(v, validation.Each(p.Rules...))
	}
	return validation.Validate(v, p.Rules...)
}
