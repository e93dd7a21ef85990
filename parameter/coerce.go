package parameter

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Coerce converts raw into the Go representation of the parameter type:
// string, int64, float64, time.Time or a slice of those for array types.
func (p Parameter) Coerce(raw any) (any, error) {
	if p.Type == "" {
		p.Type = TypeString
	}
	if !p.Type.IsArray() {
		return coerceScalar(p.Type, p.pattern(), raw)
	}

	items, err := p.split(raw)
	if err != nil {
		return nil, err
	}

	elem := p.Type.Element()
	switch elem {
	case TypeString:
		out := make([]string, len(items))
		for i, it := range items {
			v, err := coerceScalar(elem, p.pattern(), it)
			if err != nil {
				return nil, err
			}
			out[i] = v.(string)
		}
		return out, nil
	case TypeInteger:
		out := make([]int64, len(items))
		for i, it := range items {
			v, err := coerceScalar(elem, p.pattern(), it)
			if err != nil {
				return nil, err
			}
			out[i] = v.(int64)
		}
		return out, nil
	case TypeNumeric:
		out := make([]float64, len(items))
		for i, it := range items {
			v, err := coerceScalar(elem, p.pattern(), it)
			if err != nil {
				return nil, err
			}
			out[i] = v.(float64)
		}
		return out, nil
	case TypeDate:
		out := make([]time.Time, len(items))
		for i, it := range items {
			v, err := coerceScalar(elem, p.pattern(), it)
			if err != nil {
				return nil, err
			}
			out[i] = v.(time.Time)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported type %s", p.Type)
}

func (p Parameter) split(raw any) ([]any, error) {
	if s, ok := raw.(string); ok {
		if s == "" {
			return []any{}, nil
		}
		parts := strings.Split(s, p.separator())
		out := make([]any, len(parts))
		for i, part := range parts {
			out[i] = strings.TrimSpace(part)
		}
		return out, nil
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		// a single scalar is a one element list
		return []any{raw}, nil
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func coerceScalar(t Type, pattern string, raw any) (any, error) {
	if raw == nil {
		return nil, fmt.Errorf("nil value for %s", t)
	}

	switch t {
	case TypeString:
		switch v := raw.(type) {
		case string:
			return v, nil
		case fmt.Stringer:
			return v.String(), nil
		}
		rv := reflect.ValueOf(raw)
		if isNumberKind(rv.Kind()) || rv.Kind() == reflect.Bool {
			return fmt.Sprint(raw), nil
		}

	case TypeInteger:
		if s, ok := raw.(string); ok {
			n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid integer %q", s)
			}
			return n, nil
		}
		rv := reflect.ValueOf(raw)
		switch {
		case rv.CanInt():
			return rv.Int(), nil
		case rv.CanUint():
			u := rv.Uint()
			if u > math.MaxInt64 {
				return nil, fmt.Errorf("integer %d overflows int64", u)
			}
			return int64(u), nil
		case rv.CanFloat():
			f := rv.Float()
			if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
				return nil, fmt.Errorf("%v is not an integer", f)
			}
			return int64(f), nil
		}

	case TypeNumeric:
		if s, ok := raw.(string); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q", s)
			}
			return f, nil
		}
		rv := reflect.ValueOf(raw)
		switch {
		case rv.CanInt():
			return float64(rv.Int()), nil
		case rv.CanUint():
			return float64(rv.Uint()), nil
		case rv.CanFloat():
			return rv.Float(), nil
		}

	case TypeDate:
		switch v := raw.(type) {
		case time.Time:
			return v, nil
		case string:
			d, err := time.Parse(pattern, strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("invalid date %q for layout %q", v, pattern)
			}
			return d, nil
		}
	}

	return nil, fmt.Errorf("cannot convert %T to %s", raw, t)
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
