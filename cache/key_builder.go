package cache

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-query-cache/parameter"
)

// KeyInput is everything that distinguishes one cached result from another.
type KeyInput struct {
	// Connection is the connection fingerprint, or NoConnection.
	Connection   string
	Query        string
	Params       parameter.Resolved
	Extra        any
	SettingsID   string
	DataAccessID string
}

// KeyBuilder builds a Key from resolved request state.
// It is responsible for producing keys that are stable across processes.
type KeyBuilder interface {
	Build(in KeyInput) (Key, error)
}

// UnstableValueError is returned for values that only have a process local
// identity, such as functions and channels.
type UnstableValueError struct {
	Kind reflect.Kind
}

func (e *UnstableValueError) Error() string {
	return "cache key: cannot serialize value of kind " + e.Kind.String()
}

// defaultKeyBuilder implements KeyBuilder using reflection-based serialization.
// Maps are serialized with sorted keys and structs by exported field so equal
// values give equal keys across runs.
type defaultKeyBuilder struct{}

// NewDefaultKeyBuilder creates a new instance of the default key builder.
func NewDefaultKeyBuilder() KeyBuilder {
	return &defaultKeyBuilder{}
}

// Build serializes each resolved parameter and the extra key material.
func (s *defaultKeyBuilder) Build(in KeyInput) (Key, error) {
	conn := in.Connection
	if conn == "" {
		conn = NoConnection
	}

	values := in.Params.Values()
	params := make([]KeyParam, 0, len(values))
	for _, v := range values {
		serialized, err := s.serializeValue(v.Value)
		if err != nil {
			return Key{}, fmt.Errorf("parameter %q: %w", v.Name, err)
		}
		params = append(params, KeyParam{Name: v.Name, Value: serialized})
	}
	sort.SliceStable(params, func(i, j int) bool { return params[i].Name < params[j].Name })

	var extra string
	if in.Extra != nil {
		serialized, err := s.serializeValue(in.Extra)
		if err != nil {
			return Key{}, fmt.Errorf("extra key: %w", err)
		}
		extra = serialized
	}

	return Key{
		Connection:   conn,
		Query:        in.Query,
		Params:       params,
		Extra:        extra,
		SettingsID:   in.SettingsID,
		DataAccessID: in.DataAccessID,
	}, nil
}

var timeType = reflect.TypeOf(time.Time{})

// serializeValue handles individual value serialization based on type.
func (s *defaultKeyBuilder) serializeValue(v any) (string, error) {
	if v == nil {
		return "nil", nil
	}
	return s.serializeReflect(reflect.ValueOf(v))
}

func (s *defaultKeyBuilder) serializeReflect(rv reflect.Value) (string, error) {
	if !rv.IsValid() {
		return "nil", nil
	}
	rt := rv.Type()

	if rt == timeType {
		return "time:" + rv.Interface().(time.Time).UTC().Format(time.RFC3339Nano), nil
	}

	switch rt.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Uintptr:
		return "", &UnstableValueError{Kind: rt.Kind()}

	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "nil", nil
		}
		return s.serializeReflect(rv.Elem())

	case reflect.Slice:
		if rv.IsNil() {
			return "slice:nil", nil
		}
		return s.serializeList("slice", rv)

	case reflect.Array:
		return s.serializeList("array", rv)

	case reflect.Map:
		if rv.IsNil() {
			return "map:nil", nil
		}
		return s.serializeMap(rv)

	case reflect.Struct:
		return s.serializeStruct(rv, rt)

	case reflect.String:
		return strconv.Quote(rv.String()), nil

	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return fmt.Sprintf("%v", rv.Interface()), nil
	}

	return "", &UnstableValueError{Kind: rt.Kind()}
}

// serializeList handles slices and arrays recursively
func (s *defaultKeyBuilder) serializeList(kind string, rv reflect.Value) (string, error) {
	length := rv.Len()
	parts := make([]string, length)

	for i := 0; i < length; i++ {
		part, err := s.serializeReflect(rv.Index(i))
		if err != nil {
			return "", err
		}
		parts[i] = part
	}

	return fmt.Sprintf("%s[%d]:{%s}", kind, length, strings.Join(parts, ",")), nil
}

// serializeMap handles map serialization with sorted keys for determinism
func (s *defaultKeyBuilder) serializeMap(rv reflect.Value) (string, error) {
	pairs := make([]string, 0, rv.Len())

	iter := rv.MapRange()
	for iter.Next() {
		k, err := s.serializeReflect(iter.Key())
		if err != nil {
			return "", err
		}
		v, err := s.serializeReflect(iter.Value())
		if err != nil {
			return "", err
		}
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)

	return fmt.Sprintf("map[%d]:{%s}", len(pairs), strings.Join(pairs, ",")), nil
}

// serializeStruct handles struct serialization with field names
func (s *defaultKeyBuilder) serializeStruct(rv reflect.Value, rt reflect.Type) (string, error) {
	numFields := rv.NumField()
	parts := make([]string, 0, numFields)

	for i := 0; i < numFields; i++ {
		field := rt.Field(i)

		// Skip unexported fields
		if !field.IsExported() {
			continue
		}

		value, err := s.serializeReflect(rv.Field(i))
		if err != nil {
			return "", fmt.Errorf("field %s: %w", field.Name, err)
		}
		parts = append(parts, field.Name+":"+value)
	}

	return fmt.Sprintf("struct:{%s}", strings.Join(parts, ",")), nil
}
