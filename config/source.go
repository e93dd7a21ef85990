// Package config reads process wide settings from the environment and YAML files.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source returns raw configuration values by dotted key.
type Source interface {
	Lookup(key string) (string, bool)
}

// EnvSource maps dotted keys to environment variables:
// querycache.query_time_threshold reads QUERYCACHE_QUERY_TIME_THRESHOLD.
type EnvSource struct {
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// EnvName returns the environment variable consulted for key.
func EnvName(key string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

func (e EnvSource) Lookup(key string) (string, bool) {
	lookup := e.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return lookup(EnvName(key))
}

// MapSource serves values from a map of dotted keys.
type MapSource map[string]string

func (m MapSource) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Chain consults each source in order and returns the first hit.
type Chain []Source

func (c Chain) Lookup(key string) (string, bool) {
	for _, src := range c {
		if src == nil {
			continue
		}
		if v, ok := src.Lookup(key); ok {
			return v, true
		}
	}
	return "", false
}

// FileSource holds the flattened contents of a YAML document. Nested
// mappings become dotted keys.
type FileSource struct {
	path   string
	values MapSource
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	src, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	src.path = path
	return src, nil
}

// ParseYAML builds a FileSource from YAML data.
func ParseYAML(data []byte) (*FileSource, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	values := MapSource{}
	flatten("", doc, values)
	return &FileSource{values: values}, nil
}

func flatten(prefix string, node any, out MapSource) {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			flatten(join(prefix, k), child, out)
		}
	case map[any]any:
		for k, child := range v {
			flatten(join(prefix, fmt.Sprint(k)), child, out)
		}
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = fmt.Sprint(item)
		}
		out[prefix] = strings.Join(parts, ",")
	case nil:
		out[prefix] = ""
	default:
		out[prefix] = fmt.Sprint(v)
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// Path is the file the source was loaded from, if any.
func (f *FileSource) Path() string { return f.path }

func (f *FileSource) Lookup(key string) (string, bool) {
	return f.values.Lookup(key)
}

// Keys lists the flattened keys in sorted order.
func (f *FileSource) Keys() []string {
	keys := make([]string, 0, len(f.values))
	for k := range f.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
