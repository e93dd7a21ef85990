// Package settings loads connections and data access definitions from YAML
// and routes requests to the data accesses they describe.
package settings

import (
	"fmt"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-query-cache/connection"
	"github.com/goliatone/go-query-cache/parameter"
)

// File is a settings document.
type File struct {
	// ID takes part in every cache key built for the file's data accesses.
	// A random id is assigned when empty.
	ID           string           `yaml:"id"`
	Connections  []ConnectionSpec `yaml:"connections"`
	DataAccesses []DataAccessSpec `yaml:"dataAccesses"`

	path string
}

// ConnectionSpec declares a connection. DSN values go through environment
// variable expansion, so credentials can stay out of the file.
type ConnectionSpec struct {
	ID     string `yaml:"id"`
	Type   string `yaml:"type"`
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// DataAccessSpec declares a data access.
type DataAccessSpec struct {
	ID            string          `yaml:"id"`
	Name          string          `yaml:"name"`
	Connection    string          `yaml:"connection"`
	Type          string          `yaml:"type"`
	Query         string          `yaml:"query"`
	Cache         *bool           `yaml:"cache"`
	CacheDuration *int            `yaml:"cacheDuration"`
	Parameters    []ParameterSpec `yaml:"parameters"`
}

// ParameterSpec declares a data access parameter.
type ParameterSpec struct {
	Name        string       `yaml:"name"`
	Type        string       `yaml:"type"`
	Default     any          `yaml:"default"`
	Access      string       `yaml:"access"`
	Pattern     string       `yaml:"pattern"`
	Separator   string       `yaml:"separator"`
	Constraints *Constraints `yaml:"constraints"`
}

// Constraints restrict the values a public parameter accepts.
type Constraints struct {
	Required  bool     `yaml:"required"`
	MinLength *int     `yaml:"minLength"`
	MaxLength *int     `yaml:"maxLength"`
	Min       *float64 `yaml:"min"`
	Max       *float64 `yaml:"max"`
	In        []any    `yaml:"in"`
	Match     string   `yaml:"match"`
}

// Defaults applied to data accesses that leave the cache policy unset.
const (
	DefaultCache         = true
	DefaultCacheDuration = 3600
)

// Load reads and validates a settings file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, fmt.Sprintf("cannot read settings file %s", path)).
			WithTextCode("SETTINGS_READ")
	}
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	f.path = path
	return f, nil
}

// Parse decodes and validates a settings document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "malformed settings document").
			WithTextCode("SETTINGS_MALFORMED")
	}
	for i := range f.Connections {
		f.Connections[i].DSN = os.ExpandEnv(f.Connections[i].DSN)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Path is the file the settings were loaded from, if any.
func (f *File) Path() string { return f.path }

// Validate checks every declaration and the uniqueness of ids.
func (f *File) Validate() error {
	err := validation.ValidateStruct(f,
		validation.Field(&f.Connections, validation.By(uniqueIDs(func(i int) string { return f.Connections[i].ID }, len(f.Connections)))),
		validation.Field(&f.DataAccesses, validation.Required, validation.By(uniqueIDs(func(i int) string { return f.DataAccesses[i].ID }, len(f.DataAccesses)))),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid settings").
			WithTextCode("SETTINGS_INVALID")
	}

	known := make(map[string]struct{}, len(f.Connections))
	for _, c := range f.Connections {
		known[c.ID] = struct{}{}
	}
	for _, da := range f.DataAccesses {
		if da.Connection == "" {
			continue
		}
		if _, ok := known[da.Connection]; !ok {
			return goerrors.New(fmt.Sprintf("data access %q references undeclared connection %q", da.ID, da.Connection),
				goerrors.CategoryValidation).WithTextCode("SETTINGS_INVALID")
		}
	}
	return nil
}

func uniqueIDs(id func(int) string, n int) validation.RuleFunc {
	return func(any) error {
		seen := make(map[string]struct{}, n)
		for i := 0; i < n; i++ {
			if _, dup := seen[id(i)]; dup {
				return fmt.Errorf("duplicate id %q", id(i))
			}
			seen[id(i)] = struct{}{}
		}
		return nil
	}
}

// Validate implements validation.Validatable.
func (c ConnectionSpec) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ID, validation.Required),
		validation.Field(&c.Type, validation.In("", string(connection.TypeSQL))),
		validation.Field(&c.Driver, validation.Required, validation.In(connection.DriverSQLite, connection.DriverPostgres)),
		validation.Field(&c.DSN, validation.Required),
	)
}

// Validate implements validation.Validatable.
func (d DataAccessSpec) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.ID, validation.Required),
		validation.Field(&d.Query, validation.Required),
		validation.Field(&d.Type, validation.In("", string(connection.TypeSQL))),
		validation.Field(&d.Connection, validation.Required),
		validation.Field(&d.CacheDuration, validation.Min(0)),
		validation.Field(&d.Parameters),
	)
}

// Validate implements validation.Validatable.
func (p ParameterSpec) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Access, validation.By(func(any) error {
			_, err := parameter.ParseAccess(p.Access)
			return err
		})),
		validation.Field(&p.Type, validation.By(func(any) error {
			_, err := parameter.ParseType(p.Type)
			return err
		})),
	)
}

func (d DataAccessSpec) cache() bool {
	if d.Cache == nil {
		return DefaultCache
	}
	return *d.Cache
}

func (d DataAccessSpec) cacheDuration() int {
	if d.CacheDuration == nil {
		return DefaultCacheDuration
	}
	return *d.CacheDuration
}

func (d DataAccessSpec) connectionType() connection.Type {
	if strings.TrimSpace(d.Type) == "" {
		return connection.TypeSQL
	}
	return connection.Type(d.Type)
}
