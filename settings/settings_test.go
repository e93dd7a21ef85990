package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/connection"
	"github.com/goliatone/go-query-cache/dataaccess"
	"github.com/goliatone/go-query-cache/parameter"
	"github.com/goliatone/go-query-cache/pkg/testsupport"
)

func loadTestSettings(t *testing.T) *File {
	t.Helper()
	t.Setenv("QUERYCACHE_TEST_DSN", ":memory:")
	f, err := Load(testsupport.FixturePath("settings.yaml"))
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	return f
}

func TestLoad(t *testing.T) {
	f := loadTestSettings(t)

	if f.ID != "sales-reports" || f.Path() != testsupport.FixturePath("settings.yaml") {
		t.Errorf("unexpected file header %q %q", f.ID, f.Path())
	}
	if len(f.Connections) != 1 || f.Connections[0].DSN != ":memory:" {
		t.Errorf("expected expanded DSN, got %+v", f.Connections)
	}
	if len(f.DataAccesses) != 2 {
		t.Fatalf("expected 2 data accesses, got %d", len(f.DataAccesses))
	}

	def, err := f.DataAccesses[0].Definition()
	if err != nil {
		t.Fatalf("definition: %v", err)
	}
	if !def.Cache || def.CacheDuration != 600 || def.ConnectionType != connection.TypeSQL {
		t.Errorf("unexpected cache policy %+v", def)
	}
	region, ok := def.Parameters.Get("region")
	if !ok || region.Type != parameter.TypeString || region.Access != parameter.AccessPublic || region.Default != "EMEA" {
		t.Errorf("unexpected region parameter %+v", region)
	}
	threshold, _ := def.Parameters.Get("min")
	if threshold.Default != float64(0) {
		t.Errorf("expected numeric default, got %#v", threshold.Default)
	}

	def, err = f.DataAccesses[1].Definition()
	if err != nil {
		t.Fatalf("definition: %v", err)
	}
	if def.Cache || def.CacheDuration != DefaultCacheDuration {
		t.Errorf("unexpected cache policy %+v", def)
	}
	ids, _ := def.Parameters.Get("ids")
	if got, ok := ids.Default.([]int64); !ok || len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("expected coerced array default, got %#v", ids.Default)
	}
	tenant, _ := def.Parameters.Get("tenant")
	if tenant.Public() {
		t.Error("expected tenant to be restricted")
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed yaml", "dataAccesses: [::"},
		{"no data accesses", "id: empty"},
		{"missing query", "connections: [{id: c, driver: sqlite3, dsn: x}]\ndataAccesses: [{id: a, connection: c}]"},
		{"undeclared connection", "dataAccesses: [{id: a, connection: other, query: SELECT 1}]"},
		{"duplicate data access", "connections: [{id: c, driver: sqlite3, dsn: x}]\ndataAccesses: [{id: a, connection: c, query: q}, {id: a, connection: c, query: q}]"},
		{"duplicate connection", "connections: [{id: c, driver: sqlite3, dsn: x}, {id: c, driver: sqlite3, dsn: y}]\ndataAccesses: [{id: a, connection: c, query: q}]"},
		{"unknown driver", "connections: [{id: c, driver: oracle, dsn: x}]\ndataAccesses: [{id: a, connection: c, query: q}]"},
		{"unknown parameter type", "connections: [{id: c, driver: sqlite3, dsn: x}]\ndataAccesses: [{id: a, connection: c, query: q, parameters: [{name: p, type: Blob}]}]"},
		{"unknown access", "connections: [{id: c, driver: sqlite3, dsn: x}]\ndataAccesses: [{id: a, connection: c, query: q, parameters: [{name: p, access: secret}]}]"},
		{"negative cache duration", "connections: [{id: c, driver: sqlite3, dsn: x}]\ndataAccesses: [{id: a, connection: c, query: q, cacheDuration: -1}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			var ge *goerrors.Error
			if !errors.As(err, &ge) || ge.Category != goerrors.CategoryValidation {
				t.Errorf("expected validation category, got %v", err)
			}
		})
	}
}

func TestParameterSpec_Constraints(t *testing.T) {
	intPtr := func(n int) *int { return &n }
	floatPtr := func(f float64) *float64 { return &f }

	tests := []struct {
		name    string
		spec    ParameterSpec
		valid   []any
		invalid []any
		wantErr bool
	}{
		{
			name:    "length",
			spec:    ParameterSpec{Name: "code", Constraints: &Constraints{MinLength: intPtr(2), MaxLength: intPtr(3)}},
			valid:   []any{"ab", "abc"},
			invalid: []any{"a", "abcd"},
		},
		{
			name:    "integer bounds",
			spec:    ParameterSpec{Name: "limit", Type: "Integer", Constraints: &Constraints{Min: floatPtr(1), Max: floatPtr(100)}},
			valid:   []any{int64(1), int64(100)},
			invalid: []any{int64(-5), int64(101)},
		},
		{
			name:    "numeric bounds",
			spec:    ParameterSpec{Name: "ratio", Type: "Numeric", Constraints: &Constraints{Min: floatPtr(0.5)}},
			valid:   []any{0.5, 2.0},
			invalid: []any{0.25},
		},
		{
			name:    "allowed values",
			spec:    ParameterSpec{Name: "region", Constraints: &Constraints{In: []any{"EMEA", "APAC"}}},
			valid:   []any{"EMEA"},
			invalid: []any{"AMER"},
		},
		{
			name:    "pattern",
			spec:    ParameterSpec{Name: "sku", Constraints: &Constraints{Match: `^[A-Z]{3}-\d+$`}},
			valid:   []any{"ABC-12"},
			invalid: []any{"abc-12"},
		},
		{
			name:    "required",
			spec:    ParameterSpec{Name: "q", Constraints: &Constraints{Required: true}},
			valid:   []any{"x"},
			invalid: []any{""},
		},
		{name: "length on integer", spec: ParameterSpec{Name: "n", Type: "Integer", Constraints: &Constraints{MaxLength: intPtr(2)}}, wantErr: true},
		{name: "fractional integer min", spec: ParameterSpec{Name: "n", Type: "Integer", Constraints: &Constraints{Min: floatPtr(1.5)}}, wantErr: true},
		{name: "fractional integer array max", spec: ParameterSpec{Name: "ids", Type: "IntegerArray", Constraints: &Constraints{Max: floatPtr(9.99)}}, wantErr: true},
		{name: "bounds on string", spec: ParameterSpec{Name: "s", Constraints: &Constraints{Min: floatPtr(1)}}, wantErr: true},
		{name: "bad regexp", spec: ParameterSpec{Name: "s", Constraints: &Constraints{Match: "("}}, wantErr: true},
		{name: "bad allowed value", spec: ParameterSpec{Name: "n", Type: "Integer", Constraints: &Constraints{In: []any{"x"}}}, wantErr: true},
		{name: "bad default", spec: ParameterSpec{Name: "n", Type: "Integer", Default: "ten"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.spec.Parameter()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parameter: %v", err)
			}

			for _, v := range tt.valid {
				if err := validation.Validate(v, p.Rules...); err != nil {
					t.Errorf("expected %v to pass, got %v", v, err)
				}
			}
			for _, v := range tt.invalid {
				if err := validation.Validate(v, p.Rules...); err == nil {
					t.Errorf("expected %v to fail", v)
				}
			}
		})
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	ctx := context.Background()

	store, err := cache.NewStore(ctx, cache.DefaultConfig())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	engine, err := Build(loadTestSettings(t), dataaccess.Dependencies{Store: store})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })

	conn, err := engine.Connections().Resolve(ctx, "main")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	db, err := conn.(*connection.SQL).DB()
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	for _, stmt := range []string{
		"CREATE TABLE orders (id INTEGER PRIMARY KEY, region TEXT NOT NULL, total REAL NOT NULL)",
		"INSERT INTO orders (id, region, total) VALUES (1, 'EMEA', 10), (2, 'EMEA', 30), (3, 'APAC', 5)",
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("exec: %v", err)
		}
	}
	return engine
}

func TestEngine_Query(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	if engine.ID() != "sales-reports" {
		t.Errorf("unexpected engine id %q", engine.ID())
	}
	if ids := engine.IDs(); len(ids) != 2 || ids[0] != "orders-by-id" || ids[1] != "orders-by-region" {
		t.Errorf("unexpected ids %v", ids)
	}

	tests := []struct {
		name     string
		opts     dataaccess.RequestOptions
		wantRows int
	}{
		{"defaults", dataaccess.RequestOptions{DataAccessID: "orders-by-region"}, 2},
		{"public override", dataaccess.RequestOptions{DataAccessID: "orders-by-region", Parameters: map[string]any{"min": "20"}}, 1},
		{"array default", dataaccess.RequestOptions{DataAccessID: "orders-by-id"}, 2},
		{"array override", dataaccess.RequestOptions{DataAccessID: "orders-by-id", Parameters: map[string]any{"ids": "3"}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Query(ctx, tt.opts)
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			if got.RowCount() != tt.wantRows {
				t.Errorf("expected %d rows, got %d", tt.wantRows, got.RowCount())
			}
		})
	}
}

func TestEngine_ConstraintViolation(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.Query(context.Background(), dataaccess.RequestOptions{
		DataAccessID: "orders-by-region",
		Parameters:   map[string]any{"region": "MARS"},
	})

	var pe *parameter.Error
	if !errors.As(err, &pe) || pe.Name != "region" {
		t.Errorf("expected parameter error for region, got %v", err)
	}
}

func TestEngine_UnknownDataAccess(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.Query(context.Background(), dataaccess.RequestOptions{DataAccessID: "missing"})
	var qe *dataaccess.QueryError
	if !errors.As(err, &qe) || qe.Stage != dataaccess.StageRoute || qe.DataAccessID != "missing" {
		t.Fatalf("expected route stage QueryError, got %v", err)
	}
	var unknown *UnknownDataAccessError
	if !errors.As(err, &unknown) || unknown.ID != "missing" {
		t.Errorf("expected UnknownDataAccessError, got %v", err)
	}
}

func TestEngine_Register(t *testing.T) {
	engine := NewEngine("", nil, nil)
	if engine.ID() == "" {
		t.Fatal("expected a generated id")
	}

	def := dataaccess.Definition{ID: "static", ConnectionType: connection.TypeNone, Query: "static rows"}
	da, err := dataaccess.New(def, testsupport.NewCountingPerformer(testsupport.SampleTable(2)), dataaccess.Dependencies{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := engine.Register(da); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := engine.Register(da); err == nil {
		t.Error("expected duplicate registration to fail")
	}

	got, err := engine.Query(context.Background(), dataaccess.RequestOptions{DataAccessID: "static"})
	if err != nil || got.RowCount() != 2 {
		t.Errorf("expected 2 rows, got %v %v", got, err)
	}
}

func TestEngine_SharedSettingsIDSeparatesFiles(t *testing.T) {
	ctx := context.Background()
	store, err := cache.NewStore(ctx, cache.DefaultConfig())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	run := func(settingsID string, rows int) int {
		performer := testsupport.NewCountingPerformer(testsupport.SampleTable(rows))
		def := dataaccess.Definition{ID: "same", ConnectionType: connection.TypeNone, Query: "q", Cache: true, CacheDuration: int(time.Minute / time.Second)}
		da, err := dataaccess.New(def, performer, dataaccess.Dependencies{Store: store, SettingsID: settingsID})
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		got, err := da.QueryDataSource(ctx, dataaccess.RequestOptions{})
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		return got.RowCount()
	}

	if got := run("first", 1); got != 1 {
		t.Fatalf("expected 1 row, got %d", got)
	}
	if got := run("second", 2); got != 2 {
		t.Errorf("expected a separate entry per settings id, got %d rows", got)
	}
}
