package sqlaccess

import (
	"context"
	"testing"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/connection"
	"github.com/goliatone/go-query-cache/dataaccess"
	"github.com/goliatone/go-query-cache/parameter"
	"github.com/goliatone/go-query-cache/pkg/testsupport"
	"github.com/goliatone/go-query-cache/table"
)

func newTestConnection(t *testing.T) *connection.SQL {
	t.Helper()
	conn, err := connection.NewSQL("main", connection.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("new connection: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	db, err := conn.DB()
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	ctx := context.Background()
	statements := []string{
		"CREATE TABLE orders (id INTEGER PRIMARY KEY, region TEXT NOT NULL, total REAL NOT NULL)",
		"INSERT INTO orders (id, region, total) VALUES (1, 'EMEA', 10.5), (2, 'EMEA', 20), (3, 'APAC', 7.25), (4, 'AMER', 3)",
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return conn
}

func resolve(t *testing.T, overrides map[string]any, params ...parameter.Parameter) parameter.Resolved {
	t.Helper()
	resolved, err := parameter.Resolve(parameter.MustSet(params...), overrides)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return resolved
}

func TestPerformer_NamedParameters(t *testing.T) {
	conn := newTestConnection(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		query   string
		params  parameter.Resolved
		wantIDs []int64
	}{
		{
			name:    "scalar parameter",
			query:   "SELECT id, total FROM orders WHERE region = ?region ORDER BY id",
			params:  resolve(t, nil, parameter.Parameter{Name: "region", Type: parameter.TypeString, Default: "EMEA"}),
			wantIDs: []int64{1, 2},
		},
		{
			name:  "array parameter",
			query: "SELECT id, total FROM orders WHERE id IN (?ids) ORDER BY id",
			params: resolve(t, map[string]any{"ids": "3;4"},
				parameter.Parameter{Name: "ids", Type: parameter.TypeIntegerArray, Default: []int64{1}}),
			wantIDs: []int64{3, 4},
		},
		{
			name:  "numeric and string together",
			query: "SELECT id, total FROM orders WHERE region = ?region AND total > ?min ORDER BY id",
			params: resolve(t, nil,
				parameter.Parameter{Name: "region", Type: parameter.TypeString, Default: "EMEA"},
				parameter.Parameter{Name: "min", Type: parameter.TypeNumeric, Default: 15.0},
			),
			wantIDs: []int64{2},
		},
		{
			name:    "no parameters",
			query:   "SELECT id, total FROM orders ORDER BY id",
			wantIDs: []int64{1, 2, 3, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			performer := NewPerformer()
			defer performer.CloseDataSource()

			got, err := performer.PerformRawQuery(ctx, conn, tt.query, tt.params)
			if err != nil {
				t.Fatalf("perform: %v", err)
			}

			if got.ColumnCount() != 2 || got.Columns[0].Name != "id" || got.Columns[1].Name != "total" {
				t.Fatalf("unexpected columns %+v", got.Columns)
			}
			if got.Columns[0].Type != table.TypeInteger || got.Columns[1].Type != table.TypeNumeric {
				t.Errorf("unexpected column types %+v", got.Columns)
			}
			if got.RowCount() != len(tt.wantIDs) {
				t.Fatalf("expected %d rows, got %d", len(tt.wantIDs), got.RowCount())
			}
			for i, want := range tt.wantIDs {
				if id, _ := got.Value(i, 0); id != want {
					t.Errorf("row %d: expected id %d, got %v", i, want, id)
				}
			}
		})
	}
}

func TestPerformer_GoldenResult(t *testing.T) {
	conn := newTestConnection(t)
	performer := NewPerformer()
	defer performer.CloseDataSource()

	params := resolve(t, nil, parameter.Parameter{Name: "region", Type: parameter.TypeString, Default: "EMEA"})
	got, err := performer.PerformRawQuery(context.Background(), conn, "SELECT id, total FROM orders WHERE region = ?region ORDER BY id", params)
	if err != nil {
		t.Fatalf("perform: %v", err)
	}

	testsupport.CompareTableWithGolden(t, testsupport.GoldenPath("orders_emea.golden"), got)
}

func TestPerformer_CloseDataSource(t *testing.T) {
	conn := newTestConnection(t)
	performer := NewPerformer()

	if err := performer.CloseDataSource(); err != nil {
		t.Fatalf("close without query: %v", err)
	}

	if _, err := performer.PerformRawQuery(context.Background(), conn, "SELECT id FROM orders", parameter.Resolved{}); err != nil {
		t.Fatalf("perform: %v", err)
	}
	if performer.rows == nil {
		t.Fatal("expected result set to stay open until closed")
	}
	if err := performer.CloseDataSource(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if performer.rows != nil {
		t.Error("expected result set to be released")
	}
	if err := performer.CloseDataSource(); err != nil {
		t.Errorf("expected second close to be a no-op, got %v", err)
	}
}

func TestPerformer_Errors(t *testing.T) {
	conn := newTestConnection(t)
	performer := NewPerformer()
	defer performer.CloseDataSource()

	if _, err := performer.PerformRawQuery(context.Background(), connection.None{}, "SELECT 1", parameter.Resolved{}); err == nil {
		t.Error("expected non SQL connection to be rejected")
	}
	if _, err := performer.PerformRawQuery(context.Background(), conn, "SELECT * FROM missing", parameter.Resolved{}); err == nil {
		t.Error("expected query error for unknown table")
	}
}

func TestNewDataAccess(t *testing.T) {
	ctx := context.Background()
	conn := newTestConnection(t)
	catalog := connection.NewCatalog()
	if err := catalog.Register(conn); err != nil {
		t.Fatalf("register: %v", err)
	}
	store, err := cache.NewStore(ctx, cache.DefaultConfig())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	def := dataaccess.Definition{
		ID:            "orders-by-region",
		ConnectionID:  "main",
		Query:         "SELECT id, total FROM orders WHERE region = ?region ORDER BY id",
		Cache:         true,
		CacheDuration: 60,
		Parameters: parameter.MustSet(
			parameter.Parameter{Name: "region", Type: parameter.TypeString, Default: "EMEA"},
		),
	}

	da, err := NewDataAccess(def, dataaccess.Dependencies{Store: store, Connections: catalog})
	if err != nil {
		t.Fatalf("new data access: %v", err)
	}

	first, err := da.QueryDataSource(ctx, dataaccess.RequestOptions{})
	if err != nil {
		t.Fatalf("first query: %v", err)
	}
	if first.RowCount() != 2 {
		t.Fatalf("expected 2 EMEA rows, got %d", first.RowCount())
	}

	// a changed table is not seen until the entry expires
	db, _ := conn.DB()
	if _, err := db.ExecContext(ctx, "INSERT INTO orders (id, region, total) VALUES (5, 'EMEA', 1)"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	cached, err := da.QueryDataSource(ctx, dataaccess.RequestOptions{})
	if err != nil {
		t.Fatalf("cached query: %v", err)
	}
	if !cached.Equal(first) {
		t.Errorf("expected cached result, got %+v", cached)
	}

	fresh, err := da.QueryDataSource(ctx, dataaccess.RequestOptions{CacheBypass: true})
	if err != nil {
		t.Fatalf("bypass query: %v", err)
	}
	if fresh.RowCount() != 3 {
		t.Errorf("expected bypass to see 3 rows, got %d", fresh.RowCount())
	}

	apac, err := da.QueryDataSource(ctx, dataaccess.RequestOptions{Parameters: map[string]any{"region": "APAC"}})
	if err != nil {
		t.Fatalf("override query: %v", err)
	}
	if apac.RowCount() != 1 {
		t.Errorf("expected 1 APAC row, got %d", apac.RowCount())
	}
}

func TestNewDataAccess_RejectsOtherConnectionTypes(t *testing.T) {
	def := dataaccess.Definition{
		ID:             "static",
		ConnectionType: connection.TypeNone,
		Query:          "SELECT 1",
	}
	if _, err := NewDataAccess(def, dataaccess.Dependencies{}); err == nil {
		t.Fatal("expected a non SQL definition to be rejected")
	}
}
