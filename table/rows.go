package table

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FromRows drains rows into a Table. It does not close rows.
func FromRows(rows *sql.Rows) (*Table, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("table: failed to read column types: %w", err)
	}

	t := &Table{
		Columns: make([]Column, len(types)),
		Rows:    make([][]any, 0),
	}
	for i, ct := range types {
		t.Columns[i] = Column{Name: ct.Name(), Type: ColumnTypeFromDatabase(ct.DatabaseTypeName())}
	}

	for rows.Next() {
		cells := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("table: failed to scan row: %w", err)
		}
		for i := range cells {
			cells[i] = scanned(t.Columns[i].Type, cells[i])
		}
		t.Rows = append(t.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table: row iteration failed: %w", err)
	}

	inferUnknown(t)
	return t, nil
}

// ColumnTypeFromDatabase maps a driver type name to a ColumnType.
func ColumnTypeFromDatabase(name string) ColumnType {
	n := strings.ToUpper(name)
	if i := strings.IndexByte(n, '('); i >= 0 {
		n = n[:i]
	}
	switch n {
	case "INTEGER", "INT", "INT2", "INT4", "INT8", "BIGINT", "SMALLINT", "TINYINT", "SERIAL", "BIGSERIAL":
		return TypeInteger
	case "REAL", "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "DOUBLE PRECISION", "NUMERIC", "DECIMAL":
		return TypeNumeric
	case "TEXT", "VARCHAR", "CHAR", "BPCHAR", "NVARCHAR", "CLOB", "UUID", "NAME":
		return TypeString
	case "BOOL", "BOOLEAN":
		return TypeBoolean
	case "DATE", "DATETIME", "TIMESTAMP", "TIMESTAMPTZ", "TIME":
		return TypeDate
	default:
		return TypeUnknown
	}
}

func scanned(ct ColumnType, v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	switch ct {
	case TypeNumeric:
		if f, err := strconv.ParseFloat(string(b), 64); err == nil {
			return f
		}
		return string(b)
	case TypeString, TypeUnknown:
		return string(b)
	default:
		return append([]byte(nil), b...)
	}
}

// inferUnknown types columns the driver did not describe (sqlite expressions)
// from the first non-nil value.
func inferUnknown(t *Table) {
	for i, c := range t.Columns {
		if c.Type != TypeUnknown {
			continue
		}
		for _, row := range t.Rows {
			if row[i] == nil {
				continue
			}
			switch row[i].(type) {
			case int64:
				t.Columns[i].Type = TypeInteger
			case float64:
				t.Columns[i].Type = TypeNumeric
			case string:
				t.Columns[i].Type = TypeString
			case bool:
				t.Columns[i].Type = TypeBoolean
			case time.Time:
				t.Columns[i].Type = TypeDate
			}
			break
		}
	}
}
