// Package table holds the in-memory tabular result produced by data accesses.
package table

import (
	"fmt"
	"time"
)

// ColumnType describes how cells of a column are typed.
type ColumnType string

const (
	TypeUnknown ColumnType = "unknown"
	TypeString  ColumnType = "string"
	TypeInteger ColumnType = "integer"
	TypeNumeric ColumnType = "numeric"
	TypeBoolean ColumnType = "boolean"
	TypeDate    ColumnType = "date"
)

// Column is a named, typed column.
type Column struct {
	Name string     `msgpack:"name" json:"name"`
	Type ColumnType `msgpack:"type" json:"type"`
}

// Table is an ordered set of columns and rows. Cells hold string, int64,
// float64, bool, time.Time, []byte or nil.
type Table struct {
	Columns []Column `msgpack:"columns" json:"columns"`
	Rows    [][]any  `msgpack:"rows" json:"rows"`
}

// New creates an empty table with the given columns.
func New(columns ...Column) *Table {
	return &Table{
		Columns: append([]Column(nil), columns...),
		Rows:    make([][]any, 0),
	}
}

// AddRow appends a row. The row must have one cell per column.
func (t *Table) AddRow(cells ...any) error {
	if len(cells) != len(t.Columns) {
		return fmt.Errorf("table: row has %d cells, expected %d", len(cells), len(t.Columns))
	}
	t.Rows = append(t.Rows, append([]any(nil), cells...))
	return nil
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnCount returns the number of columns.
func (t *Table) ColumnCount() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// ColumnIndex returns the index of the named column or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Value returns the cell at row, col.
func (t *Table) Value(row, col int) (any, error) {
	if row < 0 || row >= len(t.Rows) {
		return nil, fmt.Errorf("table: row %d out of range", row)
	}
	if col < 0 || col >= len(t.Columns) {
		return nil, fmt.Errorf("table: column %d out of range", col)
	}
	return t.Rows[row][col], nil
}

// SetValue replaces the cell at row, col.
func (t *Table) SetValue(row, col int, v any) error {
	if _, err := t.Value(row, col); err != nil {
		return err
	}
	t.Rows[row][col] = v
	return nil
}

// Equal reports whether both tables have the same columns and cell values.
func (t *Table) Equal(other *Table) bool {
	if t == nil || other == nil {
		return t == other
	}
	if len(t.Columns) != len(other.Columns) || len(t.Rows) != len(other.Rows) {
		return false
	}
	for i := range t.Columns {
		if t.Columns[i] != other.Columns[i] {
			return false
		}
	}
	for i := range t.Rows {
		if len(t.Rows[i]) != len(other.Rows[i]) {
			return false
		}
		for j := range t.Rows[i] {
			if !cellEqual(t.Rows[i][j], other.Rows[i][j]) {
				return false
			}
		}
	}
	return true
}

func cellEqual(a, b any) bool {
	switch av := a.(type) {
	case []byte:
		bv, ok := b.([]byte)
		return ok && string(av) == string(bv)
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	default:
		return a == b
	}
}
