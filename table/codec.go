package table

import (
	"bytes"
	"fmt"
	"math"

	"github.com/vmihailenco/msgpack/v5"
)

// Marshal encodes the table with msgpack for persistent cache tiers.
func Marshal(t *Table) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("table: cannot marshal nil table")
	}
	return msgpack.Marshal(t)
}

// Unmarshal decodes a table produced by Marshal. Cells keep the Go type they
// were encoded with, so a decoded table is Equal to the one marshalled.
func Unmarshal(data []byte) (*Table, error) {
	var t Table
	if err := msgpack.NewDecoder(bytes.NewReader(data)).Decode(&t); err != nil {
		return nil, fmt.Errorf("table: failed to unmarshal: %w", err)
	}
	if t.Rows == nil {
		t.Rows = make([][]any, 0)
	}

	for _, row := range t.Rows {
		for j := range row {
			row[j] = normalize(row[j])
		}
	}
	return &t, nil
}

// normalize maps the narrow number types a compact encoder may have written
// back to int64 and float64. Only conversions that lose nothing are made.
func normalize(v any) any {
	switch n := v.(type) {
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n)
		}
	case float32:
		return float64(n)
	}
	return v
}
