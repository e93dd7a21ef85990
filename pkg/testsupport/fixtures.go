package testsupport

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-query-cache/table"
)

// LoadFixture reads a fixture file relative to the test package directory.
func LoadFixture(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureYAML loads a YAML fixture and decodes it into dest.
func LoadFixtureYAML(t *testing.T, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := yaml.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to decode YAML fixture from %s: %v", path, err)
	}
}

// WriteTempFile writes content to name inside a test scoped temporary
// directory and returns the full path. The directory is removed with the test.
func WriteTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write temp file %s: %v", path, err)
	}
	return path
}

// WriteGolden writes data to a golden file, creating parent directories.
func WriteGolden(t *testing.T, path string, data []byte) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write golden file to %s: %v", path, err)
	}
}

// CompareWithGolden compares actual with the golden file at path.
// A missing golden file is created from actual.
func CompareWithGolden(t *testing.T, path string, actual []byte) {
	t.Helper()

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Logf("Golden file %s does not exist, creating it", path)
			WriteGolden(t, path, actual)
			return
		}
		t.Fatalf("failed to read golden file %s: %v", path, err)
	}

	if string(actual) != string(expected) {
		t.Errorf("output mismatch for %s:\nExpected:\n%s\nActual:\n%s", path, expected, actual)
	}
}

// CompareTableWithGolden renders tbl with RenderTable and compares it with
// the golden file at path.
func CompareTableWithGolden(t *testing.T, path string, tbl *table.Table) {
	t.Helper()
	CompareWithGolden(t, path, []byte(RenderTable(tbl)))
}

// RenderTable renders a table as tab separated text: a name:type header
// line followed by one line per row. NULL marks nil cells.
func RenderTable(tbl *table.Table) string {
	var b strings.Builder

	header := make([]string, len(tbl.Columns))
	for i, c := range tbl.Columns {
		header[i] = c.Name + ":" + string(c.Type)
	}
	b.WriteString(strings.Join(header, "\t"))
	b.WriteByte('\n')

	for _, row := range tbl.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = renderCell(cell)
		}
		b.WriteString(strings.Join(cells, "\t"))
		b.WriteByte('\n')
	}
	return b.String()
}

func renderCell(v any) string {
	switch c := v.(type) {
	case nil:
		return "NULL"
	case string:
		return c
	case int64:
		return strconv.FormatInt(c, 10)
	case float64:
		return strconv.FormatFloat(c, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(c)
	case time.Time:
		return c.UTC().Format(time.RFC3339Nano)
	case []byte:
		return "0x" + hex.EncodeToString(c)
	default:
		return fmt.Sprint(c)
	}
}

// FixturePath joins filename to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// GoldenPath joins filename to the testdata/golden directory.
func GoldenPath(filename string) string {
	return filepath.Join("testdata", "golden", filename)
}
