package table

// Copier produces value-independent copies of a table.
type Copier interface {
	Copy(t *Table) (*Table, error)
}

// CopierFunc adapts a function to Copier.
type CopierFunc func(t *Table) (*Table, error)

// Copy implements Copier.
func (f CopierFunc) Copy(t *Table) (*Table, error) {
	return f(t)
}

// DeepCopier copies tables with Table.Copy.
type DeepCopier struct{}

// Copy implements Copier.
func (DeepCopier) Copy(t *Table) (*Table, error) {
	return t.Copy(), nil
}

var _ Copier = DeepCopier{}

// Copy returns a deep copy. Byte slice cells are duplicated; all other cell
// kinds are immutable values.
func (t *Table) Copy() *Table {
	if t == nil {
		return nil
	}

	out := &Table{
		Columns: append([]Column(nil), t.Columns...),
		Rows:    make([][]any, len(t.Rows)),
	}
	for i, row := range t.Rows {
		cp := make([]any, len(row))
		for j, cell := range row {
			if b, ok := cell.([]byte); ok {
				cell = append([]byte(nil), b...)
			}
			cp[j] = cell
		}
		out.Rows[i] = cp
	}
	return out
}
