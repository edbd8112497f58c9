package columnar

import (
	"github.com/ajitpratap0/csvfits/pkg/errors"
	"github.com/ajitpratap0/csvfits/pkg/schema"
)

// Table is an immutable, fixed-schema set of equally long typed columns
type Table struct {
	specs   []schema.ColumnSpec
	columns []Column
	rows    int
}

// NewTable assembles a table from prebuilt columns. Every column must match
// its spec's type and all columns must have the same length.
func NewTable(specs []schema.ColumnSpec, columns []Column) (*Table, error) {
	if len(specs) != len(columns) {
		return nil, errors.Newf(errors.ErrorTypeInternal, "%d column specs for %d columns", len(specs), len(columns))
	}
	rows := 0
	for i, col := range columns {
		if col.Type() != specs[i].Type {
			return nil, errors.New(errors.ErrorTypeInternal, "column type does not match spec").
				WithDetail("column", specs[i].Name).
				WithDetail("expected", specs[i].Type.String()).
				WithDetail("actual", col.Type().String())
		}
		if i == 0 {
			rows = col.Len()
		} else if col.Len() != rows {
			return nil, errors.New(errors.ErrorTypeInternal, "ragged columns").
				WithDetail("column", specs[i].Name).
				WithDetail("expected", rows).
				WithDetail("actual", col.Len())
		}
	}
	return &Table{specs: specs, columns: columns, rows: rows}, nil
}

// Columns returns the column specs in table order
func (t *Table) Columns() []schema.ColumnSpec {
	out := make([]schema.ColumnSpec, len(t.specs))
	copy(out, t.specs)
	return out
}

// NumColumns returns the number of columns
func (t *Table) NumColumns() int { return len(t.specs) }

// RowCount returns the number of data rows
func (t *Table) RowCount() int { return t.rows }

// Spec returns the spec of column i
func (t *Table) Spec(i int) schema.ColumnSpec { return t.specs[i] }

// Column returns the data of column i
func (t *Table) Column(i int) Column { return t.columns[i] }

// ColumnIndex returns the position of the column with the given normalized
// name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, s := range t.specs {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// ColumnByName returns the column with the given normalized name
func (t *Table) ColumnByName(name string) (Column, bool) {
	i := t.ColumnIndex(name)
	if i < 0 {
		return nil, false
	}
	return t.columns[i], true
}

// RowWidth returns the number of bytes one packed binary row occupies
func (t *Table) RowWidth() int {
	w := 0
	for _, s := range t.specs {
		w += s.Type.Width()
	}
	return w
}

// MemoryUsage returns the approximate bytes held by column data
func (t *Table) MemoryUsage() int64 {
	var total int64
	for _, c := range t.columns {
		total += c.MemoryUsage()
	}
	return total
}

// Int64s returns the values of an Int64 column by name
func (t *Table) Int64s(name string) ([]int64, bool) {
	c, ok := t.ColumnByName(name)
	if !ok {
		return nil, false
	}
	ic, ok := c.(*Int64Column)
	if !ok {
		return nil, false
	}
	return ic.Values(), true
}

// Bools returns the values of a Bool column by name
func (t *Table) Bools(name string) ([]bool, bool) {
	c, ok := t.ColumnByName(name)
	if !ok {
		return nil, false
	}
	bc, ok := c.(*BoolColumn)
	if !ok {
		return nil, false
	}
	return bc.Values(), true
}

// Float64s returns the values of a Float64 column by name
func (t *Table) Float64s(name string) ([]float64, bool) {
	c, ok := t.ColumnByName(name)
	if !ok {
		return nil, false
	}
	fc, ok := c.(*Float64Column)
	if !ok {
		return nil, false
	}
	return fc.Values(), true
}

// Float32s returns the values of a Float32 column by name
func (t *Table) Float32s(name string) ([]float32, bool) {
	c, ok := t.ColumnByName(name)
	if !ok {
		return nil, false
	}
	fc, ok := c.(*Float32Column)
	if !ok {
		return nil, false
	}
	return fc.Values(), true
}
