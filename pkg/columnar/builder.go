package columnar

import (
	"bufio"
	"io"
	"strings"

	"github.com/ajitpratap0/csvfits/pkg/errors"
	"github.com/ajitpratap0/csvfits/pkg/schema"
)

const (
	defaultCapacity = 1024
	utf8BOM         = "\ufeff"
)

// Builder parses CSV data lines into typed columns. A Builder is single use:
// after Build it must not be appended to.
type Builder struct {
	specs   []schema.ColumnSpec
	columns []Column
	rows    int
}

// NewBuilder creates a builder for the resolved column specs
func NewBuilder(specs []schema.ColumnSpec) *Builder {
	columns := make([]Column, len(specs))
	for i, s := range specs {
		columns[i] = NewColumn(s.Type, defaultCapacity)
	}
	return &Builder{specs: specs, columns: columns}
}

// AppendLine splits one data line on the delimiter and appends its fields.
// lineNo is the 1-based line number in the source file and is only used for
// error context.
func (b *Builder) AppendLine(lineNo int, line string) error {
	return b.AppendFields(lineNo, strings.Split(line, schema.Delimiter))
}

// AppendFields appends one row. Values already appended for a row that
// fails to parse are rolled back, so the builder is left unchanged.
func (b *Builder) AppendFields(lineNo int, fields []string) error {
	if len(fields) != len(b.specs) {
		return errors.New(errors.ErrorTypeMalformedRow, "wrong number of fields").
			WithDetail("line", lineNo).
			WithDetail("expected", len(b.specs)).
			WithDetail("actual", len(fields))
	}

	for i, field := range fields {
		text := strings.TrimSpace(field)
		if err := b.columns[i].Parse(text); err != nil {
			b.truncate(i)
			return errors.Wrap(err, errors.ErrorTypeParse, "invalid "+b.specs[i].Type.String()+" value").
				WithDetail("line", lineNo).
				WithDetail("column", b.specs[i].Name).
				WithDetail("type", b.specs[i].Type.String()).
				WithDetail("value", text)
		}
	}
	b.rows++
	return nil
}

// truncate drops the values appended to the first n columns by a failed row.
func (b *Builder) truncate(n int) {
	for i := 0; i < n; i++ {
		switch c := b.columns[i].(type) {
		case *Int64Column:
			c.values = c.values[:b.rows]
		case *BoolColumn:
			c.values = c.values[:b.rows]
		case *Float64Column:
			c.values = c.values[:b.rows]
		case *Float32Column:
			c.values = c.values[:b.rows]
		}
	}
}

// RowCount returns the number of rows appended so far
func (b *Builder) RowCount() int { return b.rows }

// Build freezes the builder into a Table
func (b *Builder) Build() *Table {
	t := &Table{specs: b.specs, columns: b.columns, rows: b.rows}
	b.specs, b.columns = nil, nil
	return t
}

// Load reads a whole CSV document: the first line is the header, every
// following non-blank line is a data row.
func Load(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)

	header, err := readLine(br)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to read header line")
	}
	specs, serr := schema.Resolve(strings.TrimPrefix(header, utf8BOM))
	if serr != nil {
		return nil, serr
	}

	b := NewBuilder(specs)
	for lineNo := 2; err != io.EOF; lineNo++ {
		var line string
		line, err = readLine(br)
		if err != nil && err != io.EOF {
			return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to read data line").
				WithDetail("line", lineNo)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if aerr := b.AppendLine(lineNo, line); aerr != nil {
			return nil, aerr
		}
	}
	return b.Build(), nil
}

// readLine returns the next line without its terminator. It returns io.EOF
// together with the final unterminated line, if any.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, err
}
