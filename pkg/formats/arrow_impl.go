package formats

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/csvfits/pkg/columnar"
	"github.com/ajitpratap0/csvfits/pkg/errors"
	"github.com/ajitpratap0/csvfits/pkg/schema"
)

// RawNameKey is the field metadata key holding the original CSV header token
const RawNameKey = "csvfits.raw_name"

// arrowWriter writes the table as a single record batch in an Arrow IPC file
type arrowWriter struct {
	out  *countingWriter
	pool memory.Allocator
}

func newArrowWriter(w io.Writer) *arrowWriter {
	return &arrowWriter{
		out:  &countingWriter{w: w},
		pool: memory.NewGoAllocator(),
	}
}

func (aw *arrowWriter) Format() Format      { return Arrow }
func (aw *arrowWriter) BytesWritten() int64 { return aw.out.n }

func (aw *arrowWriter) Write(t *columnar.Table) error {
	record := tableToRecord(t, aw.pool)
	defer record.Release()

	fw, err := ipc.NewFileWriter(aw.out, ipc.WithSchema(record.Schema()), ipc.WithAllocator(aw.pool))
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to create Arrow writer")
	}
	if err := fw.Write(record); err != nil {
		_ = fw.Close()
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write record batch")
	}
	if err := fw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to close Arrow writer")
	}
	return nil
}

// tableToRecord copies t into a single Arrow record batch. The caller
// releases the record.
func tableToRecord(t *columnar.Table, pool memory.Allocator) arrow.Record {
	builder := array.NewRecordBuilder(pool, tableToArrowSchema(t))
	defer builder.Release()

	for i := 0; i < t.NumColumns(); i++ {
		switch col := t.Column(i).(type) {
		case *columnar.Int64Column:
			builder.Field(i).(*array.Int64Builder).AppendValues(col.Values(), nil)
		case *columnar.BoolColumn:
			builder.Field(i).(*array.BooleanBuilder).AppendValues(col.Values(), nil)
		case *columnar.Float64Column:
			builder.Field(i).(*array.Float64Builder).AppendValues(col.Values(), nil)
		case *columnar.Float32Column:
			builder.Field(i).(*array.Float32Builder).AppendValues(col.Values(), nil)
		}
	}
	return builder.NewRecord()
}

func tableToArrowSchema(t *columnar.Table) *arrow.Schema {
	fields := make([]arrow.Field, t.NumColumns())
	for i, spec := range t.Columns() {
		fields[i] = arrow.Field{
			Name:     spec.Name,
			Type:     arrowType(spec.Type),
			Nullable: false,
			Metadata: arrow.NewMetadata([]string{RawNameKey}, []string{spec.RawName}),
		}
	}
	return arrow.NewSchema(fields, nil)
}

func arrowType(t schema.ValueType) arrow.DataType {
	switch t {
	case schema.Int64:
		return arrow.PrimitiveTypes.Int64
	case schema.Bool:
		return arrow.FixedWidthTypes.Boolean
	case schema.Float64:
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.PrimitiveTypes.Float32
	}
}
