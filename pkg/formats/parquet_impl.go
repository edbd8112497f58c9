package formats

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ajitpratap0/csvfits/pkg/columnar"
	"github.com/ajitpratap0/csvfits/pkg/errors"
)

// parquetRowGroupSize bounds the rows per row group
const parquetRowGroupSize = 1 << 20

// parquetWriter writes the table through the Arrow to Parquet bridge with
// snappy compressed column chunks
type parquetWriter struct {
	out  *countingWriter
	pool memory.Allocator
}

func newParquetWriter(w io.Writer) *parquetWriter {
	return &parquetWriter{
		out:  &countingWriter{w: w},
		pool: memory.NewGoAllocator(),
	}
}

func (pw *parquetWriter) Format() Format      { return Parquet }
func (pw *parquetWriter) BytesWritten() int64 { return pw.out.n }

func (pw *parquetWriter) Write(t *columnar.Table) error {
	record := tableToRecord(t, pw.pool)
	defer record.Release()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithMaxRowGroupLength(parquetRowGroupSize),
		parquet.WithAllocator(pw.pool),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(pw.pool),
		pqarrow.WithStoreSchema(),
	)

	// countingWriter is not an io.Closer, so closing the file writer
	// leaves the compression stream open for the caller.
	fw, err := pqarrow.NewFileWriter(record.Schema(), pw.out, props, arrowProps)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to create Parquet writer")
	}
	if err := fw.Write(record); err != nil {
		_ = fw.Close()
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write row group")
	}
	if err := fw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to close Parquet writer")
	}
	return nil
}
