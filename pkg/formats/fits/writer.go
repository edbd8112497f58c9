package fits

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"strconv"

	"github.com/ajitpratap0/csvfits/pkg/columnar"
	"github.com/ajitpratap0/csvfits/pkg/errors"
)

// PrimaryHeader returns the header of an empty primary HDU
func PrimaryHeader() *Header {
	h := &Header{}
	h.Add("SIMPLE", true, "conforms to FITS standard")
	h.Add("BITPIX", int64(8), "array data type")
	h.Add("NAXIS", int64(0), "number of array dimensions")
	h.Add("EXTEND", true, "")
	return h
}

// BinTableHeader returns the BINTABLE extension header describing t
func BinTableHeader(t *columnar.Table) *Header {
	h := &Header{}
	h.Add("XTENSION", "BINTABLE", "binary table extension")
	h.Add("BITPIX", int64(8), "array data type")
	h.Add("NAXIS", int64(2), "number of array dimensions")
	h.Add("NAXIS1", int64(t.RowWidth()), "length of dimension 1")
	h.Add("NAXIS2", int64(t.RowCount()), "length of dimension 2")
	h.Add("PCOUNT", int64(0), "number of group parameters")
	h.Add("GCOUNT", int64(1), "number of groups")
	h.Add("TFIELDS", int64(t.NumColumns()), "number of table fields")
	for i, spec := range t.Columns() {
		n := strconv.Itoa(i + 1)
		h.Add("TTYPE"+n, spec.Name, "")
		h.Add("TFORM"+n, TForm(spec.Type), "")
	}
	return h
}

// Writer serializes a table as a FITS file: an empty primary HDU followed by
// one BINTABLE extension.
type Writer struct {
	w            *bufio.Writer
	bytesWritten int64
}

// NewWriter creates a FITS writer on top of w
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 64*1024)}
}

// WriteTable writes the complete file for t and flushes it to the
// underlying writer.
func (fw *Writer) WriteTable(t *columnar.Table) error {
	if err := fw.write(PrimaryHeader().Bytes()); err != nil {
		return err
	}
	if err := fw.write(BinTableHeader(t).Bytes()); err != nil {
		return err
	}
	if err := fw.writeData(t); err != nil {
		return err
	}
	if err := fw.w.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to flush FITS data")
	}
	return nil
}

// BytesWritten returns the number of bytes written so far
func (fw *Writer) BytesWritten() int64 {
	return fw.bytesWritten
}

func (fw *Writer) write(p []byte) error {
	n, err := fw.w.Write(p)
	fw.bytesWritten += int64(n)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write FITS data")
	}
	return nil
}

// writeData emits one big-endian record per row followed by zero fill up to
// the block boundary.
func (fw *Writer) writeData(t *columnar.Table) error {
	width := t.RowWidth()
	row := make([]byte, width)
	for r := 0; r < t.RowCount(); r++ {
		off := 0
		for c := 0; c < t.NumColumns(); c++ {
			off += putField(row[off:], t.Column(c), r)
		}
		if err := fw.write(row); err != nil {
			return err
		}
	}

	if pad := padding(width * t.RowCount()); pad > 0 {
		return fw.write(make([]byte, pad))
	}
	return nil
}

// putField encodes value r of col at the start of dst and returns its width
func putField(dst []byte, col columnar.Column, r int) int {
	switch c := col.(type) {
	case *columnar.Int64Column:
		binary.BigEndian.PutUint64(dst, uint64(c.Values()[r]))
		return 8
	case *columnar.Float64Column:
		binary.BigEndian.PutUint64(dst, math.Float64bits(c.Values()[r]))
		return 8
	case *columnar.Float32Column:
		binary.BigEndian.PutUint32(dst, math.Float32bits(c.Values()[r]))
		return 4
	case *columnar.BoolColumn:
		if c.Values()[r] {
			dst[0] = LogicalTrue
		} else {
			dst[0] = LogicalFalse
		}
		return 1
	default:
		return 0
	}
}

// Encode returns the complete FITS file for t
func Encode(t *columnar.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewWriter(&buf).WriteTable(t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
