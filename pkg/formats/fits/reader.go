package fits

import (
	"encoding/binary"
	"io"
	"math"
	"strconv"

	"github.com/ajitpratap0/csvfits/pkg/columnar"
	"github.com/ajitpratap0/csvfits/pkg/errors"
	"github.com/ajitpratap0/csvfits/pkg/schema"
)

// File is a decoded FITS file: its primary header and the first binary
// table extension.
type File struct {
	Primary   *Header
	Extension *Header
	Table     *columnar.Table
	// Skipped counts extensions before the binary table that were not read.
	Skipped int
}

// Read decodes a FITS file and loads its first BINTABLE extension
func Read(r io.Reader) (*File, error) {
	primary, err := readHeader(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New(errors.ErrorTypeFormat, "empty FITS file")
		}
		return nil, err
	}
	if simple, ok := primary.Bool("SIMPLE"); !ok || !simple {
		return nil, errors.New(errors.ErrorTypeFormat, "not a FITS file: SIMPLE = T missing")
	}
	if err := skipData(r, primary); err != nil {
		return nil, err
	}

	f := &File{Primary: primary}
	for {
		ext, err := readHeader(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New(errors.ErrorTypeFormat, "no BINTABLE extension found")
			}
			return nil, err
		}
		if xt, _ := ext.String("XTENSION"); xt == "BINTABLE" {
			f.Extension = ext
			break
		}
		if err := skipData(r, ext); err != nil {
			return nil, err
		}
		f.Skipped++
	}

	table, err := readTable(r, f.Extension)
	if err != nil {
		return nil, err
	}
	f.Table = table
	return f, nil
}

// readHeader reads whole blocks until the END card. It returns io.EOF
// unwrapped when the stream ends cleanly before a new header.
func readHeader(r io.Reader) (*Header, error) {
	h := &Header{}
	block := make([]byte, BlockSize)
	for first := true; ; first = false {
		if _, err := io.ReadFull(r, block); err != nil {
			if first && err == io.EOF {
				return nil, io.EOF
			}
			return nil, errors.Wrap(err, errors.ErrorTypeFormat, "truncated FITS header")
		}
		for off := 0; off < BlockSize; off += CardSize {
			card, err := ParseCard(string(block[off : off+CardSize]))
			if err != nil {
				return nil, err
			}
			if card.Keyword == "END" {
				return h, nil
			}
			if card.Keyword == "" && card.Value == nil && card.Comment == "" {
				continue
			}
			h.Cards = append(h.Cards, card)
		}
	}
}

// dataSize returns the unpadded data length an HDU header announces
func dataSize(h *Header) (int64, error) {
	naxis, err := h.Int("NAXIS")
	if err != nil {
		return 0, err
	}
	if naxis == 0 {
		return 0, nil
	}
	bitpix, err := h.Int("BITPIX")
	if err != nil {
		return 0, err
	}
	size := int64(1)
	for i := int64(1); i <= naxis; i++ {
		n, err := h.Int("NAXIS" + strconv.FormatInt(i, 10))
		if err != nil {
			return 0, err
		}
		if n < 0 {
			return 0, errors.New(errors.ErrorTypeFormat, "negative axis length").
				WithDetail("keyword", "NAXIS"+strconv.FormatInt(i, 10))
		}
		size *= n
	}
	if bitpix < 0 {
		bitpix = -bitpix
	}
	pcount, gcount := int64(0), int64(1)
	if _, ok := h.Get("PCOUNT"); ok {
		if pcount, err = h.Int("PCOUNT"); err != nil {
			return 0, err
		}
	}
	if _, ok := h.Get("GCOUNT"); ok {
		if gcount, err = h.Int("GCOUNT"); err != nil {
			return 0, err
		}
	}
	return bitpix / 8 * gcount * (pcount + size), nil
}

func skipData(r io.Reader, h *Header) error {
	size, err := dataSize(h)
	if err != nil {
		return err
	}
	size += int64(padding(int(size % BlockSize)))
	if _, err := io.CopyN(io.Discard, r, size); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFormat, "truncated FITS data")
	}
	return nil
}

// MaxFields is the largest TFIELDS a binary table may declare
const MaxFields = 999

// maxInitialRows bounds the capacity preallocated from NAXIS2, which is
// untrusted until the rows have actually been read.
const maxInitialRows = 1024

func checkTableShape(width, rows, nfields int64) error {
	switch {
	case width < 0:
		return errors.New(errors.ErrorTypeFormat, "negative NAXIS1").WithDetail("naxis1", width)
	case rows < 0:
		return errors.New(errors.ErrorTypeFormat, "negative NAXIS2").WithDetail("naxis2", rows)
	case nfields < 0 || nfields > MaxFields:
		return errors.New(errors.ErrorTypeFormat, "TFIELDS out of range").WithDetail("tfields", nfields)
	case nfields == 0 && rows > 0:
		return errors.New(errors.ErrorTypeFormat, "rows declared without columns").
			WithDetail("naxis2", rows)
	}
	return nil
}

func readTable(r io.Reader, h *Header) (*columnar.Table, error) {
	width, err := h.Int("NAXIS1")
	if err != nil {
		return nil, err
	}
	rows, err := h.Int("NAXIS2")
	if err != nil {
		return nil, err
	}
	nfields, err := h.Int("TFIELDS")
	if err != nil {
		return nil, err
	}
	if err := checkTableShape(width, rows, nfields); err != nil {
		return nil, err
	}

	specs := make([]schema.ColumnSpec, nfields)
	columns := make([]columnar.Column, nfields)
	sum := int64(0)
	for i := range specs {
		n := strconv.Itoa(i + 1)
		tform, ok := h.String("TFORM" + n)
		if !ok {
			return nil, errors.New(errors.ErrorTypeFormat, "missing column format").WithDetail("keyword", "TFORM"+n)
		}
		vt, err := ParseTForm(tform)
		if err != nil {
			return nil, err
		}
		name, ok := h.String("TTYPE" + n)
		if !ok {
			name = "col" + n
		}
		specs[i] = schema.ColumnSpec{RawName: name, Name: name, Type: vt}
		columns[i] = columnar.NewColumn(vt, int(min(rows, maxInitialRows)))
		sum += int64(vt.Width())
	}
	if sum != width {
		return nil, errors.New(errors.ErrorTypeFormat, "NAXIS1 does not match column formats").
			WithDetail("naxis1", width).
			WithDetail("sum", sum)
	}

	row := make([]byte, width)
	for n := int64(0); n < rows; n++ {
		if _, err := io.ReadFull(r, row); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFormat, "truncated table data").WithDetail("row", n+1)
		}
		off := 0
		for i, col := range columns {
			w := specs[i].Type.Width()
			if err := col.Append(decodeField(row[off:off+w], specs[i].Type)); err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeFormat, "invalid field").WithDetail("row", n+1)
			}
			off += w
		}
	}

	return columnar.NewTable(specs, columns)
}

func decodeField(b []byte, t schema.ValueType) interface{} {
	switch t {
	case schema.Int64:
		return int64(binary.BigEndian.Uint64(b))
	case schema.Float64:
		return math.Float64frombits(binary.BigEndian.Uint64(b))
	case schema.Bool:
		return b[0] == LogicalTrue
	default:
		return math.Float32frombits(binary.BigEndian.Uint32(b))
	}
}
