// Package formats provides the output file formats a parsed table can be
// written in. FITS is the default; Arrow IPC, Parquet and Avro object
// container files are available for downstream tooling that does not read
// FITS.
package formats

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/csvfits/pkg/columnar"
	"github.com/ajitpratap0/csvfits/pkg/compression"
	"github.com/ajitpratap0/csvfits/pkg/errors"
	"github.com/ajitpratap0/csvfits/pkg/formats/fits"
)

// Format represents an output file format
type Format string

const (
	// FITS is a FITS file with one binary table extension
	FITS Format = "fits"
	// Arrow is an Apache Arrow IPC file
	Arrow Format = "arrow"
	// Parquet is an Apache Parquet file
	Parquet Format = "parquet"
	// Avro is an Apache Avro object container file
	Avro Format = "avro"
	// Auto selects the format from the output file name
	Auto Format = "auto"
)

// Supported returns the concrete output formats, default first
func Supported() []Format {
	return []Format{FITS, Arrow, Parquet, Avro}
}

// Writer serializes a whole table
type Writer interface {
	// Write writes the complete file for t
	Write(t *columnar.Table) error
	// Format returns the output format
	Format() Format
	// BytesWritten returns bytes written to the underlying writer
	BytesWritten() int64
}

// NewWriter creates a writer for the given format
func NewWriter(format Format, w io.Writer) (Writer, error) {
	switch format {
	case FITS:
		return &fitsWriter{w: fits.NewWriter(w)}, nil
	case Arrow:
		return newArrowWriter(w), nil
	case Parquet:
		return newParquetWriter(w), nil
	case Avro:
		return newAvroWriter(w), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported output format: %s", format)
	}
}

// ParseFormat parses a format name as used in configuration
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", Auto:
		return Auto, nil
	case FITS, Arrow, Parquet, Avro:
		return f, nil
	default:
		return "", errors.Newf(errors.ErrorTypeConfig, "unknown output format %q", s)
	}
}

var extensions = map[string]Format{
	".fits":    FITS,
	".fit":     FITS,
	".fts":     FITS,
	".arrow":   Arrow,
	".feather": Arrow,
	".ipc":     Arrow,
	".parquet": Parquet,
	".pq":      Parquet,
	".avro":    Avro,
}

// DetectFormat returns the format implied by a file name, ignoring a
// compression suffix. Unknown extensions default to FITS.
func DetectFormat(path string) Format {
	ext := strings.ToLower(filepath.Ext(compression.TrimSuffix(path)))
	if f, ok := extensions[ext]; ok {
		return f
	}
	return FITS
}

// Resolve returns f, or the format detected from path when f is Auto
func Resolve(f Format, path string) Format {
	if f == Auto || f == "" {
		return DetectFormat(path)
	}
	return f
}

// FormatInfo provides information about an output format
type FormatInfo struct {
	Format        Format
	Name          string
	FileExtension string
	MIMEType      string
}

// GetFormatInfo returns information about an output format
func GetFormatInfo(format Format) *FormatInfo {
	switch format {
	case FITS:
		return &FormatInfo{
			Format:        FITS,
			Name:          "FITS binary table",
			FileExtension: ".fits",
			MIMEType:      "application/fits",
		}
	case Arrow:
		return &FormatInfo{
			Format:        Arrow,
			Name:          "Apache Arrow IPC file",
			FileExtension: ".arrow",
			MIMEType:      "application/vnd.apache.arrow.file",
		}
	case Parquet:
		return &FormatInfo{
			Format:        Parquet,
			Name:          "Apache Parquet file",
			FileExtension: ".parquet",
			MIMEType:      "application/vnd.apache.parquet",
		}
	case Avro:
		return &FormatInfo{
			Format:        Avro,
			Name:          "Apache Avro object container file",
			FileExtension: ".avro",
			MIMEType:      "application/avro",
		}
	default:
		return nil
	}
}

type fitsWriter struct {
	w *fits.Writer
}

func (fw *fitsWriter) Write(t *columnar.Table) error { return fw.w.WriteTable(t) }
func (fw *fitsWriter) Format() Format                { return FITS }
func (fw *fitsWriter) BytesWritten() int64           { return fw.w.BytesWritten() }

// countingWriter counts bytes passed to the underlying writer
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
