// Package csvfits converts comma separated catalogs into FITS binary tables.
//
// A conversion reads a CSV file whose first line names the columns, derives
// a fixed schema from those names and writes a FITS file with an empty
// primary HDU followed by one BINTABLE extension holding every row.
//
// # Quick Start
//
//	csvfits stars.csv stars.fits
//
// or from Go:
//
//	import (
//	    "context"
//	    "github.com/ajitpratap0/csvfits/internal/pipeline"
//	    "github.com/ajitpratap0/csvfits/pkg/config"
//	)
//
//	p := pipeline.NewPipeline(config.Default(), logger, nil)
//	result, err := p.Run(context.Background(), "stars.csv", "stars.fits")
//
// # Schema
//
// Header tokens are matched case-insensitively and renamed:
//
//	ra -> RA      dec -> DEC      ra_err -> RA_err      dec_err -> DEC_err
//	id -> id      starnotgal -> starnotgal
//
// and typed by the resulting name:
//
//	id          64-bit integer     TFORM K
//	starnotgal  logical (0 or 1)   TFORM L
//	RA, DEC     double precision   TFORM D
//	anything    single precision   TFORM E
//
// Every other name is kept verbatim.
//
// # Key Packages
//
//	pkg/schema       - Column name normalization and type assignment
//	pkg/columnar     - Typed column storage and the CSV loader
//	pkg/formats/fits - FITS header cards, binary table writer and reader
//	pkg/formats      - Output format selection (FITS, Arrow IPC, Parquet, Avro)
//	pkg/compression  - gzip, zstd and lz4 output streams
//	pkg/config       - Layered configuration (flags, environment, YAML)
//	pkg/errors       - Structured error handling
//	pkg/logger       - Structured logging
//	pkg/metrics      - Conversion metrics
//
// # Errors
//
// Every failure is fatal. The converter reports a typed error (schema,
// parse, malformed_row, io, ...) carrying the line number, column and
// offending text where known, exits with status 1 and leaves no output
// file behind.
package csvfits
