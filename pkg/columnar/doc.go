// Package columnar holds the typed, in-memory table a CSV document is parsed
// into before serialization.
//
// # Overview
//
// A Table is built exactly once, in one pass over the input:
//
//	t, err := columnar.Load(file)
//
// Load resolves the header line with the schema package and then parses every
// data line field by field into one Column per header token. Columns are
// homogeneous (Int64Column, BoolColumn, Float64Column, Float32Column) and are
// always the same length, because rows are appended across all columns at
// once and a row that fails to parse is rolled back.
//
// # Errors
//
// Load and Builder.AppendLine report errors from the errors package:
//   - ErrorTypeSchema for an empty or invalid header
//   - ErrorTypeMalformedRow when a line has a different number of fields
//     than the header
//   - ErrorTypeParse when a field does not match its column type; the error
//     carries the line number, column name and offending text
//   - ErrorTypeIO when the underlying reader fails
//
// # Concurrency
//
// Builders are not safe for concurrent use. A built Table is read-only and
// may be shared.
package columnar
