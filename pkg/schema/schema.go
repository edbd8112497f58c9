// Package schema resolves a CSV header line into typed column specifications.
//
// Column types are never sniffed from data. A small fixed table keyed on the
// column name decides the type, and everything not listed is single precision
// float:
//
//	id          -> Int64
//	starnotgal  -> Bool
//	RA, DEC     -> Float64
//	(other)     -> Float32
package schema

import (
	"strings"

	"github.com/ajitpratap0/csvfits/pkg/errors"
)

// Delimiter separates header tokens and data fields.
const Delimiter = ","

// MaxNameLength is the longest column name that fits in a single FITS
// TTYPEn card once enclosing quotes are accounted for.
const MaxNameLength = 68

// ValueType is the storage type of a column
type ValueType int

const (
	Float32 ValueType = iota
	Float64
	Int64
	Bool
)

// String returns the type name used in logs and reports
func (t ValueType) String() string {
	switch t {
	case Int64:
		return "int64"
	case Bool:
		return "bool"
	case Float64:
		return "float64"
	case Float32:
		return "float32"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (t ValueType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *ValueType) UnmarshalText(text []byte) error {
	v, err := ParseValueType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseValueType parses a type name as returned by String.
func ParseValueType(s string) (ValueType, error) {
	switch s {
	case "int64":
		return Int64, nil
	case "bool":
		return Bool, nil
	case "float64":
		return Float64, nil
	case "float32":
		return Float32, nil
	default:
		return 0, errors.Newf(errors.ErrorTypeSchema, "unknown value type %q", s)
	}
}

// Width returns the number of bytes a value of this type occupies in a
// packed binary row.
func (t ValueType) Width() int {
	switch t {
	case Int64, Float64:
		return 8
	case Float32:
		return 4
	case Bool:
		return 1
	default:
		return 0
	}
}

// ColumnSpec describes one CSV column
type ColumnSpec struct {
	RawName string    `json:"raw_name" yaml:"raw_name"`
	Name    string    `json:"name" yaml:"name"`
	Type    ValueType `json:"type" yaml:"type"`
}

// normalizedNames maps upper-cased header tokens to their canonical spelling.
var normalizedNames = map[string]string{
	"RA":         "RA",
	"DEC":        "DEC",
	"RA_ERR":     "RA_err",
	"DEC_ERR":    "DEC_err",
	"ID":         "id",
	"STARNOTGAL": "starnotgal",
}

// typedNames lists the only names that do not default to Float32.
var typedNames = map[string]ValueType{
	"id":         Int64,
	"starnotgal": Bool,
	"RA":         Float64,
	"DEC":        Float64,
}

// NormalizeName returns the output name for a raw header token. Matching is
// case-insensitive; unknown tokens are returned unchanged.
func NormalizeName(token string) string {
	if name, ok := normalizedNames[strings.ToUpper(token)]; ok {
		return name
	}
	return token
}

// AssignType returns the column type for a normalized name. The match is exact
// and case-sensitive.
func AssignType(name string) ValueType {
	if t, ok := typedNames[name]; ok {
		return t
	}
	return Float32
}

// Resolve splits a header line on the delimiter and resolves every token.
func Resolve(headerLine string) ([]ColumnSpec, error) {
	line := strings.TrimSpace(headerLine)
	if line == "" {
		return nil, errors.New(errors.ErrorTypeSchema, "empty header line")
	}
	return ResolveTokens(strings.Split(line, Delimiter))
}

// ResolveTokens resolves already split header tokens into column specs, in
// order.
func ResolveTokens(tokens []string) ([]ColumnSpec, error) {
	if len(tokens) == 0 {
		return nil, errors.New(errors.ErrorTypeSchema, "header has no columns")
	}

	specs := make([]ColumnSpec, 0, len(tokens))
	seen := make(map[string]int, len(tokens))
	for i, token := range tokens {
		// FITS ignores trailing blanks in string values, so "flux " and
		// "flux" name the same TTYPE.
		key := strings.TrimRight(token, " ")
		if key == "" {
			return nil, errors.New(errors.ErrorTypeSchema, "empty column name").
				WithDetail("position", i+1)
		}
		name := NormalizeName(token)
		if err := validateName(name); err != nil {
			return nil, err.WithDetail("position", i+1)
		}
		key = strings.TrimRight(name, " ")
		if prev, dup := seen[key]; dup {
			return nil, errors.New(errors.ErrorTypeSchema, "duplicate column name").
				WithDetail("column", name).
				WithDetail("position", i+1).
				WithDetail("first_position", prev)
		}
		seen[key] = i + 1

		specs = append(specs, ColumnSpec{
			RawName: token,
			Name:    name,
			Type:    AssignType(name),
		})
	}
	return specs, nil
}

// validateName rejects names that cannot be written as a FITS string value.
func validateName(name string) *errors.Error {
	for i := 0; i < len(name); i++ {
		if c := name[i]; c < 0x20 || c > 0x7e {
			return errors.New(errors.ErrorTypeSchema, "column name contains non-printable or non-ASCII characters").
				WithDetail("column", name)
		}
	}
	if n := len(name) + strings.Count(name, "'"); n > MaxNameLength {
		return errors.New(errors.ErrorTypeSchema, "column name too long").
			WithDetail("column", name).
			WithDetail("length", n).
			WithDetail("max", MaxNameLength)
	}
	return nil
}

// Names returns the normalized names of specs, in order.
func Names(specs []ColumnSpec) []string {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names
}
