package fits

import (
	"strconv"
	"strings"

	"github.com/ajitpratap0/csvfits/pkg/errors"
	"github.com/ajitpratap0/csvfits/pkg/schema"
)

// Binary table TFORM type codes
const (
	TFormInt64   = "K"
	TFormLogical = "L"
	TFormDouble  = "D"
	TFormFloat   = "E"
)

// Logical field encodings
const (
	LogicalTrue  byte = 'T'
	LogicalFalse byte = 'F'
)

// TForm returns the binary table format code for a column type
func TForm(t schema.ValueType) string {
	switch t {
	case schema.Int64:
		return TFormInt64
	case schema.Bool:
		return TFormLogical
	case schema.Float64:
		return TFormDouble
	default:
		return TFormFloat
	}
}

// ParseTForm maps a TFORMn value back to a column type. Only scalar fields
// (an omitted or unit repeat count) of the four supported codes are accepted.
func ParseTForm(tform string) (schema.ValueType, error) {
	s := strings.TrimSpace(tform)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 {
		if repeat, err := strconv.Atoi(s[:i]); err != nil || repeat != 1 {
			return 0, errors.New(errors.ErrorTypeFormat, "unsupported repeat count").WithDetail("tform", tform)
		}
	}
	switch s[i:] {
	case TFormInt64:
		return schema.Int64, nil
	case TFormLogical:
		return schema.Bool, nil
	case TFormDouble:
		return schema.Float64, nil
	case TFormFloat:
		return schema.Float32, nil
	default:
		return 0, errors.New(errors.ErrorTypeFormat, "unsupported column format").WithDetail("tform", tform)
	}
}
