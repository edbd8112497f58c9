package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/csvfits/pkg/errors"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"ra", "RA"},
		{"RA", "RA"},
		{"Ra", "RA"},
		{"dec", "DEC"},
		{"ra_err", "RA_err"},
		{"Dec_Err", "DEC_err"},
		{"ID", "id"},
		{"Id", "id"},
		{"StarNotGal", "starnotgal"},
		{"flux", "flux"},
		{"Time (BJD-2457000)", "Time (BJD-2457000)"},
		{" RA", " RA"},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got := NormalizeName(tt.token)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizeName(got), "normalization must be idempotent")
		})
	}
}

func TestAssignType(t *testing.T) {
	tests := []struct {
		name string
		want ValueType
	}{
		{"id", Int64},
		{"starnotgal", Bool},
		{"RA", Float64},
		{"DEC", Float64},
		{"RA_err", Float32},
		{"DEC_err", Float32},
		{"Flux", Float32},
		{"Time (BJD-2457000)", Float32},
		// exact, case-sensitive match on the normalized name
		{"ID", Float32},
		{"ra", Float32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AssignType(tt.name))
		})
	}
}

func TestResolve(t *testing.T) {
	t.Run("preserves order and raw names", func(t *testing.T) {
		specs, err := Resolve("ID,ra,Dec,flux,StarNotGal\r\n")
		require.NoError(t, err)

		assert.Equal(t, []ColumnSpec{
			{RawName: "ID", Name: "id", Type: Int64},
			{RawName: "ra", Name: "RA", Type: Float64},
			{RawName: "Dec", Name: "DEC", Type: Float64},
			{RawName: "flux", Name: "flux", Type: Float32},
			{RawName: "StarNotGal", Name: "starnotgal", Type: Bool},
		}, specs)
	})

	t.Run("single column", func(t *testing.T) {
		specs, err := Resolve("mag")
		require.NoError(t, err)
		assert.Equal(t, []string{"mag"}, Names(specs))
	})

	errorCases := map[string]string{
		"empty line":           "",
		"blank line":           "   \r\n",
		"empty token":          "id,,RA",
		"trailing delimiter":   "id,RA,",
		"duplicate":            "id,RA,ra",
		"duplicate raw":        "flux,flux",
		"trailing blank dup":   "flux ,flux,id",
		"trailing blanks dup":  "id,flux,flux   ",
		"blank token":          "id,  ,RA",
		"non ascii":            "id,flüx",
		"control character":    "id,a\tb",
		"too long":             "id," + strings.Repeat("x", MaxNameLength+1),
		"too long after quote": "id," + strings.Repeat("x", MaxNameLength-1) + "'",
	}
	for name, header := range errorCases {
		t.Run(name, func(t *testing.T) {
			_, err := Resolve(header)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeSchema), "got %v", err)
		})
	}

	t.Run("longest allowed name", func(t *testing.T) {
		_, err := Resolve(strings.Repeat("x", MaxNameLength))
		assert.NoError(t, err)
	})
}

func TestResolveTokens_Empty(t *testing.T) {
	_, err := ResolveTokens(nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
}

func TestValueType(t *testing.T) {
	widths := map[ValueType]int{Int64: 8, Float64: 8, Float32: 4, Bool: 1}
	for vt, w := range widths {
		assert.Equal(t, w, vt.Width(), vt.String())

		text, err := vt.MarshalText()
		require.NoError(t, err)

		var back ValueType
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, vt, back)
	}

	_, err := ParseValueType("string")
	assert.Error(t, err)
}
