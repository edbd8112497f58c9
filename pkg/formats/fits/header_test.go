package fits

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCard_Format(t *testing.T) {
	tests := []struct {
		name string
		card Card
		want string
	}{
		{
			name: "logical",
			card: Card{Keyword: "SIMPLE", Value: true, Comment: "conforms to FITS standard"},
			want: "SIMPLE  =                    T / conforms to FITS standard",
		},
		{
			name: "integer",
			card: Card{Keyword: "NAXIS2", Value: int64(12345)},
			want: "NAXIS2  =                12345",
		},
		{
			name: "short string is padded to eight characters",
			card: Card{Keyword: "TFORM1", Value: "K"},
			want: "TFORM1  = 'K       '",
		},
		{
			name: "quotes are doubled",
			card: Card{Keyword: "TTYPE1", Value: "it's"},
			want: "TTYPE1  = 'it''s    '",
		},
		{
			name: "long string",
			card: Card{Keyword: "TTYPE2", Value: "Time (BJD-2457000)"},
			want: "TTYPE2  = 'Time (BJD-2457000)'",
		},
		{
			name: "commentary",
			card: Card{Keyword: "COMMENT", Comment: "written by csvfits"},
			want: "COMMENT written by csvfits",
		},
		{
			name: "end",
			card: Card{Keyword: "END"},
			want: "END",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.card.Format()
			require.Len(t, got, CardSize)
			assert.Equal(t, tt.want, strings.TrimRight(got, " "))
		})
	}
}

func TestCard_FormatTruncates(t *testing.T) {
	c := Card{Keyword: "TTYPE1", Value: "x", Comment: strings.Repeat("c", 100)}
	assert.Len(t, c.Format(), CardSize)
}

func TestParseCard(t *testing.T) {
	cards := []Card{
		{Keyword: "SIMPLE", Value: true, Comment: "conforms to FITS standard"},
		{Keyword: "EXTEND", Value: false},
		{Keyword: "NAXIS1", Value: int64(28), Comment: "length of dimension 1"},
		{Keyword: "NEG", Value: int64(-3)},
		{Keyword: "TTYPE1", Value: "it's"},
		{Keyword: "TTYPE2", Value: "a/b", Comment: "slash inside quotes"},
		{Keyword: "EXPTIME", Value: 1.5},
		{Keyword: "COMMENT", Comment: "free text"},
	}

	for _, want := range cards {
		t.Run(want.Keyword, func(t *testing.T) {
			got, err := ParseCard(want.Format())
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	t.Run("fortran exponent", func(t *testing.T) {
		image := "EXPTIME =                1.5D2"
		got, err := ParseCard(image + strings.Repeat(" ", CardSize-len(image)))
		require.NoError(t, err)
		assert.Equal(t, 150.0, got.Value)
	})

	t.Run("wrong length", func(t *testing.T) {
		_, err := ParseCard("SIMPLE")
		assert.Error(t, err)
	})

	t.Run("unterminated string", func(t *testing.T) {
		image := "TTYPE1  = 'abc"
		_, err := ParseCard(image + strings.Repeat(" ", CardSize-len(image)))
		assert.Error(t, err)
	})
}

func TestHeader_Bytes(t *testing.T) {
	h := &Header{}
	assert.Len(t, h.Bytes(), BlockSize, "END alone still fills one block")

	for i := 0; i < 35; i++ {
		h.Add("KEY", int64(i), "")
	}
	assert.Len(t, h.Bytes(), BlockSize, "35 cards plus END fill exactly one block")

	h.Add("KEY", int64(35), "")
	assert.Len(t, h.Bytes(), 2*BlockSize)

	b := h.Bytes()
	assert.Equal(t, "END", strings.TrimRight(string(b[36*CardSize:37*CardSize]), " "))
	assert.Equal(t, strings.Repeat(" ", 2*BlockSize-37*CardSize), string(b[37*CardSize:]))
}

func TestHeader_Accessors(t *testing.T) {
	h := &Header{}
	h.Add("XTENSION", "BINTABLE", "")
	h.Add("NAXIS", int64(2), "")
	h.Add("EXTEND", true, "")

	s, ok := h.String("XTENSION")
	assert.True(t, ok)
	assert.Equal(t, "BINTABLE", s)

	n, err := h.Int("NAXIS")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = h.Int("XTENSION")
	assert.Error(t, err)
	_, err = h.Int("MISSING")
	assert.Error(t, err)

	b, ok := h.Bool("EXTEND")
	assert.True(t, ok)
	assert.True(t, b)
}
