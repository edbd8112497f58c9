package columnar

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/csvfits/pkg/schema"
)

func TestColumnParse(t *testing.T) {
	tests := []struct {
		vt    schema.ValueType
		text  string
		want  interface{}
		valid bool
	}{
		{schema.Int64, "-42", int64(-42), true},
		{schema.Int64, "4.2", nil, false},
		{schema.Bool, "0", false, true},
		{schema.Bool, "1", true, true},
		{schema.Bool, "true", nil, false},
		{schema.Float64, "0.1", 0.1, true},
		{schema.Float64, "1e999", math.Inf(1), true},
		{schema.Float32, "0.1", float32(0.1), true},
		{schema.Float32, "-1e99", float32(math.Inf(-1)), true},
		{schema.Float32, "x", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.vt.String()+"/"+tt.text, func(t *testing.T) {
			col := NewColumn(tt.vt, 0)
			err := col.Parse(tt.text)
			if !tt.valid {
				require.Error(t, err)
				assert.Equal(t, 0, col.Len())
				return
			}
			require.NoError(t, err)
			require.Equal(t, 1, col.Len())
			assert.Equal(t, tt.want, col.Get(0))
		})
	}
}

func TestColumnAppendRejectsOtherTypes(t *testing.T) {
	values := map[schema.ValueType]interface{}{
		schema.Int64:   int64(1),
		schema.Bool:    true,
		schema.Float64: 1.0,
		schema.Float32: float32(1),
	}

	for vt, own := range values {
		col := NewColumn(vt, 0)
		require.NoError(t, col.Append(own), vt.String())
		for other, v := range values {
			if other != vt {
				assert.Error(t, col.Append(v), "%s column accepted %T", vt, v)
			}
		}
		assert.Equal(t, 1, col.Len(), vt.String())
	}
}
