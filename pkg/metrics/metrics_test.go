package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/csvfits/pkg/errors"
)

func TestObserveConversion(t *testing.T) {
	c := NewCollector()
	c.ObserveConversion("fits", "none", 100, 6, 8640, 20*time.Millisecond)
	c.ObserveConversion("fits", "gzip", 50, 4, 5760, 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.conversions.WithLabelValues("fits", "gzip")))
	assert.Equal(t, 150.0, testutil.ToFloat64(c.rows.WithLabelValues("fits")))
	assert.Equal(t, 14400.0, testutil.ToFloat64(c.bytesWritten.WithLabelValues("fits")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.columns))
	assert.Equal(t, 1, testutil.CollectAndCount(c.duration))
}

func TestObserveFailure(t *testing.T) {
	c := NewCollector()
	c.ObserveFailure(errors.New(errors.ErrorTypeMalformedRow, "wrong number of fields"))
	c.ObserveFailure(errors.New(errors.ErrorTypeMalformedRow, "wrong number of fields"))
	c.ObserveFailure(os.ErrPermission)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.failures.WithLabelValues("malformed_row")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.failures.WithLabelValues("internal")))
}

func TestSeparateRegistries(t *testing.T) {
	a := NewCollector()
	b := NewCollector()
	a.ObserveConversion("fits", "none", 1, 1, 2880, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.rows.WithLabelValues("fits")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.rows.WithLabelValues("fits")))
}

func TestWriteTextfile(t *testing.T) {
	c := NewCollector()
	c.ObserveConversion("avro", "zstd", 3, 2, 512, time.Second)

	path := filepath.Join(t.TempDir(), "csvfits.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `csvfits_rows_converted_total{format="avro"} 3`)
	assert.Contains(t, text, `csvfits_conversions_total{compression="zstd",format="avro"} 1`)
	assert.True(t, strings.Contains(text, "# TYPE csvfits_conversion_duration_seconds histogram"))
}

func TestWriteTextfileError(t *testing.T) {
	c := NewCollector()
	err := c.WriteTextfile(filepath.Join(t.TempDir(), "missing", "csvfits.prom"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
}

func TestTimer(t *testing.T) {
	timer := NewTimer("convert")
	assert.Equal(t, "convert", timer.Name())
	first := timer.Stop()
	assert.GreaterOrEqual(t, timer.Stop(), first)
}
