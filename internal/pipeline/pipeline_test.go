package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/csvfits/pkg/compression"
	"github.com/ajitpratap0/csvfits/pkg/config"
	"github.com/ajitpratap0/csvfits/pkg/errors"
	"github.com/ajitpratap0/csvfits/pkg/formats"
	"github.com/ajitpratap0/csvfits/pkg/formats/fits"
	"github.com/ajitpratap0/csvfits/pkg/metrics"
)

const sampleCSV = "id,RA,DEC,flux\n7,10.5,-5.25,3.2\n8,11.0,-6.5,4.0\n"

func writeInput(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func assertNoOutput(t *testing.T, dir, output string) {
	t.Helper()
	_, err := os.Stat(output)
	assert.True(t, os.IsNotExist(err), "output should not exist")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, "input.csv", e.Name(), "unexpected file left behind")
	}
}

func TestRunFITS(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, sampleCSV)
	output := filepath.Join(dir, "out.fits")

	core, logs := observer.New(zap.InfoLevel)
	collector := metrics.NewCollector()
	p := NewPipeline(nil, zap.New(core), collector)

	result, err := p.Run(context.Background(), input, output)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, 4, result.Columns)
	assert.Equal(t, formats.FITS, result.Format)
	assert.Equal(t, compression.None, result.Compression)
	assert.Equal(t, int64(3*fits.BlockSize), result.BytesWritten)
	assert.Equal(t, "FITS binary table", result.FormatName)
	assert.Equal(t, "application/fits", result.MIMEType)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Len(t, data, 3*fits.BlockSize)

	f, err := fits.Read(bytes.NewReader(data))
	require.NoError(t, err)
	ids, ok := f.Table.Int64s("id")
	require.True(t, ok)
	assert.Equal(t, []int64{7, 8}, ids)
	ra, ok := f.Table.Float64s("RA")
	require.True(t, ok)
	assert.Equal(t, []float64{10.5, 11.0}, ra)
	flux, ok := f.Table.Float32s("flux")
	require.True(t, ok)
	assert.Equal(t, []float32{3.2, 4.0}, flux)

	info, err := os.Stat(output)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	require.Equal(t, 1, logs.FilterMessage("conversion completed").Len())
	entry := logs.FilterMessage("conversion completed").All()[0]
	assert.Equal(t, int64(2), entry.ContextMap()["rows"])

	n, err := testutil.GatherAndCount(collector.Registry(), "csvfits_conversions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunCompressed(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, sampleCSV)

	_, err := NewPipeline(nil, nil, nil).Run(context.Background(), input, filepath.Join(dir, "plain.fits"))
	require.NoError(t, err)
	plain, err := os.ReadFile(filepath.Join(dir, "plain.fits"))
	require.NoError(t, err)

	output := filepath.Join(dir, "out.fits.gz")
	result, err := NewPipeline(nil, nil, nil).Run(context.Background(), input, output)
	require.NoError(t, err)
	assert.Equal(t, formats.FITS, result.Format)
	assert.Equal(t, compression.Gzip, result.Compression)

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = buf.ReadFrom(zr)
	require.NoError(t, err)
	assert.Equal(t, plain, buf.Bytes())
}

func TestRunFormatFromConfig(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, sampleCSV)
	output := filepath.Join(dir, "out.fits")

	cfg := config.Default()
	cfg.Output.Format = "arrow"
	result, err := NewPipeline(cfg, nil, nil).Run(context.Background(), input, output)
	require.NoError(t, err)
	assert.Equal(t, formats.Arrow, result.Format)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("ARROW1")))

	pq := filepath.Join(dir, "out.parquet")
	result, err = NewPipeline(nil, nil, nil).Run(context.Background(), input, pq)
	require.NoError(t, err)
	assert.Equal(t, formats.Parquet, result.Format)

	avro := filepath.Join(dir, "out.avro.zst")
	result, err = NewPipeline(nil, nil, nil).Run(context.Background(), input, avro)
	require.NoError(t, err)
	assert.Equal(t, formats.Avro, result.Format)
	assert.Equal(t, compression.Zstd, result.Compression)
}

func TestRunDoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, sampleCSV)
	output := filepath.Join(dir, "out.fits")
	require.NoError(t, os.WriteFile(output, []byte("keep me"), 0o600))

	_, err := NewPipeline(nil, nil, nil).Run(context.Background(), input, output)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))

	cfg := config.Default()
	cfg.Output.Overwrite = true
	_, err = NewPipeline(cfg, nil, nil).Run(context.Background(), input, output)
	require.NoError(t, err)

	data, err = os.ReadFile(output)
	require.NoError(t, err)
	assert.Len(t, data, 3*fits.BlockSize)
}

func TestRunFailuresLeaveNoOutput(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errType errors.ErrorType
	}{
		{"ragged row", "id,RA,DEC\n1,2.0,3.0\n2,4.0\n", errors.ErrorTypeMalformedRow},
		{"empty header", "", errors.ErrorTypeSchema},
		{"blank header", "\n1,2\n", errors.ErrorTypeSchema},
		{"bad id", "id\nabc\n", errors.ErrorTypeParse},
		{"bad starnotgal", "starnotgal\n2\n", errors.ErrorTypeParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			input := writeInput(t, dir, tt.content)
			output := filepath.Join(dir, "out.fits")

			collector := metrics.NewCollector()
			_, err := NewPipeline(nil, nil, collector).Run(context.Background(), input, output)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, tt.errType), "got %v", err)
			assertNoOutput(t, dir, output)

			n, gerr := testutil.GatherAndCount(collector.Registry(), "csvfits_failures_total")
			require.NoError(t, gerr)
			assert.Equal(t, 1, n)
		})
	}
}

func TestRunMissingInput(t *testing.T) {
	dir := t.TempDir()
	_, err := NewPipeline(nil, nil, nil).Run(context.Background(), filepath.Join(dir, "missing.csv"), filepath.Join(dir, "out.fits"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
}

func TestRunMissingOutputDirectory(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, sampleCSV)
	_, err := NewPipeline(nil, nil, nil).Run(context.Background(), input, filepath.Join(dir, "nope", "out.fits"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
}

func TestRunCancelled(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, sampleCSV)
	output := filepath.Join(dir, "out.fits")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPipeline(nil, nil, nil).Run(ctx, input, output)
	require.Error(t, err)
	assertNoOutput(t, dir, output)
}

func TestRunHeaderOnly(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "id,RA,DEC\n")
	output := filepath.Join(dir, "out.fits")

	result, err := NewPipeline(nil, nil, nil).Run(context.Background(), input, output)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Rows)
	assert.Equal(t, 3, result.Columns)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Len(t, data, 2*fits.BlockSize)
}

func newRecordingTracer() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	recorder := tracetest.NewSpanRecorder()
	return recorder, sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
}

func spansByName(recorder *tracetest.SpanRecorder) map[string]sdktrace.ReadOnlySpan {
	spans := make(map[string]sdktrace.ReadOnlySpan)
	for _, s := range recorder.Ended() {
		spans[s.Name()] = s
	}
	return spans
}

func TestRunStageSpans(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, sampleCSV)
	output := filepath.Join(dir, "out.fits.gz")

	recorder, tp := newRecordingTracer()
	p := NewPipeline(nil, nil, nil).WithTracer(tp.Tracer(TracerName))
	_, err := p.Run(context.Background(), input, output)
	require.NoError(t, err)

	spans := spansByName(recorder)
	require.Len(t, spans, 4)
	root := spans["convert"]
	require.NotNil(t, root)
	for _, name := range []string{"load", "encode", "publish"} {
		span, ok := spans[name]
		require.True(t, ok, name)
		assert.Equal(t, root.SpanContext().SpanID(), span.Parent().SpanID(), name)
		assert.Equal(t, codes.Unset, span.Status().Code, name)
	}

	attrs := make(map[string]string)
	for _, kv := range spans["encode"].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "fits", attrs["csvfits.format"])
	assert.Equal(t, "gzip", attrs["csvfits.compression"])
}

func TestRunFailedStageSpan(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "id,RA\n1,2.0\n3\n")

	recorder, tp := newRecordingTracer()
	p := NewPipeline(nil, nil, nil).WithTracer(tp.Tracer(TracerName))
	_, err := p.Run(context.Background(), input, filepath.Join(dir, "out.fits"))
	require.Error(t, err)

	spans := spansByName(recorder)
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans["load"].Status().Code)
	assert.Equal(t, codes.Error, spans["convert"].Status().Code)
	_, encoded := spans["encode"]
	assert.False(t, encoded)
}

func TestPublishDoesNotReplaceLateOutput(t *testing.T) {
	dir := t.TempDir()
	tmp := filepath.Join(dir, ".out.fits.tmp-1")
	output := filepath.Join(dir, "out.fits")
	require.NoError(t, os.WriteFile(tmp, []byte("new"), 0o644))
	// output appears after the up-front existence check
	require.NoError(t, os.WriteFile(output, []byte("keep me"), 0o600))

	p := NewPipeline(nil, nil, nil)
	err := p.publish(context.Background(), tmp, output)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
	assert.Contains(t, err.Error(), "already exists")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))

	cfg := config.Default()
	cfg.Output.Overwrite = true
	require.NoError(t, NewPipeline(cfg, nil, nil).publish(context.Background(), tmp, output))
	data, err = os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
	_, err = os.Stat(tmp)
	assert.True(t, os.IsNotExist(err))
}

func TestPublishLinksAndRemovesTemp(t *testing.T) {
	dir := t.TempDir()
	tmp := filepath.Join(dir, ".out.fits.tmp-1")
	output := filepath.Join(dir, "out.fits")
	require.NoError(t, os.WriteFile(tmp, []byte("data"), 0o644))

	require.NoError(t, NewPipeline(nil, nil, nil).publish(context.Background(), tmp, output))
	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
	_, err = os.Stat(tmp)
	assert.True(t, os.IsNotExist(err))
}
