// Package pipeline runs a single CSV to table file conversion.
//
// # Overview
//
// A conversion is one pass over the input, in three stages:
//   - load: read the CSV into typed columns (the schema is resolved from
//     the header)
//   - encode: write the table in the output format, through an optional
//     compression codec chosen by the output suffix, into a temporary file
//     in the output directory which is then synced
//   - publish: move the temporary file onto the output path
//
// Any failure leaves no output file behind and no existing file is replaced
// unless overwriting is enabled. Each stage runs in its own trace span.
//
// # Basic Usage
//
//	p := pipeline.NewPipeline(cfg, logger, metrics.NewCollector())
//	result, err := p.Run(ctx, "catalog.csv", "catalog.fits")
//	if err != nil {
//	    return err
//	}
//	logger.Info("done", zap.Int("rows", result.Rows))
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/csvfits/pkg/columnar"
	"github.com/ajitpratap0/csvfits/pkg/compression"
	"github.com/ajitpratap0/csvfits/pkg/config"
	"github.com/ajitpratap0/csvfits/pkg/errors"
	"github.com/ajitpratap0/csvfits/pkg/formats"
	"github.com/ajitpratap0/csvfits/pkg/metrics"
	"github.com/ajitpratap0/csvfits/pkg/tracing"
)

// TracerName names the tracer conversion spans are started from
const TracerName = "github.com/ajitpratap0/csvfits/internal/pipeline"

// Pipeline converts CSV files according to a configuration
type Pipeline struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// Result summarizes a completed conversion
type Result struct {
	Input        string                `json:"input" yaml:"input"`
	Output       string                `json:"output" yaml:"output"`
	Rows         int                   `json:"rows" yaml:"rows"`
	Columns      int                   `json:"columns" yaml:"columns"`
	BytesWritten int64                 `json:"bytes_written" yaml:"bytes_written"`
	Format       formats.Format        `json:"format" yaml:"format"`
	FormatName   string                `json:"format_name" yaml:"format_name"`
	MIMEType     string                `json:"mime_type" yaml:"mime_type"`
	Compression  compression.Algorithm `json:"compression" yaml:"compression"`
	Duration     time.Duration         `json:"duration" yaml:"duration"`
}

// NewPipeline creates a pipeline. A nil cfg means config.Default, a nil
// logger discards logs and a nil collector disables metrics. Spans go to
// the global tracer provider, which is a no-op unless tracing.Init ran.
func NewPipeline(cfg *config.Config, logger *zap.Logger, collector *metrics.Collector) *Pipeline {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:     cfg,
		logger:  logger,
		metrics: collector,
		tracer:  tracing.Tracer(TracerName),
	}
}

// WithTracer replaces the tracer spans are started from
func (p *Pipeline) WithTracer(tracer trace.Tracer) *Pipeline {
	p.tracer = tracer
	return p
}

// Run converts input into output. The whole input is held in memory.
func (p *Pipeline) Run(ctx context.Context, input, output string) (result *Result, err error) {
	timer := metrics.NewTimer("convert")

	ctx, span := p.tracer.Start(ctx, "convert", trace.WithAttributes(
		attribute.String("csvfits.input", input),
		attribute.String("csvfits.output", output),
	))
	defer func() { tracing.EndSpan(span, err) }()

	result, err = p.run(ctx, input, output)
	if err != nil {
		if p.metrics != nil {
			p.metrics.ObserveFailure(err)
		}
		return nil, err
	}

	result.Duration = timer.Stop()
	span.SetAttributes(
		attribute.Int("csvfits.rows", result.Rows),
		attribute.Int("csvfits.columns", result.Columns),
		attribute.Int64("csvfits.bytes_written", result.BytesWritten),
		attribute.String("csvfits.format", string(result.Format)),
		attribute.String("csvfits.compression", string(result.Compression)),
	)
	if p.metrics != nil {
		p.metrics.ObserveConversion(string(result.Format), string(result.Compression),
			result.Rows, result.Columns, result.BytesWritten, result.Duration)
	}

	p.logger.Info("conversion completed",
		zap.String("input", input),
		zap.String("output", output),
		zap.Int("rows", result.Rows),
		zap.Int("columns", result.Columns),
		zap.Int64("bytes_written", result.BytesWritten),
		zap.String("format", string(result.Format)),
		zap.String("mime_type", result.MIMEType),
		zap.String("compression", string(result.Compression)),
		zap.Duration("duration", result.Duration))

	return result, nil
}

func (p *Pipeline) run(ctx context.Context, input, output string) (*Result, error) {
	format, err := p.cfg.OutputFormat()
	if err != nil {
		return nil, err
	}
	level, err := p.cfg.CompressionLevel()
	if err != nil {
		return nil, err
	}
	format = formats.Resolve(format, output)
	alg := compression.DetectAlgorithm(output)

	if !p.cfg.Output.Overwrite {
		if _, err := os.Stat(output); err == nil {
			return nil, errExists(output)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "conversion cancelled")
	}

	table, err := p.load(ctx, input)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("input loaded",
		zap.String("input", input),
		zap.Int("rows", table.RowCount()),
		zap.Int("columns", table.NumColumns()),
		zap.Int64("memory_bytes", table.MemoryUsage()))

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "conversion cancelled")
	}

	tmpName, written, err := p.encode(ctx, table, output, format, alg, level)
	if err != nil {
		return nil, err
	}
	if err := p.publish(ctx, tmpName, output); err != nil {
		p.removeTemp(tmpName)
		return nil, err
	}

	result := &Result{
		Input:        input,
		Output:       output,
		Rows:         table.RowCount(),
		Columns:      table.NumColumns(),
		BytesWritten: written,
		Format:       format,
		Compression:  alg,
	}
	if info := formats.GetFormatInfo(format); info != nil {
		result.FormatName = info.Name
		result.MIMEType = info.MIMEType
	}
	return result, nil
}

func (p *Pipeline) load(ctx context.Context, input string) (table *columnar.Table, err error) {
	_, span := p.tracer.Start(ctx, "load")
	defer func() { tracing.EndSpan(span, err) }()

	f, err := os.Open(input)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to open input").WithDetail("path", input)
	}
	defer f.Close()

	table, err = columnar.Load(f)
	if err != nil {
		var e *errors.Error
		if errors.As(err, &e) {
			return nil, e.WithDetail("path", input)
		}
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("csvfits.rows", table.RowCount()),
		attribute.Int("csvfits.columns", table.NumColumns()),
	)
	return table, nil
}

// encode writes table into a synced temporary file next to output and
// returns its name. On error the temporary file is removed.
func (p *Pipeline) encode(ctx context.Context, table *columnar.Table, output string, format formats.Format, alg compression.Algorithm, level compression.Level) (tmpName string, written int64, err error) {
	_, span := p.tracer.Start(ctx, "encode", trace.WithAttributes(
		attribute.String("csvfits.format", string(format)),
		attribute.String("csvfits.compression", string(alg)),
	))
	defer func() { tracing.EndSpan(span, err) }()

	tmp, err := os.CreateTemp(filepath.Dir(output), "."+filepath.Base(output)+".tmp-*")
	if err != nil {
		return "", 0, errors.Wrap(err, errors.ErrorTypeIO, "failed to create output file").WithDetail("path", output)
	}
	tmpName = tmp.Name()
	p.logger.Debug("writing temporary file", zap.String("path", tmpName))

	defer func() {
		if err != nil {
			_ = tmp.Close()
			p.removeTemp(tmpName)
		}
	}()

	cw, err := compression.NewWriter(tmp, alg, level)
	if err != nil {
		return "", 0, err
	}
	fw, err := formats.NewWriter(format, cw)
	if err != nil {
		return "", 0, err
	}
	if err = fw.Write(table); err != nil {
		return "", 0, err
	}
	if err = cw.Close(); err != nil {
		return "", 0, errors.Wrap(err, errors.ErrorTypeIO, "failed to flush compressed output").WithDetail("path", output)
	}
	if err = tmp.Sync(); err != nil {
		return "", 0, errors.Wrap(err, errors.ErrorTypeIO, "failed to sync output").WithDetail("path", output)
	}
	if err = tmp.Close(); err != nil {
		return "", 0, errors.Wrap(err, errors.ErrorTypeIO, "failed to close output").WithDetail("path", output)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return "", 0, errors.Wrap(err, errors.ErrorTypeIO, "failed to set output permissions").WithDetail("path", output)
	}

	span.SetAttributes(attribute.Int64("csvfits.bytes_written", fw.BytesWritten()))
	return tmpName, fw.BytesWritten(), nil
}

// publish moves tmpName onto output. Without overwrite the file is hard
// linked into place, which fails if output appeared since the conversion
// started; rename would silently replace it.
func (p *Pipeline) publish(ctx context.Context, tmpName, output string) (err error) {
	_, span := p.tracer.Start(ctx, "publish", trace.WithAttributes(
		attribute.Bool("csvfits.overwrite", p.cfg.Output.Overwrite),
	))
	defer func() { tracing.EndSpan(span, err) }()

	if p.cfg.Output.Overwrite {
		if err := os.Rename(tmpName, output); err != nil {
			return errors.Wrap(err, errors.ErrorTypeIO, "failed to rename output").WithDetail("path", output)
		}
		return nil
	}

	if err := os.Link(tmpName, output); err != nil {
		if os.IsExist(err) {
			return errExists(output)
		}
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to link output").WithDetail("path", output)
	}
	p.removeTemp(tmpName)
	return nil
}

func (p *Pipeline) removeTemp(name string) {
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		p.logger.Warn("failed to remove temporary file", zap.String("path", name), zap.Error(err))
	}
}

func errExists(output string) error {
	return errors.New(errors.ErrorTypeIO, "output file already exists").WithDetail("path", output)
}
