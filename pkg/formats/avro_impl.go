package formats

import (
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/csvfits/pkg/columnar"
	"github.com/ajitpratap0/csvfits/pkg/errors"
	"github.com/ajitpratap0/csvfits/pkg/schema"
)

const avroBatchSize = 1000

// avroWriter writes the table as an Avro object container file, one record
// per row
type avroWriter struct {
	out *countingWriter
}

func newAvroWriter(w io.Writer) *avroWriter {
	return &avroWriter{out: &countingWriter{w: w}}
}

func (aw *avroWriter) Format() Format      { return Avro }
func (aw *avroWriter) BytesWritten() int64 { return aw.out.n }

func (aw *avroWriter) Write(t *columnar.Table) error {
	names, avroSchema, err := tableToAvroSchema(t)
	if err != nil {
		return err
	}

	codec, err := goavro.NewCodec(avroSchema)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSchema, "failed to create Avro codec")
	}

	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               aw.out,
		Codec:           codec,
		CompressionName: goavro.CompressionNullLabel,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to create Avro writer")
	}

	batch := make([]interface{}, 0, avroBatchSize)
	for r := 0; r < t.RowCount(); r++ {
		datum := make(map[string]interface{}, len(names))
		for c, name := range names {
			datum[name] = t.Column(c).Get(r)
		}
		batch = append(batch, datum)

		if len(batch) == avroBatchSize {
			if err := ocf.Append(batch); err != nil {
				return errors.Wrap(err, errors.ErrorTypeIO, "failed to append Avro block").WithDetail("row", r+1)
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := ocf.Append(batch); err != nil {
			return errors.Wrap(err, errors.ErrorTypeIO, "failed to append Avro block")
		}
	}
	return nil
}

// tableToAvroSchema builds a record schema. Column names are sanitized to
// Avro identifiers; the original name is kept as the field doc.
func tableToAvroSchema(t *columnar.Table) ([]string, string, error) {
	names := make([]string, t.NumColumns())
	seen := make(map[string]string, t.NumColumns())
	fields := make([]map[string]interface{}, 0, t.NumColumns())

	for i, spec := range t.Columns() {
		name := AvroName(spec.Name)
		if prev, dup := seen[name]; dup {
			return nil, "", errors.New(errors.ErrorTypeSchema, "column names collide as Avro identifiers").
				WithDetail("column", spec.Name).
				WithDetail("other", prev).
				WithDetail("identifier", name)
		}
		seen[name] = spec.Name
		names[i] = name

		fields = append(fields, map[string]interface{}{
			"name": name,
			"type": avroType(spec.Type),
			"doc":  spec.Name,
		})
	}

	schemaMap := map[string]interface{}{
		"type":      "record",
		"name":      "Row",
		"namespace": "csvfits",
		"fields":    fields,
	}
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, "", errors.Wrap(err, errors.ErrorTypeInternal, "failed to marshal Avro schema")
	}
	return names, string(b), nil
}

// AvroName maps a column name to a valid Avro identifier
func AvroName(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func avroType(t schema.ValueType) string {
	switch t {
	case schema.Int64:
		return "long"
	case schema.Bool:
		return "boolean"
	case schema.Float64:
		return "double"
	default:
		return "float"
	}
}
