package fits

import (
	"strconv"
)

// ColumnDescription summarizes one binary table field
type ColumnDescription struct {
	Index int    `json:"index" yaml:"index"`
	Name  string `json:"name" yaml:"name"`
	TForm string `json:"tform" yaml:"tform"`
	Type  string `json:"type" yaml:"type"`
	Width int    `json:"width" yaml:"width"`
}

// Description is a reader-independent summary of a decoded file
type Description struct {
	Format   string              `json:"format" yaml:"format"`
	HDUs     int                 `json:"hdus" yaml:"hdus"`
	Rows     int                 `json:"rows" yaml:"rows"`
	RowWidth int                 `json:"row_width" yaml:"row_width"`
	Columns  []ColumnDescription `json:"columns" yaml:"columns"`
	Keywords map[string]string   `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// Describe summarizes the binary table of f
func (f *File) Describe() Description {
	d := Description{
		Format:   "FITS",
		HDUs:     2 + f.Skipped,
		Rows:     f.Table.RowCount(),
		RowWidth: f.Table.RowWidth(),
		Keywords: make(map[string]string),
	}
	for i, spec := range f.Table.Columns() {
		tform, _ := f.Extension.String("TFORM" + strconv.Itoa(i+1))
		d.Columns = append(d.Columns, ColumnDescription{
			Index: i + 1,
			Name:  spec.Name,
			TForm: tform,
			Type:  spec.Type.String(),
			Width: spec.Type.Width(),
		})
	}
	for _, kw := range []string{"EXTNAME", "ORIGIN", "DATE"} {
		if v, ok := f.Extension.String(kw); ok {
			d.Keywords[kw] = v
		}
	}
	return d
}
