package sink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/template"

	"github.com/gi8lino/issuetab/internal/flatten"
)

// tmplSink renders one template execution per row.
type tmplSink struct {
	w       io.Writer
	tmpl    *template.Template
	columns []string
	row     int
}

func newTemplate(w io.Writer, columns []string, file string) (*tmplSink, error) {
	if file == "" {
		return nil, fmt.Errorf("template format needs a template file")
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	tmpl, err := template.New(filepath.Base(file)).Funcs(FuncMap()).Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return &tmplSink{w: w, tmpl: tmpl, columns: columns}, nil
}

// Write executes the template once. Cells are addressable by column
// name under .Cells (textual form, null as "") and .Fields (the raw
// Values, for kind checks). .Record, .Index and .Row carry position.
func (t *tmplSink) Write(row flatten.Row) error {
	t.row++

	cells := make(map[string]string, len(t.columns))
	fields := make(map[string]flatten.Value, len(t.columns))
	for i, col := range t.columns {
		if i >= len(row.Cells) {
			break
		}
		cells[col] = row.Cells[i].Text()
		fields[col] = row.Cells[i]
	}

	data := map[string]any{
		"Record": row.Record,
		"Index":  row.Index,
		"Row":    t.row,
		"Cells":  cells,
		"Fields": fields,
	}
	return t.tmpl.Execute(t.w, data)
}

func (t *tmplSink) Close() error { return nil }
