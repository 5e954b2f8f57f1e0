package sink

import (
	"encoding/csv"
	"io"

	"github.com/gi8lino/issuetab/internal/flatten"
)

// delimited writes csv or tsv rows; null cells become empty fields.
type delimited struct {
	cw      *csv.Writer
	columns []string
	header  bool // header row still pending
}

func newDelimited(w io.Writer, comma rune, opts Options) *delimited {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	return &delimited{cw: cw, columns: opts.Columns, header: !opts.NoHeader}
}

// Write emits one data row, preceded by the header on first use.
func (d *delimited) Write(row flatten.Row) error {
	if d.header {
		d.header = false
		if err := d.cw.Write(d.columns); err != nil {
			return err
		}
	}
	fields := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		fields[i] = cell.Text() // null renders as an empty field
	}
	return d.cw.Write(fields)
}

// Close writes the header for empty streams and flushes.
func (d *delimited) Close() error {
	if d.header {
		d.header = false
		if err := d.cw.Write(d.columns); err != nil {
			return err
		}
	}
	d.cw.Flush()
	return d.cw.Error()
}
