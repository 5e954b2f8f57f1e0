package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
)

// CSV reads the named column of a headered CSV file as the raw
// document of each data row.
type CSV struct {
	r      io.Reader
	name   string
	column string
}

// DefaultRawColumn is the column read when no override is given.
const DefaultRawColumn = "raw"

// NewCSV returns a reader over r's raw document column.
func NewCSV(r io.Reader, name, column string) *CSV {
	if column == "" {
		column = DefaultRawColumn
	}
	return &CSV{r: r, name: name, column: column}
}

// Records yields one Record per data row in file order.
func (c *CSV) Records(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		cr := csv.NewReader(c.r)
		cr.FieldsPerRecord = -1 // tolerate ragged rows, the column lookup below guards

		header, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				// an empty file has no records
				return
			}
			yield(Record{}, fmt.Errorf("read %s header: %w", c.name, err))
			return
		}
		col := -1
		for i, name := range header {
			if name == c.column {
				col = i
				break
			}
		}
		if col < 0 {
			yield(Record{}, fmt.Errorf("%s: column %q not found in header", c.name, c.column))
			return
		}

		seq := 0
		for {
			if ctx.Err() != nil {
				yield(Record{}, ctx.Err())
				return
			}
			row, err := cr.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Record{}, fmt.Errorf("read %s: %w", c.name, err))
				return
			}
			seq++
			rec := Record{Seq: seq, Origin: fmt.Sprintf("%s#%d", c.name, seq)}
			if col < len(row) {
				rec.Raw = []byte(row[col])
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}
