package flatten

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"

	"github.com/gi8lino/issuetab/internal/source"
)

// Policy selects how the flattener treats unparsable Source Records.
type Policy string

const (
	// PolicySkip counts and logs parse failures, then continues.
	PolicySkip Policy = "skip"
	// PolicyAbort ends the stream at the first parse failure.
	PolicyAbort Policy = "abort"
)

// DefaultArrayField is the array exploded when no override is given.
const DefaultArrayField = "issues"

// Flattener turns Source Records into flat Output Records by exploding
// one JSON array per document through a column projection.
type Flattener struct {
	proj   Projection
	array  string
	policy Policy
	logger *slog.Logger
	stats  Stats
}

// Row is one Output Record: the projected cells of a single element.
type Row struct {
	Record int     // 1-based ordinal of the originating Source Record
	Index  int     // 0-based position within the exploded array
	Cells  []Value // aligned with the projection's columns
}

// New returns a Flattener over proj. An empty arrayField falls back to
// DefaultArrayField and an empty policy to PolicySkip.
func New(proj Projection, arrayField string, policy Policy, logger *slog.Logger) *Flattener {
	if arrayField == "" {
		arrayField = DefaultArrayField
	}
	if policy == "" {
		policy = PolicySkip
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Flattener{proj: proj, array: arrayField, policy: policy, logger: logger}
}

// Stats exposes the stream counters.
func (f *Flattener) Stats() *Stats { return &f.stats }

// Columns returns the output header in column order.
func (f *Flattener) Columns() []string { return f.proj.ColumnNames() }

// Flatten lazily maps the source stream to Output Records, preserving
// record order and array order. Source errors always end the stream;
// parse failures follow the policy. The sequence may be abandoned at
// any point.
func (f *Flattener) Flatten(ctx context.Context, src iter.Seq2[source.Record, error]) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for rec, err := range src {
			if err != nil {
				yield(Row{}, err)
				return
			}
			if ctx.Err() != nil {
				yield(Row{}, ctx.Err())
				return
			}

			rows, err := f.flattenRecord(rec)
			if err != nil {
				if f.policy == PolicyAbort {
					yield(Row{}, err)
					return
				}
				f.logger.Warn("Skipping unparsable record", "origin", rec.Origin, "error", err.Error())
				continue
			}
			for _, row := range rows {
				if !yield(row, nil) {
					return
				}
			}
		}
	}
}

// flattenRecord explodes a single Source Record into zero or more rows.
func (f *Flattener) flattenRecord(rec source.Record) ([]Row, error) {
	f.stats.Records.Add(1)

	if len(bytes.TrimSpace(rec.Raw)) == 0 {
		// an absent payload yields nothing, it is not a parse failure
		f.stats.MissingRaw.Add(1)
		return nil, nil
	}

	doc, err := decodeDocument(rec.Raw)
	if err != nil {
		f.stats.ParseErrors.Add(1)
		return nil, &ParseError{Origin: rec.Origin, Cause: err}
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		f.stats.NoArray.Add(1)
		return nil, nil
	}
	arr, ok := obj[f.array].([]any)
	if !ok {
		// missing, null, or non-array field: zero Output Records
		f.stats.NoArray.Add(1)
		return nil, nil
	}

	rows := make([]Row, len(arr))
	for i, el := range arr {
		element, _ := el.(map[string]any) // non-object elements project to all-null cells
		rows[i] = Row{Record: rec.Seq, Index: i, Cells: f.proj.project(element)}
	}
	f.stats.Rows.Add(int64(len(rows)))
	return rows, nil
}

// decodeDocument parses exactly one JSON value, preserving number
// literals, and rejects trailing content.
func decodeDocument(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON document")
	}
	return doc, nil
}
