package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
)

// maxLineBytes caps a single input line; search exports can be large.
const maxLineBytes = 16 * 1024 * 1024

// Lines reads one Source Record per non-blank line. With a rawField
// set, each line is a JSON envelope and the named field carries the
// document; otherwise the whole line is the document.
type Lines struct {
	r        io.Reader
	name     string
	rawField string
}

// NewLines returns a line-oriented reader over r. name labels record
// origins, e.g. a file name or "stdin".
func NewLines(r io.Reader, name, rawField string) *Lines {
	return &Lines{r: r, name: name, rawField: rawField}
}

// Records yields one Record per non-blank line in input order.
func (l *Lines) Records(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		sc := bufio.NewScanner(l.r)
		sc.Buffer(make([]byte, 64*1024), maxLineBytes)

		seq := 0
		lineNo := 0
		for sc.Scan() {
			lineNo++
			if ctx.Err() != nil {
				yield(Record{}, ctx.Err())
				return
			}
			line := bytes.TrimSpace(sc.Bytes())
			if len(line) == 0 {
				continue
			}
			seq++
			rec := Record{
				Seq:    seq,
				Origin: fmt.Sprintf("%s:%d", l.name, lineNo),
				Raw:    l.extract(line),
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(Record{}, fmt.Errorf("read %s: %w", l.name, err))
		}
	}
}

// extract returns the raw document carried by one line. The result is
// always a copy; the scanner reuses its buffer between lines.
func (l *Lines) extract(line []byte) []byte {
	if l.rawField == "" {
		return append([]byte(nil), line...)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(line, &envelope); err != nil {
		// not an envelope: hand the line downstream so the failure is
		// handled under the configured parse policy
		return append([]byte(nil), line...)
	}
	field, ok := envelope[l.rawField]
	if !ok {
		// absent raw field: the record yields nothing
		return nil
	}

	var s string
	if err := json.Unmarshal(field, &s); err == nil {
		return []byte(s)
	}
	// the field may embed the document directly instead of as text
	return append([]byte(nil), field...)
}
