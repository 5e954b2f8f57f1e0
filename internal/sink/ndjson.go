package sink

import (
	"encoding/json"
	"io"

	"github.com/gi8lino/issuetab/internal/flatten"
)

// ndjson writes one JSON object per row; null cells stay JSON null.
type ndjson struct {
	enc     *json.Encoder
	columns []string
}

func newNDJSON(w io.Writer, columns []string) *ndjson {
	return &ndjson{enc: json.NewEncoder(w), columns: columns}
}

// Write emits one object keyed by column name.
func (n *ndjson) Write(row flatten.Row) error {
	obj := make(map[string]flatten.Value, len(n.columns))
	for i, col := range n.columns {
		if i < len(row.Cells) {
			obj[col] = row.Cells[i]
		}
	}
	return n.enc.Encode(obj)
}

func (n *ndjson) Close() error { return nil }
