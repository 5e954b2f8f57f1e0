package sink

import (
	"fmt"
	"io"
)

// Format selects the output encoding.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatTSV      Format = "tsv"
	FormatNDJSON   Format = "ndjson"
	FormatTemplate Format = "template"
)

// Options tunes sink construction.
type Options struct {
	Columns      []string // output header, in projection order
	NoHeader     bool     // csv/tsv: suppress the header row
	TemplateFile string   // template format: path to the row template
}

// New builds a Writer for the requested format.
func New(format Format, w io.Writer, opts Options) (Writer, error) {
	switch format {
	case FormatCSV:
		return newDelimited(w, ',', opts), nil
	case FormatTSV:
		return newDelimited(w, '\t', opts), nil
	case FormatNDJSON:
		return newNDJSON(w, opts.Columns), nil
	case FormatTemplate:
		return newTemplate(w, opts.Columns, opts.TemplateFile)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
