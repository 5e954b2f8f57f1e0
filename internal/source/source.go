package source

import (
	"context"
	"iter"
)

// Record is one input item: a raw JSON document plus provenance.
type Record struct {
	Seq    int    // 1-based position in the input sequence
	Origin string // human-readable provenance for diagnostics
	Raw    []byte // raw document text; empty means absent
}

// Reader yields Source Records in input order. Implementations own
// their underlying resources for the duration of one Records call and
// release them when the sequence ends or is abandoned.
type Reader interface {
	Records(ctx context.Context) iter.Seq2[Record, error]
}
