package sink

import "github.com/gi8lino/issuetab/internal/flatten"

// Writer consumes Output Records. Close flushes buffered output but
// does not close the underlying io.Writer.
type Writer interface {
	Write(row flatten.Row) error
	Close() error
}
