package source

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"regexp"

	_ "modernc.org/sqlite" // pure-Go sqlite driver
)

// identRe restricts table and column names to plain identifiers so
// they can be quoted into the query safely.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Table reads the raw document column of a SQLite table in rowid
// order.
type Table struct {
	path   string
	table  string
	column string
}

// NewTable returns a reader over path's table/column pair. The column
// defaults to DefaultRawColumn.
func NewTable(path, table, column string) (*Table, error) {
	if column == "" {
		column = DefaultRawColumn
	}
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if !identRe.MatchString(column) {
		return nil, fmt.Errorf("invalid column name %q", column)
	}
	return &Table{path: path, table: table, column: column}, nil
}

// Records yields one Record per row. The database handle lives only
// for the duration of the iteration.
func (t *Table) Records(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		db, err := sql.Open("sqlite", t.path)
		if err != nil {
			yield(Record{}, fmt.Errorf("open %s: %w", t.path, err))
			return
		}
		defer db.Close() // nolint:errcheck

		// identRe-validated names are interpolated bare: double-quoting
		// would let sqlite read a missing column as a string literal
		query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY rowid`, t.column, t.table)
		rows, err := db.QueryContext(ctx, query)
		if err != nil {
			yield(Record{}, fmt.Errorf("query %s.%s: %w", t.table, t.column, err))
			return
		}
		defer rows.Close() // nolint:errcheck

		seq := 0
		for rows.Next() {
			seq++
			var raw sql.NullString
			if err := rows.Scan(&raw); err != nil {
				yield(Record{}, fmt.Errorf("scan %s row %d: %w", t.table, seq, err))
				return
			}
			rec := Record{Seq: seq, Origin: fmt.Sprintf("%s:%s#%d", t.path, t.table, seq)}
			if raw.Valid {
				rec.Raw = []byte(raw.String)
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Record{}, fmt.Errorf("iterate %s: %w", t.table, err))
		}
	}
}
