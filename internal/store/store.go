// Package store is the storage adapter: a four-operation capability set
// (Get / All / Run / Exec) over a backing row store.
//
// Three backends implement the same contract — an embedded SQLite file, an
// in-memory record store, and a remote rows-over-HTTP API. Callers express
// query intent with typed values (table, ANDed equality conditions, order,
// limit) rather than SQL text, so every backend interprets a request
// identically and none of them needs a SQL parser. Anything beyond that
// intent set — range predicates, joins, aggregates — is deliberately
// unsupported; the registry layer does such filtering in Go.
//
// The adapter handle is constructed once at startup by Open and injected
// into the registry; there is no lazily-initialized package-level handle.
package store

import (
	"context"
	"time"
)

// Row is one record, keyed by column name. Backends normalize values to
// int64/float64/bool/string/time.Time/nil where they can; the typed
// accessors below absorb the remaining per-backend differences.
type Row map[string]any

// Cond is a single equality condition. Conditions in a Query or Mutation are
// ANDed.
type Cond struct {
	Column string
	Value  any
}

// Eq builds an equality condition.
func Eq(column string, value any) Cond {
	return Cond{Column: column, Value: value}
}

// Query describes a read. OrderBy lists column names applied in order; Desc
// flips the whole ordering. Limit of 0 means no limit.
type Query struct {
	Table   string
	Where   []Cond
	OrderBy []string
	Desc    bool
	Limit   int
}

// Op is the mutation kind.
type Op int

const (
	OpInsert Op = iota
	OpUpdate
	OpDelete
)

// Mutation describes a write. Values is used by inserts and updates; Where
// by updates and deletes.
type Mutation struct {
	Op     Op
	Table  string
	Values Row
	Where  []Cond
}

// Insert builds an insert mutation.
func Insert(table string, values Row) Mutation {
	return Mutation{Op: OpInsert, Table: table, Values: values}
}

// Update builds an update mutation.
func Update(table string, values Row, where ...Cond) Mutation {
	return Mutation{Op: OpUpdate, Table: table, Values: values, Where: where}
}

// Delete builds a delete mutation.
func Delete(table string, where ...Cond) Mutation {
	return Mutation{Op: OpDelete, Table: table, Where: where}
}

// Result reports the outcome of a mutation. LastID is the inserted row's id
// (inserts only); Affected counts touched rows.
type Result struct {
	LastID   int64
	Affected int64
}

// Store is the adapter contract.
//
// Get returns the first matching row or (nil, nil) when nothing matches —
// "no row" is not an error. All returns every match in the requested order.
// Run applies a mutation. Exec runs a backend-specific schema/setup
// statement; backends without a schema treat it as a recorded no-op.
type Store interface {
	Get(ctx context.Context, q Query) (Row, error)
	All(ctx context.Context, q Query) ([]Row, error)
	Run(ctx context.Context, m Mutation) (Result, error)
	Exec(ctx context.Context, stmt string) error
	Close() error
}

// Timestamp layouts accepted by Row.Time, covering the SQLite driver's
// bind format, CURRENT_TIMESTAMP defaults, and RFC 3339 from the remote
// backend.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Int64 reads an integer column, tolerating the numeric types different
// backends produce (SQLite: int64, JSON: float64).
func (r Row) Int64(column string) int64 {
	switch v := r[column].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// String reads a text column; nil (SQL NULL) becomes "".
func (r Row) String(column string) string {
	switch v := r[column].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

// Bool reads a boolean column, accepting SQLite's 0/1 integers.
func (r Row) Bool(column string) bool {
	switch v := r[column].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	case float64:
		return v != 0
	}
	return false
}

// Time reads a timestamp column, parsing string representations as needed.
// Unparseable or absent values yield the zero time.
func (r Row) Time(column string) time.Time {
	switch v := r[column].(type) {
	case time.Time:
		return v
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
