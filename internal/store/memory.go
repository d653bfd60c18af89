package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// memoryTables are the relations the in-memory backend knows about. A query
// against any other table yields an empty read or a zero-effect write, never
// an error — callers cannot distinguish "unknown table" from "no rows",
// which matches the other backends' contract for unsupported requests.
var memoryTables = []string{"users", "user_sessions", "repositories", "repository_files"}

// Memory is the in-memory adapter backend: a map of record slices with a
// per-table autoincrement counter. It is used in demo deployments (no
// filesystem) and heavily in tests. All data is lost on process exit.
type Memory struct {
	mu     sync.Mutex
	tables map[string][]Row
	nextID map[string]int64
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	m := &Memory{
		tables: make(map[string][]Row),
		nextID: make(map[string]int64),
	}
	for _, t := range memoryTables {
		m.tables[t] = nil
		m.nextID[t] = 1
	}
	return m
}

func (m *Memory) Get(ctx context.Context, q Query) (Row, error) {
	rows, err := m.All(ctx, q)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (m *Memory) All(_ context.Context, q Query) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, ok := m.tables[q.Table]
	if !ok {
		return nil, nil
	}

	var out []Row
	for _, rec := range records {
		if matches(rec, q.Where) {
			out = append(out, cloneRow(rec))
		}
	}

	if len(q.OrderBy) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, col := range q.OrderBy {
				c := compareValues(out[i][col], out[j][col])
				if c == 0 {
					continue
				}
				if q.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *Memory) Run(_ context.Context, mut Mutation) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, ok := m.tables[mut.Table]
	if !ok {
		return Result{}, nil
	}

	switch mut.Op {
	case OpInsert:
		rec := cloneRow(mut.Values)
		id := m.nextID[mut.Table]
		m.nextID[mut.Table] = id + 1
		rec["id"] = id
		now := time.Now().UTC()
		if _, ok := rec["created_at"]; !ok {
			rec["created_at"] = now
		}
		if _, ok := rec["updated_at"]; !ok {
			rec["updated_at"] = now
		}
		m.tables[mut.Table] = append(records, rec)
		return Result{LastID: id, Affected: 1}, nil

	case OpUpdate:
		var affected int64
		for _, rec := range records {
			if !matches(rec, mut.Where) {
				continue
			}
			for col, val := range mut.Values {
				rec[col] = val
			}
			affected++
		}
		return Result{Affected: affected}, nil

	case OpDelete:
		kept := records[:0]
		var affected int64
		for _, rec := range records {
			if matches(rec, mut.Where) {
				affected++
				continue
			}
			kept = append(kept, rec)
		}
		m.tables[mut.Table] = kept
		return Result{Affected: affected}, nil
	}

	return Result{}, nil
}

// Exec is a no-op: the in-memory structure needs no schema. The statement is
// accepted and discarded so setup code can run unconditionally against any
// backend.
func (m *Memory) Exec(_ context.Context, _ string) error {
	return nil
}

func (m *Memory) Close() error {
	return nil
}

func matches(rec Row, where []Cond) bool {
	for _, c := range where {
		if compareValues(rec[c.Column], c.Value) != 0 {
			return false
		}
	}
	return true
}

func cloneRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// compareValues orders two column values, normalizing across the numeric and
// temporal representations the backends produce. Mismatched kinds fall back
// to string comparison so sorting stays deterministic.
func compareValues(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	if na, aok := toFloat(a); aok {
		if nb, bok := toFloat(b); bok {
			switch {
			case na < nb:
				return -1
			case na > nb:
				return 1
			default:
				return 0
			}
		}
	}

	if ta, aok := a.(time.Time); aok {
		if tb, bok := b.(time.Time); bok {
			return ta.Compare(tb)
		}
	}

	if ba, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			switch {
			case ba == bb:
				return 0
			case bb:
				return -1
			default:
				return 1
			}
		}
	}

	return strings.Compare(stringify(a), stringify(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case time.Time:
		return s.Format(time.RFC3339Nano)
	}
	return ""
}
