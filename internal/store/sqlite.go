package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/sakif/gitmap/internal/store/migrations"

	// Side-effect import: registers the pure-Go "sqlite" driver with
	// database/sql. No C compiler needed, works everywhere Go works.
	_ "modernc.org/sqlite"
)

// SQLite is the embedded-file adapter backend. Query intent is translated to
// SQL here and nowhere else; callers never see the dialect.
type SQLite struct {
	conn *sql.DB
}

var _ Store = (*SQLite)(nil)

// identRe vets table and column names interpolated into SQL. Identifiers
// come from registry code, not request input, but a cheap check keeps a
// future mistake from becoming an injection.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// OpenSQLite opens (creating if needed) the database file, applies pragmas
// and embedded migrations, and runs the legacy-row backfill. Use ":memory:"
// for a throwaway database in tests.
//
// gitURLHost is the host used when backfilling git_url for rows created
// before that column existed.
func OpenSQLite(dbPath, gitURLHost string) (*SQLite, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: creating data directory: %w", err)
		}
	}

	// _time_format=sqlite makes the driver bind time.Time as
	// "2006-01-02 15:04:05.999999999-07:00", which Row.Time knows how to
	// read back.
	conn, err := sql.Open("sqlite", dbPath+"?_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads during a write; foreign keys are off by
	// default in SQLite and we rely on the repository_files cascade.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	if err := migrations.Up(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	db := &SQLite{conn: conn}
	if err := db.backfill(gitURLHost); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: backfill: %w", err)
	}
	if err := db.seedAdmin(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	return db, nil
}

// seedAdmin inserts the bootstrap admin row on first run. The hash column
// holds a placeholder, not a bcrypt digest, so the account cannot
// authenticate; it exists so a fresh database is never user-less.
func (db *SQLite) seedAdmin() error {
	_, err := db.conn.Exec(`
		INSERT OR IGNORE INTO users (username, email, password_hash)
		VALUES ('admin', 'admin@gitmap.com', 'placeholder-hash')`)
	if err != nil {
		return fmt.Errorf("seeding admin user: %w", err)
	}
	return nil
}

// backfill performs the best-effort fixups for databases created by older
// versions: synthesize git_url for repositories that predate the column,
// then try to add the global uniqueness index (which can legitimately fail
// on legacy data — that is logged by the caller's error path only if the
// backfill itself breaks, not the index).
func (db *SQLite) backfill(gitURLHost string) error {
	rows, err := db.conn.Query(`
		SELECT r.id, u.username, r.name
		FROM repositories r JOIN users u ON r.user_id = u.id
		WHERE r.git_url IS NULL OR r.git_url = ''`)
	if err != nil {
		return fmt.Errorf("selecting legacy rows: %w", err)
	}
	defer rows.Close()

	type legacy struct {
		id             int64
		username, name string
	}
	var pending []legacy
	for rows.Next() {
		var l legacy
		if err := rows.Scan(&l.id, &l.username, &l.name); err != nil {
			return fmt.Errorf("scanning legacy row: %w", err)
		}
		pending = append(pending, l)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, l := range pending {
		gitURL := fmt.Sprintf("git://%s/%s/%s.git", gitURLHost, l.username, l.name)
		if _, err := db.conn.Exec(
			`UPDATE repositories SET git_url = ? WHERE id = ?`, gitURL, l.id,
		); err != nil {
			return fmt.Errorf("backfilling repository %d: %w", l.id, err)
		}
	}

	// Best effort: duplicate legacy values would make this fail, and that is
	// tolerable — new rows are checked at the registry layer regardless.
	_, _ = db.conn.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_repositories_git_url ON repositories(git_url)`)

	return nil
}

func (db *SQLite) Get(ctx context.Context, q Query) (Row, error) {
	q.Limit = 1
	rows, err := db.All(ctx, q)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (db *SQLite) All(ctx context.Context, q Query) ([]Row, error) {
	stmt, args, err := buildSelect(q)
	if err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying %s: %w", q.Table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading columns: %w", err)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sqlite: scanning %s: %w", q.Table, err)
		}

		rec := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				rec[col] = string(b)
			} else {
				rec[col] = values[i]
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating %s: %w", q.Table, err)
	}

	return out, nil
}

func (db *SQLite) Run(ctx context.Context, m Mutation) (Result, error) {
	stmt, args, err := buildMutation(m)
	if err != nil {
		return Result{}, err
	}

	res, err := db.conn.ExecContext(ctx, stmt, args...)
	if err != nil {
		return Result{}, fmt.Errorf("sqlite: mutating %s: %w", m.Table, err)
	}

	var out Result
	if m.Op == OpInsert {
		// modernc's driver supports LastInsertId; an error here would mean
		// the insert itself failed, which was already checked.
		out.LastID, _ = res.LastInsertId()
	}
	out.Affected, _ = res.RowsAffected()
	return out, nil
}

func (db *SQLite) Exec(ctx context.Context, stmt string) error {
	if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

func (db *SQLite) Close() error {
	return db.conn.Close()
}

func buildSelect(q Query) (string, []any, error) {
	if !identRe.MatchString(q.Table) {
		return "", nil, fmt.Errorf("sqlite: invalid table name %q", q.Table)
	}

	var sb strings.Builder
	sb.WriteString("SELECT * FROM ")
	sb.WriteString(q.Table)

	args, err := appendWhere(&sb, q.Where)
	if err != nil {
		return "", nil, err
	}

	if len(q.OrderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, col := range q.OrderBy {
			if !identRe.MatchString(col) {
				return "", nil, fmt.Errorf("sqlite: invalid order column %q", col)
			}
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(col)
			if q.Desc {
				sb.WriteString(" DESC")
			}
		}
	}

	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}

	return sb.String(), args, nil
}

func buildMutation(m Mutation) (string, []any, error) {
	if !identRe.MatchString(m.Table) {
		return "", nil, fmt.Errorf("sqlite: invalid table name %q", m.Table)
	}

	var sb strings.Builder
	var args []any

	switch m.Op {
	case OpInsert:
		cols := sortedColumns(m.Values)
		sb.WriteString("INSERT INTO ")
		sb.WriteString(m.Table)
		sb.WriteString(" (")
		for i, col := range cols {
			if !identRe.MatchString(col) {
				return "", nil, fmt.Errorf("sqlite: invalid column %q", col)
			}
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(col)
			args = append(args, m.Values[col])
		}
		sb.WriteString(") VALUES (")
		sb.WriteString(strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
		sb.WriteString(")")
		return sb.String(), args, nil

	case OpUpdate:
		cols := sortedColumns(m.Values)
		sb.WriteString("UPDATE ")
		sb.WriteString(m.Table)
		sb.WriteString(" SET ")
		for i, col := range cols {
			if !identRe.MatchString(col) {
				return "", nil, fmt.Errorf("sqlite: invalid column %q", col)
			}
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(col)
			sb.WriteString(" = ?")
			args = append(args, m.Values[col])
		}
		whereArgs, err := appendWhere(&sb, m.Where)
		if err != nil {
			return "", nil, err
		}
		return sb.String(), append(args, whereArgs...), nil

	case OpDelete:
		sb.WriteString("DELETE FROM ")
		sb.WriteString(m.Table)
		whereArgs, err := appendWhere(&sb, m.Where)
		if err != nil {
			return "", nil, err
		}
		return sb.String(), whereArgs, nil
	}

	return "", nil, fmt.Errorf("sqlite: unknown mutation op %d", m.Op)
}

func appendWhere(sb *strings.Builder, where []Cond) ([]any, error) {
	if len(where) == 0 {
		return nil, nil
	}
	var args []any
	sb.WriteString(" WHERE ")
	for i, c := range where {
		if !identRe.MatchString(c.Column) {
			return nil, fmt.Errorf("sqlite: invalid condition column %q", c.Column)
		}
		if i > 0 {
			sb.WriteString(" AND ")
		}
		sb.WriteString(c.Column)
		sb.WriteString(" = ?")
		args = append(args, c.Value)
	}
	return args, nil
}

func sortedColumns(values Row) []string {
	cols := make([]string, 0, len(values))
	for col := range values {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}
