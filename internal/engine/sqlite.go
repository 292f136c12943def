package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLite is an Engine over a dedicated sqlite handle. Registered sources
// live in memory until ingested into tables.
type SQLite struct {
	db *sql.DB

	mu      sync.Mutex
	sources map[string]string
}

// Open opens a sqlite-backed engine at path (":memory:" for ephemeral use).
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open engine db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply engine pragma: %w", err)
	}
	return &SQLite{
		db:      db,
		sources: make(map[string]string),
	}, nil
}

// Close releases the underlying handle.
func (e *SQLite) Close() error {
	return e.db.Close()
}

// Query executes SQL and materializes every row as a name->value map.
func (e *SQLite) Query(ctx context.Context, query string) ([]Row, error) {
	log.Debug().Str("sql", query).Msg("engine: execute")

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("engine query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// Describe returns the table schema, failing for unknown tables.
func (e *SQLite) Describe(ctx context.Context, table string) ([]Column, error) {
	rows, err := e.db.QueryContext(ctx, `SELECT name, type FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("describe table: %w", err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %q does not exist", table)
	}
	return cols, nil
}

// RegisterSource stores raw content under a virtual source name.
func (e *SQLite) RegisterSource(name, content string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sources[name] = content
}

// CreateTableFromSource ingests a registered CSV source into table,
// inferring a typed schema from the full data.
func (e *SQLite) CreateTableFromSource(ctx context.Context, table, source string) error {
	e.mu.Lock()
	content, ok := e.sources[source]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("source %q is not registered", source)
	}

	frame, err := parseCSV(content)
	if err != nil {
		return fmt.Errorf("parse csv source %q: %w", source, err)
	}

	columns := make([]string, len(frame.headers))
	for i, h := range frame.headers {
		columns[i] = fmt.Sprintf("%s %s", quoteIdent(h), frame.types[i])
	}
	createStmt := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(columns, ", "))

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ingest: %w", err)
	}
	if _, err := tx.ExecContext(ctx, createStmt); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("create table %q: %w", table, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(frame.headers)), ",")
	insertStmt := fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(table), placeholders)
	stmt, err := tx.PrepareContext(ctx, insertStmt)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, record := range frame.records {
		args := make([]any, len(frame.headers))
		for i := range frame.headers {
			args[i] = convertValue(record[i], frame.types[i])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ingest: %w", err)
	}

	log.Debug().Str("table", table).Int("rows", len(frame.records)).Msg("engine: source ingested")
	return nil
}

// Explain returns the engine's query plan as text, bypassing any caching.
func (e *SQLite) Explain(ctx context.Context, query string) (string, error) {
	rows, err := e.Query(ctx, "EXPLAIN QUERY PLAN "+query)
	if err != nil {
		return "", fmt.Errorf("explain query: %w", err)
	}
	if len(rows) == 0 {
		return "No explanation available.", nil
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		if detail, ok := row["detail"].(string); ok {
			lines = append(lines, detail)
		}
	}
	if len(lines) == 0 {
		return "No explanation available.", nil
	}
	return strings.Join(lines, "\n"), nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
