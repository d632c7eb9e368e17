// Package repository exposes SQLite data as the R binding of a render.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/neurodesk/directive/pkg/directive"
)

// Repository reads tables and queries into template values.
type Repository struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens the SQLite database at dataSource. The driver is
// modernc.org/sqlite unless built with the cgo_sqlite tag.
func Open(dataSource string, logger *slog.Logger) (*Repository, error) {
	db, err := openDB(dataSource)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// :memory: databases exist per connection.
	db.SetMaxOpenConns(1)
	r := New(db)
	if logger != nil {
		r.logger = logger
	}
	return r, nil
}

// New wraps an open database.
func New(db *sql.DB) *Repository {
	return &Repository{db: db, logger: slog.New(slog.DiscardHandler)}
}

// DB returns the underlying database.
func (r *Repository) DB() *sql.DB { return r.db }

// Close closes the database.
func (r *Repository) Close() error { return r.db.Close() }

// Tables lists the user tables, sorted.
func (r *Repository) Tables(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("listing tables: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Query runs query and returns one object per row keyed by column name.
func (r *Repository) Query(ctx context.Context, query string, args ...any) (directive.Array, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := directive.Array{}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(directive.Object, len(cols))
		for i, col := range cols {
			row[col] = columnValue(vals[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Table returns every row of the named table in rowid order.
func (r *Repository) Table(ctx context.Context, name string) (directive.Array, error) {
	rows, err := r.Query(ctx, "SELECT * FROM "+quoteIdent(name))
	if err != nil {
		return nil, fmt.Errorf("reading table %q: %w", name, err)
	}
	return rows, nil
}

// Load returns an object holding every table and every named query. A
// query whose name matches a table replaces it.
func (r *Repository) Load(ctx context.Context, queries map[string]string) (directive.Object, error) {
	tables, err := r.Tables(ctx)
	if err != nil {
		return nil, err
	}
	repo := make(directive.Object, len(tables)+len(queries))
	for _, name := range tables {
		if _, ok := queries[name]; ok {
			continue
		}
		rows, err := r.Table(ctx, name)
		if err != nil {
			return nil, err
		}
		repo[name] = rows
		r.logger.Debug("loaded table", "table", name, "rows", len(rows))
	}

	names := make([]string, 0, len(queries))
	for name := range queries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rows, err := r.Query(ctx, queries[name])
		if err != nil {
			return nil, fmt.Errorf("running query %q: %w", name, err)
		}
		repo[name] = rows
		r.logger.Debug("loaded query", "query", name, "rows", len(rows))
	}
	return repo, nil
}

func columnValue(v any) directive.Value {
	switch t := v.(type) {
	case nil:
		return directive.Null{}
	case int64:
		return directive.Number(float64(t))
	case float64:
		return directive.Number(t)
	case bool:
		return directive.Bool(t)
	case []byte:
		return directive.String(string(t))
	case string:
		return directive.String(t)
	case time.Time:
		return directive.String(t.Format(time.RFC3339))
	default:
		return directive.String(fmt.Sprint(t))
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
