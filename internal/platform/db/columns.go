package db

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of *pgxpool.Pool and pgx.Tx used by repositories.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ColumnSet is the set of column names a table actually has.
type ColumnSet map[string]bool

// Has reports whether the table has column name.
func (s ColumnSet) Has(name string) bool { return s[name] }

// Missing returns the names in want that the table lacks, in sorted order.
func (s ColumnSet) Missing(want []string) []string {
	var out []string
	for _, w := range want {
		if !s[w] {
			out = append(out, w)
		}
	}
	sort.Strings(out)
	return out
}

// Columns reads the column names of table from information_schema, scoped to
// the current search_path. An absent table yields an empty set, not an error.
func Columns(ctx context.Context, q Querier, table string) (ColumnSet, error) {
	rows, err := q.Query(ctx, `SELECT column_name FROM information_schema.columns
		WHERE table_name = $1 AND table_schema = ANY (current_schemas(false))`, table)
	if err != nil {
		return nil, Fail("columns "+table, err)
	}
	defer rows.Close()

	set := ColumnSet{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, Fail("columns "+table, err)
		}
		set[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, Fail("columns "+table, err)
	}
	return set, nil
}
