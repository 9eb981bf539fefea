package storage

import "context"

// Row is one database record keyed by column name.
type Row map[string]any

// Column describes one column as reported by PRAGMA table_info.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	NotNull    bool   `json:"not_null"`
	PrimaryKey bool   `json:"primary_key"`
}

// SelectQuery is a read over one table. Filter values are either compared
// for equality or given as {"op": ..., "value": ...}.
type SelectQuery struct {
	Table   string
	Columns []string
	Filter  map[string]any
	Limit   int
	OrderBy string
}

// AggregateQuery applies one of count, sum, avg, min or max to Column,
// optionally grouped by GroupBy.
type AggregateQuery struct {
	Table    string
	Function string
	Column   string
	GroupBy  string
	Filter   map[string]any
}

// Database is the set of operations the assistant can perform on the
// backing store. Table names are validated against AllowedTables before any
// statement is issued.
type Database interface {
	Select(ctx context.Context, q SelectQuery) ([]Row, error)
	Aggregate(ctx context.Context, q AggregateQuery) ([]Row, error)
	Insert(ctx context.Context, table string, values map[string]any) (Row, error)
	Update(ctx context.Context, table string, values, filter map[string]any) ([]Row, error)
	Columns(ctx context.Context, table string) ([]Column, error)
}
