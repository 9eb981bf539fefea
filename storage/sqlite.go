package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"fieldreport/config"
)

const (
	DefaultSelectLimit = 100
	MaxSelectLimit     = 1000
)

// SQLiteDatabase implements Database on modernc.org/sqlite.
type SQLiteDatabase struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func OpenSQLite(path string) (*SQLiteDatabase, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite serializes writers anyway, and an in-memory
	// database only exists on the connection that created it.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteDatabase{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDatabase) initialize() error {
	if _, err := s.db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return err
	}
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}

// DB exposes the handle for seeding and tests.
func (s *SQLiteDatabase) DB() *sql.DB {
	return s.db
}

// Columns lists the columns of an allowed table.
func (s *SQLiteDatabase) Columns(ctx context.Context, table string) ([]Column, error) {
	name, err := ResolveTable(table)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(name)))
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", name, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			cid          int
			col          Column
			notNull, pk  int
			defaultValue any
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &defaultValue, &pk); err != nil {
			return nil, err
		}
		col.NotNull = notNull != 0
		col.PrimaryKey = pk != 0
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

// tableColumns resolves the table and returns its column set.
func (s *SQLiteDatabase) tableColumns(ctx context.Context, table string) (string, map[string]bool, error) {
	name, err := ResolveTable(table)
	if err != nil {
		return "", nil, err
	}
	cols, err := s.Columns(ctx, name)
	if err != nil {
		return "", nil, err
	}
	set := make(map[string]bool, len(cols))
	for _, c := range cols {
		set[c.Name] = true
	}
	return name, set, nil
}

func (s *SQLiteDatabase) Select(ctx context.Context, q SelectQuery) ([]Row, error) {
	table, cols, err := s.tableColumns(ctx, q.Table)
	if err != nil {
		return nil, err
	}

	projection := "*"
	if len(q.Columns) > 0 {
		quoted := make([]string, 0, len(q.Columns))
		for _, c := range q.Columns {
			c = strings.TrimSpace(c)
			if c == "*" {
				quoted = append(quoted, "*")
				continue
			}
			if !cols[c] {
				return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, c)
			}
			quoted = append(quoted, quoteIdent(c))
		}
		projection = strings.Join(quoted, ", ")
	}

	where, args, err := buildWhere(table, q.Filter, cols)
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf("SELECT %s FROM %s%s", projection, quoteIdent(table), where)

	if q.OrderBy != "" {
		order, err := buildOrderBy(table, q.OrderBy, cols)
		if err != nil {
			return nil, err
		}
		stmt += order
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultSelectLimit
	}
	stmt += " LIMIT ?"
	args = append(args, min(limit, MaxSelectLimit))

	return s.query(ctx, stmt, args...)
}

var aggregateFunctions = map[string]string{
	"count": "COUNT",
	"sum":   "SUM",
	"avg":   "AVG",
	"min":   "MIN",
	"max":   "MAX",
}

func (s *SQLiteDatabase) Aggregate(ctx context.Context, q AggregateQuery) ([]Row, error) {
	table, cols, err := s.tableColumns(ctx, q.Table)
	if err != nil {
		return nil, err
	}

	fnKey := strings.ToLower(strings.TrimSpace(q.Function))
	fn, ok := aggregateFunctions[fnKey]
	if !ok {
		return nil, fmt.Errorf("%w: función de agregación %q (usa count, sum, avg, min o max)", ErrInvalidArgument, q.Function)
	}

	column := strings.TrimSpace(q.Column)
	var target string
	switch {
	case column == "" || column == "*":
		if fnKey != "count" {
			return nil, fmt.Errorf("%w: %s requiere una columna", ErrInvalidArgument, fnKey)
		}
		target = "*"
	case cols[column]:
		target = quoteIdent(column)
	default:
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, column)
	}

	where, args, err := buildWhere(table, q.Filter, cols)
	if err != nil {
		return nil, err
	}

	expr := fmt.Sprintf("%s(%s) AS %s", fn, target, quoteIdent(fnKey))
	if q.GroupBy == "" {
		return s.query(ctx, fmt.Sprintf("SELECT %s FROM %s%s", expr, quoteIdent(table), where), args...)
	}

	group := strings.TrimSpace(q.GroupBy)
	if !cols[group] {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, group)
	}
	stmt := fmt.Sprintf("SELECT %s, %s FROM %s%s GROUP BY %s ORDER BY %s",
		quoteIdent(group), expr, quoteIdent(table), where, quoteIdent(group), quoteIdent(group))
	return s.query(ctx, stmt, args...)
}

func (s *SQLiteDatabase) Insert(ctx context.Context, table string, values map[string]any) (Row, error) {
	name, cols, err := s.tableColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: INSERT sin valores", ErrInvalidArgument)
	}

	keys := sortedKeys(values)
	names := make([]string, len(keys))
	marks := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		if !cols[k] {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, name, k)
		}
		names[i] = quoteIdent(k)
		marks[i] = "?"
		args[i] = bindValue(values[k])
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		quoteIdent(name), strings.Join(names, ", "), strings.Join(marks, ", "))

	rows, err := s.query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert into %s returned no row", name)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Storage] Inserted into %s: id=%v", name, rows[0]["id"])
	}
	return rows[0], nil
}

// Update refuses to run without a filter: an unfiltered UPDATE would rewrite
// the whole table.
func (s *SQLiteDatabase) Update(ctx context.Context, table string, values, filter map[string]any) ([]Row, error) {
	if len(filter) == 0 {
		return nil, ErrMissingFilter
	}

	name, cols, err := s.tableColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: UPDATE sin valores", ErrInvalidArgument)
	}

	keys := sortedKeys(values)
	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys)+len(filter))
	for i, k := range keys {
		if !cols[k] {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, name, k)
		}
		sets[i] = quoteIdent(k) + " = ?"
		args = append(args, bindValue(values[k]))
	}

	where, whereArgs, err := buildWhere(name, filter, cols)
	if err != nil {
		return nil, err
	}
	args = append(args, whereArgs...)

	stmt := fmt.Sprintf("UPDATE %s SET %s%s RETURNING *", quoteIdent(name), strings.Join(sets, ", "), where)
	rows, err := s.query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Storage] Updated %d row(s) in %s", len(rows), name)
	}
	return rows, nil
}

func (s *SQLiteDatabase) query(ctx context.Context, stmt string, args ...any) ([]Row, error) {
	if config.DebugLog != nil {
		config.DebugLog.Printf("[Storage] %s %v", stmt, args)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []Row{}
	for rows.Next() {
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(Row, len(names))
		for i, n := range names {
			if b, ok := values[i].([]byte); ok {
				row[n] = string(b)
			} else {
				row[n] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return out, nil
}

var filterOperators = map[string]string{
	"eq":   "=",
	"neq":  "<>",
	"gt":   ">",
	"gte":  ">=",
	"lt":   "<",
	"lte":  "<=",
	"like": "LIKE",
	"in":   "IN",
}

// buildWhere turns a filter into a WHERE clause with bound arguments.
// Conditions are joined with AND in column-name order.
func buildWhere(table string, filter map[string]any, cols map[string]bool) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}

	var (
		conds []string
		args  []any
	)
	for _, col := range sortedKeys(filter) {
		if !cols[col] {
			return "", nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, col)
		}
		op, value := "eq", filter[col]
		if m, ok := value.(map[string]any); ok {
			if raw, has := m["op"]; has {
				s, _ := raw.(string)
				op = strings.ToLower(strings.TrimSpace(s))
				value = m["value"]
			}
		} else if list, ok := value.([]any); ok {
			op, value = "in", list
		}

		sqlOp, ok := filterOperators[op]
		if !ok {
			return "", nil, fmt.Errorf("%w: operador %q en filtro de %s", ErrInvalidArgument, op, col)
		}
		ident := quoteIdent(col)

		switch {
		case op == "in":
			list, ok := value.([]any)
			if !ok || len(list) == 0 {
				return "", nil, fmt.Errorf("%w: el operador in de %s requiere una lista no vacía", ErrInvalidArgument, col)
			}
			marks := make([]string, len(list))
			for i, v := range list {
				marks[i] = "?"
				args = append(args, bindValue(v))
			}
			conds = append(conds, fmt.Sprintf("%s IN (%s)", ident, strings.Join(marks, ", ")))
		case value == nil && op == "eq":
			conds = append(conds, ident+" IS NULL")
		case value == nil && op == "neq":
			conds = append(conds, ident+" IS NOT NULL")
		default:
			conds = append(conds, fmt.Sprintf("%s %s ?", ident, sqlOp))
			args = append(args, bindValue(value))
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// buildOrderBy accepts "col", "col asc", "col desc" or "-col".
func buildOrderBy(table, orderBy string, cols map[string]bool) (string, error) {
	fields := strings.Fields(orderBy)
	col, dir := "", "ASC"
	switch len(fields) {
	case 1:
		col = fields[0]
		if strings.HasPrefix(col, "-") {
			col, dir = col[1:], "DESC"
		}
	case 2:
		col = fields[0]
		switch strings.ToUpper(fields[1]) {
		case "ASC":
		case "DESC":
			dir = "DESC"
		default:
			return "", fmt.Errorf("%w: orden %q", ErrInvalidArgument, orderBy)
		}
	default:
		return "", fmt.Errorf("%w: orden %q", ErrInvalidArgument, orderBy)
	}
	if !cols[col] {
		return "", fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, col)
	}
	return fmt.Sprintf(" ORDER BY %s %s", quoteIdent(col), dir), nil
}

// bindValue maps decoded JSON values onto SQLite storage classes.
func bindValue(v any) any {
	switch val := v.(type) {
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return int64(val)
		}
		return val
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case map[string]any, []any:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	default:
		return v
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
