package sqlstore

import (
	"fmt"
	"strings"

	"github.com/zoobzio/quarry/store"
)

// Dialect holds the SQL differences between supported databases.
type Dialect struct {
	Name string

	// Placeholder renders the nth (1-based) bind parameter.
	Placeholder func(n int) string

	// Prefix renders a starts-with test of column against the value. Each
	// call of param binds the value once more.
	Prefix func(column, param func() string) string
}

// SQLite targets SQLite 3.35 or later.
var SQLite = Dialect{
	Name:        "sqlite",
	Placeholder: func(int) string { return "?" },
	Prefix: func(column, param func() string) string {
		return fmt.Sprintf("substr(%s, 1, length(%s)) = %s", column(), param(), param())
	},
}

// Postgres targets PostgreSQL 11 or later.
var Postgres = Dialect{
	Name:        "postgres",
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	Prefix: func(column, param func() string) string {
		return fmt.Sprintf("starts_with(%s, %s)", column(), param())
	},
}

// quote renders an identifier.
func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// builder accumulates a statement and its arguments.
type builder struct {
	dialect Dialect
	sql     strings.Builder
	args    []any
}

func (b *builder) write(parts ...string) {
	for _, p := range parts {
		b.sql.WriteString(p)
	}
}

// bind adds v as an argument and returns its placeholder.
func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	return b.dialect.Placeholder(len(b.args))
}

func (b *builder) where(f store.Filter) {
	if len(f) == 0 {
		return
	}
	b.write(" WHERE ")
	for i, p := range f {
		if i > 0 {
			b.write(" AND ")
		}
		col := quote(p.Column)
		switch p.Op {
		case store.OpPrefix:
			v := p.Value
			b.write(b.dialect.Prefix(
				func() string { return col },
				func() string { return b.bind(v) },
			))
		case store.OpGte:
			b.write(col, " >= ", b.bind(p.Value))
		case store.OpLte:
			b.write(col, " <= ", b.bind(p.Value))
		default:
			b.write(col, " = ", b.bind(p.Value))
		}
	}
}

func (b *builder) String() string {
	return b.sql.String()
}

func selectSQL(d Dialect, t store.Table, f store.Filter) (string, []any) {
	b := &builder{dialect: d}
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = quote(c)
	}
	b.write("SELECT ", strings.Join(cols, ", "), " FROM ", quote(t.Name))
	b.where(f)
	b.write(" ORDER BY ", quote(t.PrimaryKey))
	return b.String(), b.args
}

func countSQL(d Dialect, t store.Table, f store.Filter) (string, []any) {
	b := &builder{dialect: d}
	b.write("SELECT COUNT(*) FROM ", quote(t.Name))
	b.where(f)
	return b.String(), b.args
}

// insertSQL writes the given columns and returns the primary key.
func insertSQL(d Dialect, t store.Table, cols []string, row store.Row) (string, []any) {
	b := &builder{dialect: d}
	names := make([]string, len(cols))
	params := make([]string, len(cols))
	for i, c := range cols {
		names[i] = quote(c)
		params[i] = b.bind(row[c])
	}
	b.write("INSERT INTO ", quote(t.Name), " (", strings.Join(names, ", "), ")")
	if len(cols) == 0 {
		b.sql.Reset()
		b.write("INSERT INTO ", quote(t.Name), " DEFAULT VALUES")
	} else {
		b.write(" VALUES (", strings.Join(params, ", "), ")")
	}
	b.write(" RETURNING ", quote(t.PrimaryKey))
	return b.String(), b.args
}

func updateSQL(d Dialect, t store.Table, f store.Filter, cols []string, patch store.Row) (string, []any) {
	b := &builder{dialect: d}
	b.write("UPDATE ", quote(t.Name), " SET ")
	for i, c := range cols {
		if i > 0 {
			b.write(", ")
		}
		b.write(quote(c), " = ", b.bind(patch[c]))
	}
	b.where(f)
	return b.String(), b.args
}

func deleteSQL(d Dialect, t store.Table, f store.Filter) (string, []any) {
	b := &builder{dialect: d}
	b.write("DELETE FROM ", quote(t.Name))
	b.where(f)
	return b.String(), b.args
}
