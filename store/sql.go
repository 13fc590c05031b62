package store

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
)

var errNoMatchColumns = errors.New("store: no match columns")

// identifier quotes a possibly schema-qualified name.
func identifier(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

// ColumnsQuery returns the introspection query for a collection. Unqualified
// names resolve against the connection's current schema.
func ColumnsQuery(collection string) (string, []any) {
	if schema, table, ok := strings.Cut(collection, "."); ok {
		return `SELECT column_name, data_type
			FROM information_schema.columns
			WHERE table_schema = $1 AND table_name = $2
			ORDER BY ordinal_position`, []any{schema, table}
	}
	return `SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`, []any{collection}
}

// matchPredicate ORs an equality test on every column against $1. Columns
// are compared as text since historical code columns are not all varchar.
func matchPredicate(match []string) string {
	parts := make([]string, len(match))
	for i, col := range match {
		parts[i] = pgx.Identifier{col}.Sanitize() + "::text = $1"
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// SelectByColumns builds the single-row lookup for a key held in any of the
// match columns.
func SelectByColumns(collection string, match []string) (string, error) {
	if len(match) == 0 {
		return "", errNoMatchColumns
	}
	return "SELECT * FROM " + identifier(collection) +
		" WHERE " + matchPredicate(match) +
		" LIMIT 1", nil
}

// UpdateRedeemed builds the one-statement redemption write. Re-running it on
// an already used row leaves the flag set and only moves the timestamp.
func UpdateRedeemed(collection string, match []string, r Redemption) (string, error) {
	if len(match) == 0 {
		return "", errNoMatchColumns
	}
	if r.IsZero() {
		return "", errors.New("store: no redemption columns")
	}

	var sets []string
	if r.UsedColumn != "" {
		value := "TRUE"
		if r.UsedNumeric {
			value = "1"
		}
		sets = append(sets, pgx.Identifier{r.UsedColumn}.Sanitize()+" = "+value)
	}
	if r.AtColumn != "" {
		sets = append(sets, pgx.Identifier{r.AtColumn}.Sanitize()+" = now()")
	}

	return "UPDATE " + identifier(collection) +
		" SET " + strings.Join(sets, ", ") +
		" WHERE " + matchPredicate(match), nil
}
