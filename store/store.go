// Package store is the relational side of ticket resolution: schema
// introspection, single-row lookup by candidate columns, and the redemption
// update. Each request works on one pooled connection.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoRows is returned by FindOne when no row matches.
var ErrNoRows = errors.New("store: no rows")

// Column is one attribute of a collection as reported by the live schema.
type Column struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
}

// Row is a single record keyed by column name.
type Row map[string]any

// Redemption names the columns written when a ticket is marked used.
// Either column may be empty, but not both.
type Redemption struct {
	UsedColumn  string `json:"used_column,omitempty"`
	UsedNumeric bool   `json:"used_numeric,omitempty"`
	AtColumn    string `json:"at_column,omitempty"`
}

// IsZero reports whether there is nothing to write.
func (r Redemption) IsZero() bool {
	return r.UsedColumn == "" && r.AtColumn == ""
}

// Pool hands out sessions bound to one pooled connection.
type Pool interface {
	Acquire(ctx context.Context) (Session, error)
}

// Session is the set of store calls made while resolving one scan.
// Release must be called exactly once.
type Session interface {
	Columns(ctx context.Context, collection string) ([]Column, error)
	FindOne(ctx context.Context, collection string, match []string, key string) (Row, error)
	MarkRedeemed(ctx context.Context, collection string, match []string, r Redemption, key string) (int64, error)
	Release()
}

// PgxPool adapts a pgxpool.Pool to Pool.
type PgxPool struct {
	pool *pgxpool.Pool
}

func NewPgxPool(pool *pgxpool.Pool) *PgxPool {
	return &PgxPool{pool: pool}
}

func (p *PgxPool) Acquire(ctx context.Context) (Session, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &pgxSession{conn: conn}, nil
}

type pgxSession struct {
	conn *pgxpool.Conn
}

func (s *pgxSession) Columns(ctx context.Context, collection string) ([]Column, error) {
	query, args := ColumnsQuery(collection)
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("introspect %s: %w", collection, err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.DataType); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", collection, err)
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("introspect %s: %w", collection, err)
	}
	return columns, nil
}

func (s *pgxSession) FindOne(ctx context.Context, collection string, match []string, key string) (Row, error) {
	query, err := SelectByColumns(collection, match)
	if err != nil {
		return nil, err
	}
	rows, err := s.conn.Query(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("lookup in %s: %w", collection, err)
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("lookup in %s: %w", collection, err)
	}
	return Row(row), nil
}

func (s *pgxSession) MarkRedeemed(ctx context.Context, collection string, match []string, r Redemption, key string) (int64, error) {
	query, err := UpdateRedeemed(collection, match, r)
	if err != nil {
		return 0, err
	}
	tag, err := s.conn.Exec(ctx, query, key)
	if err != nil {
		return 0, fmt.Errorf("mark redeemed in %s: %w", collection, err)
	}
	return tag.RowsAffected(), nil
}

func (s *pgxSession) Release() {
	s.conn.Release()
}
