// Package storetest provides an in-memory store.Pool for tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"expo-backend/store"
)

// Table is one in-memory collection.
type Table struct {
	Columns []store.Column
	Rows    []store.Row

	// Injected failures.
	ColumnsErr error
	FindErr    error
	UpdateErr  error
	// FindDelay blocks FindOne until it elapses or the context is done.
	FindDelay time.Duration
}

// Pool is a fake store.Pool backed by Tables. It is safe for concurrent use.
type Pool struct {
	mu         sync.Mutex
	tables     map[string]*Table
	acquireErr error

	acquired      int
	released      int
	columnCalls   map[string]int
	findCalls     []string
	updateQueries int
}

func NewPool() *Pool {
	return &Pool{
		tables:      make(map[string]*Table),
		columnCalls: make(map[string]int),
	}
}

// AddTable registers a collection.
func (p *Pool) AddTable(name string, t *Table) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tables[name] = t
}

// Table returns a registered collection.
func (p *Pool) Table(name string) *Table {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tables[name]
}

// FailAcquire makes every Acquire return err.
func (p *Pool) FailAcquire(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.acquireErr = err
}

// Stats reports acquired and released session counts.
func (p *Pool) Stats() (acquired, released int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquired, p.released
}

// ColumnCalls reports how often a collection was introspected.
func (p *Pool) ColumnCalls(collection string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.columnCalls[collection]
}

// FindCalls lists the collections queried by FindOne, in order.
func (p *Pool) FindCalls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.findCalls...)
}

// Updates reports how many redemption updates were issued.
func (p *Pool) Updates() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updateQueries
}

func (p *Pool) Acquire(ctx context.Context) (store.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	p.acquired++
	return &session{pool: p}, nil
}

type session struct {
	pool     *Pool
	released bool
}

func (s *session) table(name string) (*Table, error) {
	t, ok := s.pool.tables[name]
	if !ok {
		return nil, fmt.Errorf("relation %q does not exist", name)
	}
	return t, nil
}

func (s *session) Columns(ctx context.Context, collection string) ([]store.Column, error) {
	s.pool.mu.Lock()
	defer s.pool.mu.Unlock()
	s.pool.columnCalls[collection]++
	t, err := s.table(collection)
	if err != nil {
		// information_schema answers an unknown table with no rows.
		return nil, nil
	}
	if t.ColumnsErr != nil {
		return nil, t.ColumnsErr
	}
	return append([]store.Column(nil), t.Columns...), nil
}

func (s *session) FindOne(ctx context.Context, collection string, match []string, key string) (store.Row, error) {
	s.pool.mu.Lock()
	s.pool.findCalls = append(s.pool.findCalls, collection)
	t, err := s.table(collection)
	var delay time.Duration
	if t != nil {
		delay = t.FindDelay
	}
	s.pool.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.pool.mu.Lock()
	defer s.pool.mu.Unlock()
	if t.FindErr != nil {
		return nil, t.FindErr
	}
	for _, row := range t.Rows {
		if rowMatches(row, match, key) {
			out := make(store.Row, len(row))
			for k, v := range row {
				out[k] = v
			}
			return out, nil
		}
	}
	return nil, store.ErrNoRows
}

func (s *session) MarkRedeemed(ctx context.Context, collection string, match []string, r store.Redemption, key string) (int64, error) {
	if _, err := store.UpdateRedeemed(collection, match, r); err != nil {
		return 0, err
	}

	s.pool.mu.Lock()
	defer s.pool.mu.Unlock()
	s.pool.updateQueries++
	t, err := s.table(collection)
	if err != nil {
		return 0, err
	}
	if t.UpdateErr != nil {
		return 0, t.UpdateErr
	}

	var n int64
	now := time.Now()
	for _, row := range t.Rows {
		if !rowMatches(row, match, key) {
			continue
		}
		if r.UsedColumn != "" {
			if r.UsedNumeric {
				row[r.UsedColumn] = int64(1)
			} else {
				row[r.UsedColumn] = true
			}
		}
		if r.AtColumn != "" {
			row[r.AtColumn] = now
		}
		n++
	}
	return n, nil
}

func (s *session) Release() {
	s.pool.mu.Lock()
	defer s.pool.mu.Unlock()
	if s.released {
		panic(errors.New("storetest: session released twice"))
	}
	s.released = true
	s.pool.released++
}

func rowMatches(row store.Row, match []string, key string) bool {
	for _, col := range match {
		if v, ok := row[col]; ok && v != nil && fmt.Sprint(v) == key {
			return true
		}
	}
	return false
}
