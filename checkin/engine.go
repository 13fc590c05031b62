package checkin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"expo-backend/models"
	"expo-backend/store"
)

// Options configures an Engine.
type Options struct {
	Collections    []Collection
	FreeCategories []string
	// CallTimeout bounds each store call within the request deadline.
	CallTimeout time.Duration
	// Cache is an optional shared column cache.
	Cache  ColumnCache
	Logger *slog.Logger
}

// Engine resolves scanned ticket codes and admits their holders. Every
// call works on a single pooled session, released before returning.
type Engine struct {
	pool     store.Pool
	resolver *Resolver
	guard    *Guard
	logger   *slog.Logger
}

func NewEngine(pool store.Pool, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	columns := NewIntrospector(opts.Cache, opts.CallTimeout, logger)
	return &Engine{
		pool:     pool,
		resolver: NewResolver(opts.Collections, columns, opts.CallTimeout, logger),
		guard:    NewGuard(opts.FreeCategories, columns, opts.CallTimeout, logger),
		logger:   logger,
	}
}

// Lookup resolves key without redeeming it.
func (e *Engine) Lookup(ctx context.Context, key string) (models.Registrant, error) {
	sess, err := e.acquire(ctx)
	if err != nil {
		return models.Registrant{}, err
	}
	defer sess.Release()

	return e.resolver.Resolve(ctx, sess, key)
}

// Redeem resolves key and admits the holder.
func (e *Engine) Redeem(ctx context.Context, key string) (AdmitResult, error) {
	sess, err := e.acquire(ctx)
	if err != nil {
		return AdmitResult{}, err
	}
	defer sess.Release()

	rec, err := e.resolver.Resolve(ctx, sess, key)
	if err != nil {
		return AdmitResult{}, err
	}
	return e.guard.Admit(ctx, sess, rec)
}

func (e *Engine) acquire(ctx context.Context) (store.Session, error) {
	sess, err := e.pool.Acquire(ctx)
	if err != nil {
		e.logger.Error("store session unavailable", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return sess, nil
}

// Eligibility reports whether rec would be admitted, without writing.
func (e *Engine) Eligibility(rec models.Registrant) EligibilityResult {
	return e.guard.Eligibility(rec)
}
