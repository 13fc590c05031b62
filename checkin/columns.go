package checkin

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"expo-backend/store"
)

var ticketColumnPattern = regexp.MustCompile(`(?i)^(ticket[_-]?(code|id|no|number)|code|c)$`)

// Column names that record a redemption, in preference order.
var (
	usedFlagColumns = []string{
		"used", "is_used",
		"redeemed", "is_redeemed",
		"printed", "is_printed", "badge_printed",
		"checked_in", "is_checked_in",
	}
	redeemedAtColumns = []string{
		"redeemed_at", "used_at",
		"printed_at", "badge_printed_at",
		"checked_in_at", "scanned_at",
	}
)

// ColumnSet is what the resolver needs to know about one collection's schema.
// An empty Ticket list means the collection cannot hold tickets and is skipped.
type ColumnSet struct {
	Ticket     []string         `json:"ticket"`
	Redemption store.Redemption `json:"redemption"`
}

// Empty reports whether no ticket-identifier column was found.
func (s ColumnSet) Empty() bool {
	return len(s.Ticket) == 0
}

// NewColumnSet derives a ColumnSet from a collection's columns.
func NewColumnSet(columns []store.Column) ColumnSet {
	return ColumnSet{
		Ticket:     TicketColumns(columns),
		Redemption: RedemptionColumns(columns),
	}
}

// TicketColumns returns the columns whose names look like a ticket
// identifier, in schema order.
func TicketColumns(columns []store.Column) []string {
	var out []string
	for _, col := range columns {
		if ticketColumnPattern.MatchString(col.Name) {
			out = append(out, col.Name)
		}
	}
	return out
}

// RedemptionColumns picks the used flag and redemption timestamp columns.
// Flags must be boolean or integer, timestamps a date or timestamp type.
func RedemptionColumns(columns []store.Column) store.Redemption {
	var r store.Redemption
	if col, ok := firstNamed(columns, usedFlagColumns, isFlagType); ok {
		r.UsedColumn = col.Name
		r.UsedNumeric = dataType(col) != "boolean"
	}
	if col, ok := firstNamed(columns, redeemedAtColumns, isTimeType); ok {
		r.AtColumn = col.Name
	}
	return r
}

func firstNamed(columns []store.Column, names []string, typeOK func(store.Column) bool) (store.Column, bool) {
	for _, name := range names {
		for _, col := range columns {
			if strings.EqualFold(col.Name, name) && typeOK(col) {
				return col, true
			}
		}
	}
	return store.Column{}, false
}

func dataType(col store.Column) string {
	return strings.ToLower(strings.TrimSpace(col.DataType))
}

func isFlagType(col store.Column) bool {
	switch dataType(col) {
	case "boolean", "smallint", "integer", "bigint":
		return true
	}
	return false
}

func isTimeType(col store.Column) bool {
	t := dataType(col)
	return t == "date" || strings.HasPrefix(t, "timestamp")
}

// ColumnCache is a shared store of ColumnSets, consulted after the
// in-process memo misses.
type ColumnCache interface {
	Get(ctx context.Context, collection string) (ColumnSet, bool, error)
	Set(ctx context.Context, collection string, set ColumnSet) error
}

// Introspector discovers and memoizes ColumnSets. Schemas are assumed not to
// change while the process runs.
type Introspector struct {
	local   sync.Map // collection -> ColumnSet
	shared  ColumnCache
	timeout time.Duration
	logger  *slog.Logger
}

// NewIntrospector builds an Introspector. shared may be nil.
func NewIntrospector(shared ColumnCache, timeout time.Duration, logger *slog.Logger) *Introspector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Introspector{shared: shared, timeout: timeout, logger: logger}
}

// Columns returns the ColumnSet for collection. Introspection failures yield
// an empty set and are not memoized, so a later scan retries.
func (in *Introspector) Columns(ctx context.Context, sess store.Session, collection string) ColumnSet {
	if v, ok := in.local.Load(collection); ok {
		return v.(ColumnSet)
	}

	if in.shared != nil {
		set, ok, err := in.shared.Get(ctx, collection)
		if err != nil {
			in.logger.Warn("column cache read failed", "collection", collection, "error", err)
		} else if ok {
			in.local.Store(collection, set)
			return set
		}
	}

	callCtx, cancel := withTimeout(ctx, in.timeout)
	columns, err := sess.Columns(callCtx, collection)
	cancel()
	if err != nil {
		in.logger.Warn("schema introspection failed", "collection", collection, "error", err)
		return ColumnSet{}
	}

	set := NewColumnSet(columns)
	in.local.Store(collection, set)
	if in.shared != nil {
		if err := in.shared.Set(ctx, collection, set); err != nil {
			in.logger.Warn("column cache write failed", "collection", collection, "error", err)
		}
	}
	if set.Empty() {
		in.logger.Info("collection has no ticket columns", "collection", collection)
	}
	return set
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
