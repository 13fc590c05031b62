package checkin

import (
	"io"
	"log/slog"
	"time"

	"expo-backend/store"
	"expo-backend/store/storetest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCollections() []Collection {
	return Collections("tickets", []string{"speakers", "visitors", "partners"})
}

// newFixturePool returns a store with a ticket table and three role tables
// whose schemas differ the way historical registration tables do.
func newFixturePool() *storetest.Pool {
	pool := storetest.NewPool()

	pool.AddTable("tickets", &storetest.Table{
		Columns: []store.Column{
			{Name: "id", DataType: "uuid"},
			{Name: "ticket_code", DataType: "character varying"},
			{Name: "name", DataType: "text"},
			{Name: "email", DataType: "text"},
			{Name: "company", DataType: "text"},
			{Name: "category", DataType: "text"},
			{Name: "payment_status", DataType: "text"},
			{Name: "transaction_id", DataType: "text"},
			{Name: "is_used", DataType: "boolean"},
			{Name: "used_at", DataType: "timestamp with time zone"},
		},
		Rows: []store.Row{
			{"id": [16]byte{1}, "ticket_code": "DUP-1", "name": "Ticket Holder", "category": "Gold", "payment_status": "paid", "is_used": false},
			{"id": [16]byte{2}, "ticket_code": "PAID-1", "name": "Rina", "email": "rina@example.com", "company": "Acme", "category": "VIP", "payment_status": "PAID", "transaction_id": "tx-77", "is_used": false},
			{"id": [16]byte{3}, "ticket_code": "PEND-1", "name": "Budi", "category": "Regular", "payment_status": "pending", "is_used": false},
			{"id": [16]byte{4}, "ticket_code": "NOPAY-1", "name": "Sari", "category": "Regular", "is_used": false},
			{"id": [16]byte{5}, "ticket_code": "FREE-1", "name": "Tono", "category": "Free Pass", "payment_status": "pending", "is_used": false},
		},
	})

	pool.AddTable("speakers", &storetest.Table{
		Columns: []store.Column{
			{Name: "id", DataType: "integer"},
			{Name: "code", DataType: "text"},
			{Name: "full_name", DataType: "text"},
			{Name: "organization", DataType: "text"},
			{Name: "category", DataType: "text"},
			{Name: "printed", DataType: "smallint"},
			{Name: "printed_at", DataType: "timestamp without time zone"},
		},
		Rows: []store.Row{
			{"id": int64(10), "code": "DUP-1", "full_name": "Speaker Dup", "organization": "Org", "category": "complimentary", "printed": int64(0)},
			{"id": int64(11), "code": "SPK-1", "full_name": "Dr. Ayu", "organization": "University", "category": "Complimentary Speaker", "printed": int64(0)},
		},
	})

	pool.AddTable("visitors", &storetest.Table{
		Columns: []store.Column{
			{Name: "id", DataType: "bigint"},
			{Name: "c", DataType: "text"},
			{Name: "n", DataType: "text"},
			{Name: "email", DataType: "text"},
			{Name: "category", DataType: "text"},
			{Name: "payment_status", DataType: "text"},
		},
		Rows: []store.Row{
			{"id": int64(20), "c": "VIS-1", "n": "Putri", "email": "putri@example.com", "category": "free", "payment_status": nil},
		},
	})

	pool.AddTable("partners", &storetest.Table{
		Columns: []store.Column{
			{Name: "id", DataType: "bigint"},
			{Name: "name", DataType: "text"},
			{Name: "company", DataType: "text"},
		},
		Rows: []store.Row{
			{"id": int64(30), "name": "Partner", "company": "SponsorCo"},
		},
	})

	return pool
}

func newTestEngine(pool store.Pool, timeout time.Duration) *Engine {
	return NewEngine(pool, Options{
		Collections: testCollections(),
		CallTimeout: timeout,
		Logger:      discardLogger(),
	})
}
