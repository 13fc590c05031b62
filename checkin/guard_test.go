package checkin

import (
	"context"
	"errors"
	"testing"
	"time"

	"expo-backend/models"
	"expo-backend/store/storetest"
)

func newTestGuard() *Guard {
	in := NewIntrospector(nil, time.Second, discardLogger())
	return NewGuard(nil, in, time.Second, discardLogger())
}

func TestIsFreeCategory(t *testing.T) {
	g := newTestGuard()
	cases := map[string]bool{
		"Free":                  true,
		"Free Pass":             true,
		"complimentary-speaker": true,
		"COMP":                  true,
		"Visitor (gratis)":      true,
		"freepass":              true,
		"VIP":                   false,
		"Freedom Package":       false,
		"":                      false,
	}
	for category, want := range cases {
		if got := g.IsFreeCategory(category); got != want {
			t.Errorf("IsFreeCategory(%q) = %v, want %v", category, got, want)
		}
	}
}

func TestCustomFreeCategories(t *testing.T) {
	g := NewGuard([]string{" Student "}, nil, 0, discardLogger())
	if !g.IsFreeCategory("student day pass") {
		t.Fatal("expected custom marker to match")
	}
	if g.IsFreeCategory("free") {
		t.Fatal("custom markers replace the defaults")
	}
}

func TestIsPaid(t *testing.T) {
	for _, s := range []string{"paid", "PAID", " Success ", "settlement", "Completed", "captured"} {
		if !IsPaid(s) {
			t.Errorf("IsPaid(%q) = false", s)
		}
	}
	for _, s := range []string{"", "pending", "failed", "expired", "unpaid", "refunded"} {
		if IsPaid(s) {
			t.Errorf("IsPaid(%q) = true", s)
		}
	}
}

func TestEligibilityFreeTierIgnoresPayment(t *testing.T) {
	g := newTestGuard()
	for _, status := range []string{"", "pending", "failed", "paid"} {
		res := g.Eligibility(models.Registrant{Category: "Free Pass", PaymentStatus: status})
		if !res.Eligible || !res.FreeTier {
			t.Errorf("status %q: %+v", status, res)
		}
	}
}

func TestEligibilityPaidTier(t *testing.T) {
	g := newTestGuard()
	if res := g.Eligibility(models.Registrant{Category: "VIP"}); res.Eligible {
		t.Fatalf("missing status admitted: %+v", res)
	}
	if res := g.Eligibility(models.Registrant{Category: "VIP", PaymentStatus: "pending"}); res.Eligible {
		t.Fatalf("pending status admitted: %+v", res)
	}
	if res := g.Eligibility(models.Registrant{Category: "VIP", PaymentStatus: "Paid"}); !res.Eligible || res.FreeTier {
		t.Fatalf("paid status refused: %+v", res)
	}
	if res := g.Eligibility(models.Registrant{PaymentStatus: "pending"}); res.Eligible {
		t.Fatalf("empty category is paid tier: %+v", res)
	}
}

func admitKey(t *testing.T, pool *storetest.Pool, g *Guard, key string) (AdmitResult, error) {
	t.Helper()
	sess, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Release()

	r := NewResolver(testCollections(), g.columns, time.Second, discardLogger())
	rec, err := r.Resolve(context.Background(), sess, key)
	if err != nil {
		t.Fatalf("resolve %s: %v", key, err)
	}
	return g.Admit(context.Background(), sess, rec)
}

func TestAdmitPendingPaymentLeavesTicketUnused(t *testing.T) {
	pool := newFixturePool()
	g := newTestGuard()

	_, err := admitKey(t, pool, g, "PEND-1")
	if !errors.Is(err, ErrPaymentRequired) {
		t.Fatalf("expected ErrPaymentRequired, got %v", err)
	}
	if pool.Updates() != 0 {
		t.Fatalf("redemption written for unpaid ticket")
	}
	if used := pool.Table("tickets").Rows[2]["is_used"]; used != false {
		t.Fatalf("is_used = %v", used)
	}
}

func TestAdmitMissingPaymentStatus(t *testing.T) {
	pool := newFixturePool()

	if _, err := admitKey(t, pool, newTestGuard(), "NOPAY-1"); !errors.Is(err, ErrPaymentRequired) {
		t.Fatalf("expected ErrPaymentRequired, got %v", err)
	}
}

func TestAdmitPaidTicket(t *testing.T) {
	pool := newFixturePool()

	res, err := admitKey(t, pool, newTestGuard(), "PAID-1")
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if !res.Eligibility.Eligible || res.Eligibility.FreeTier {
		t.Fatalf("eligibility = %+v", res.Eligibility)
	}
	if !res.Bookkeeping.Attempted || res.Bookkeeping.RowsAffected != 1 || res.Bookkeeping.Err != nil {
		t.Fatalf("bookkeeping = %+v", res.Bookkeeping)
	}
	if !res.Record.Redeemed || res.Record.RedeemedAt == nil {
		t.Fatalf("record not marked redeemed: %+v", res.Record)
	}

	row := pool.Table("tickets").Rows[1]
	if row["is_used"] != true {
		t.Fatalf("is_used = %v", row["is_used"])
	}
	if _, ok := row["used_at"].(time.Time); !ok {
		t.Fatalf("used_at = %v", row["used_at"])
	}
}

func TestAdmitFreeTierWithPendingPayment(t *testing.T) {
	pool := newFixturePool()

	res, err := admitKey(t, pool, newTestGuard(), "FREE-1")
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if !res.Eligibility.FreeTier {
		t.Fatalf("eligibility = %+v", res.Eligibility)
	}
}

func TestAdmitNumericFlag(t *testing.T) {
	pool := newFixturePool()

	if _, err := admitKey(t, pool, newTestGuard(), "SPK-1"); err != nil {
		t.Fatalf("admit: %v", err)
	}
	row := pool.Table("speakers").Rows[1]
	if row["printed"] != int64(1) {
		t.Fatalf("printed = %v", row["printed"])
	}
}

func TestAdmitIsIdempotent(t *testing.T) {
	pool := newFixturePool()
	g := newTestGuard()

	for i := 0; i < 2; i++ {
		res, err := admitKey(t, pool, g, "PAID-1")
		if err != nil {
			t.Fatalf("admit #%d: %v", i+1, err)
		}
		if res.Bookkeeping.Err != nil {
			t.Fatalf("admit #%d bookkeeping: %v", i+1, res.Bookkeeping.Err)
		}
		if i == 1 && !res.PreviouslyRedeemed {
			t.Fatal("second admission should report the earlier redemption")
		}
	}
	if pool.Table("tickets").Rows[1]["is_used"] != true {
		t.Fatal("ticket not marked used")
	}
}

func TestAdmitSurvivesBookkeepingFailure(t *testing.T) {
	pool := newFixturePool()
	pool.Table("tickets").UpdateErr = errors.New("deadlock detected")

	res, err := admitKey(t, pool, newTestGuard(), "PAID-1")
	if err != nil {
		t.Fatalf("admission blocked by bookkeeping failure: %v", err)
	}
	if !res.Bookkeeping.Attempted || res.Bookkeeping.Err == nil {
		t.Fatalf("bookkeeping = %+v", res.Bookkeeping)
	}
	if res.Record.Redeemed {
		t.Fatal("record reported redeemed although the write failed")
	}
}

func TestAdmitWithoutRedemptionColumns(t *testing.T) {
	pool := newFixturePool()

	res, err := admitKey(t, pool, newTestGuard(), "VIS-1")
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if res.Bookkeeping.Attempted {
		t.Fatalf("bookkeeping attempted without columns: %+v", res.Bookkeeping)
	}
	if pool.Updates() != 0 {
		t.Fatalf("unexpected update")
	}
}
