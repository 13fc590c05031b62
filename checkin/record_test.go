package checkin

import (
	"reflect"
	"testing"
	"time"

	"expo-backend/models"
	"expo-backend/store"
)

func TestRegistrantFromRow(t *testing.T) {
	printedAt := time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)
	row := store.Row{
		"ID":          [16]byte{0xde, 0xad, 0xbe, 0xef},
		"c":           "P-9",
		"First_Name":  "Ayu",
		"last_name":   "Lestari",
		"org":         "  Nusantara Labs ",
		"tier":        "Exhibitor",
		"is_paid":     true,
		"order_id":    int64(9001),
		"sessions":    []any{"day-1", " ", "day-2"},
		"printed":     int32(1),
		"printed_at":  printedAt,
		"irrelevant":  "x",
		"email":       nil,
		"mobile":      "+62 811",
		"ticket_code": "OTHER",
	}
	got := registrantFromRow(row, Collection{Name: "partners", EntityType: models.EntityPartner}, "P-9")

	want := models.Registrant{
		TicketCode:    "P-9",
		EntityType:    models.EntityPartner,
		EntityID:      "deadbeef-0000-0000-0000-000000000000",
		Collection:    "partners",
		Name:          "Ayu Lestari",
		Phone:         "+62 811",
		Company:       "Nusantara Labs",
		Category:      "Exhibitor",
		PaymentStatus: "paid",
		TransactionID: "9001",
		Slots:         []string{"day-1", "day-2"},
		Redeemed:      true,
		RedeemedAt:    &printedAt,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("registrantFromRow mismatch\n got: %+v\nwant: %+v", got, want)
	}
}

func TestRegistrantFromRowPrefersExplicitStatus(t *testing.T) {
	row := store.Row{"code": "X-1", "payment_status": "pending", "paid": true, "slots": "a, b"}
	got := registrantFromRow(row, Collection{Name: "visitors", EntityType: models.EntityVisitor}, "X-1")
	if got.PaymentStatus != "pending" {
		t.Fatalf("payment status = %q", got.PaymentStatus)
	}
	if !reflect.DeepEqual(got.Slots, []string{"a", "b"}) {
		t.Fatalf("slots = %v", got.Slots)
	}
	if got.Redeemed || got.RedeemedAt != nil {
		t.Fatalf("unexpected redemption state %+v", got)
	}
}

func TestTruthy(t *testing.T) {
	yes := []any{true, int16(1), int32(2), int64(-1), 1, "true", " 1 ", "T"}
	no := []any{false, int64(0), "", "no", "yes", nil, 1.0}
	for _, v := range yes {
		if !truthy(v) {
			t.Errorf("truthy(%#v) = false", v)
		}
	}
	for _, v := range no {
		if truthy(v) {
			t.Errorf("truthy(%#v) = true", v)
		}
	}
}
