package checkin

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"expo-backend/models"
	"expo-backend/store"
)

// Source column names for each field of the uniform registrant view, in
// preference order. Matching is case-insensitive.
var (
	entityIDFields      = []string{"id", "uuid", "registrant_id"}
	nameFields          = []string{"name", "full_name", "fullname", "display_name", "n"}
	emailFields         = []string{"email", "email_address", "mail", "e"}
	phoneFields         = []string{"phone", "phone_number", "mobile", "p"}
	companyFields       = []string{"company", "company_name", "organization", "organisation", "org", "o"}
	categoryFields      = []string{"category", "ticket_category", "ticket_type", "category_name", "tier", "k", "type"}
	paymentStatusFields = []string{"payment_status", "paymentstatus", "payment_state", "pay_status", "status"}
	paidFlagFields      = []string{"paid", "is_paid"}
	transactionFields   = []string{"transaction_id", "transactionid", "txn_id", "payment_id", "payment_reference", "order_id"}
	slotFields          = []string{"slots", "sessions", "time_slots", "slot"}
)

// fields is a row with lower-cased column names.
type fields map[string]any

func newFields(row store.Row) fields {
	f := make(fields, len(row))
	for k, v := range row {
		f[strings.ToLower(k)] = v
	}
	return f
}

// text returns the first non-empty value among names.
func (f fields) text(names ...string) string {
	for _, name := range names {
		if s := stringify(f[name]); s != "" {
			return s
		}
	}
	return ""
}

func (f fields) flag(names ...string) bool {
	for _, name := range names {
		if truthy(f[name]) {
			return true
		}
	}
	return false
}

func (f fields) timestamp(names ...string) *time.Time {
	for _, name := range names {
		if t, ok := f[name].(time.Time); ok && !t.IsZero() {
			return &t
		}
	}
	return nil
}

func (f fields) list(names ...string) []string {
	for _, name := range names {
		var out []string
		switch v := f[name].(type) {
		case []string:
			out = v
		case []any:
			for _, item := range v {
				out = append(out, stringify(item))
			}
		case string:
			out = strings.Split(v, ",")
		}
		var slots []string
		for _, s := range out {
			if s = strings.TrimSpace(s); s != "" {
				slots = append(slots, s)
			}
		}
		if len(slots) > 0 {
			return slots
		}
	}
	return nil
}

// registrantFromRow maps a row from collection c onto the uniform view.
// key matched one of the ticket columns exactly and becomes the ticket code.
func registrantFromRow(row store.Row, c Collection, key string) models.Registrant {
	f := newFields(row)

	r := models.Registrant{
		TicketCode:    key,
		EntityType:    c.EntityType,
		EntityID:      f.text(entityIDFields...),
		Collection:    c.Name,
		Name:          f.text(nameFields...),
		Email:         f.text(emailFields...),
		Phone:         f.text(phoneFields...),
		Company:       f.text(companyFields...),
		Category:      f.text(categoryFields...),
		PaymentStatus: f.text(paymentStatusFields...),
		TransactionID: f.text(transactionFields...),
		Slots:         f.list(slotFields...),
		RedeemedAt:    f.timestamp(redeemedAtColumns...),
	}
	if r.Name == "" {
		r.Name = strings.TrimSpace(f.text("first_name", "firstname") + " " + f.text("last_name", "lastname"))
	}
	if r.PaymentStatus == "" && f.flag(paidFlagFields...) {
		r.PaymentStatus = "paid"
	}
	r.Redeemed = f.flag(usedFlagColumns...) || r.RedeemedAt != nil
	return r
}

func stringify(v any) string {
	var s string
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		s = x
	case []byte:
		s = string(x)
	case [16]byte:
		s = uuid.UUID(x).String()
	case time.Time:
		s = x.Format(time.RFC3339)
	case fmt.Stringer:
		s = x.String()
	default:
		s = fmt.Sprint(x)
	}
	return strings.TrimSpace(s)
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case int16:
		return x != 0
	case int32:
		return x != 0
	case int64:
		return x != 0
	case int:
		return x != 0
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return err == nil && b
	}
	return false
}
