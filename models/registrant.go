package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Entity types for the collections a registrant can live in
const (
	EntityTicket  = "ticket"
	EntitySpeaker = "speaker"
	EntityVisitor = "visitor"
	EntityPartner = "partner"
)

// Registrant is the uniform view of one registration row, whichever
// collection it was read from.
type Registrant struct {
	TicketCode    string     `json:"ticket_code"`
	EntityType    string     `json:"entity_type"`
	EntityID      string     `json:"entity_id"`
	Collection    string     `json:"collection"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone,omitempty"`
	Company       string     `json:"company"`
	Category      string     `json:"category"`
	PaymentStatus string     `json:"payment_status"`
	TransactionID string     `json:"transaction_id"`
	Slots         []string   `json:"slots,omitempty"`
	Redeemed      bool       `json:"redeemed"`
	RedeemedAt    *time.Time `json:"redeemed_at,omitempty"`
}

// ScanRequest is the body accepted by the badge and lookup endpoints.
// Either a known ticket code or the raw scanner payload must be present.
type ScanRequest struct {
	TicketCode ScanValue     `json:"ticket_code"`
	Code       ScanValue     `json:"code"`
	Payload    ScanValue     `json:"payload"`
	Event      *EventContext `json:"event"`
}

// ScanValue is a scan field sent as a string, a number, or a JSON object
// or array. Numbers keep their literal text and objects their raw JSON.
type ScanValue string

func (v *ScanValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*v = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = ScanValue(s)
	case data[0] == '{' || data[0] == '[':
		*v = ScanValue(data)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("scan value must be a string, number or object: %w", err)
		}
		*v = ScanValue(n)
	}
	return nil
}

// EventContext describes the event printed on a badge.
type EventContext struct {
	Name  string `json:"name"`
	Date  string `json:"date"`
	Venue string `json:"venue"`
}

// IsZero reports whether no event field is set.
func (e EventContext) IsZero() bool {
	return e.Name == "" && e.Date == "" && e.Venue == ""
}
