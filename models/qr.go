package models

import (
	"encoding/json"
	"time"
)

// QRPayload is the compact JSON encoded into badge QR codes. Keys are kept
// short so the code stays scannable at badge size.
type QRPayload struct {
	TicketCode   string   `json:"c"`
	Name         string   `json:"n,omitempty"`
	Email        string   `json:"e,omitempty"`
	Phone        string   `json:"p,omitempty"`
	Organization string   `json:"o,omitempty"`
	Category     string   `json:"k,omitempty"`
	Slots        []string `json:"s,omitempty"`
	IssuedAt     int64    `json:"t"`
	Event        *QREvent `json:"ev,omitempty"`
}

// QREvent is the event sub-object of a QRPayload.
type QREvent struct {
	Name  string `json:"n,omitempty"`
	Date  string `json:"d,omitempty"`
	Venue string `json:"v,omitempty"`
}

// NewQRPayload builds the payload for a registrant at the given instant.
func NewQRPayload(r Registrant, event *EventContext, issuedAt time.Time) QRPayload {
	p := QRPayload{
		TicketCode:   r.TicketCode,
		Name:         r.Name,
		Email:        r.Email,
		Phone:        r.Phone,
		Organization: r.Company,
		Category:     r.Category,
		Slots:        r.Slots,
		IssuedAt:     issuedAt.Unix(),
	}
	if event != nil && !event.IsZero() {
		p.Event = &QREvent{Name: event.Name, Date: event.Date, Venue: event.Venue}
	}
	return p
}

// Encode returns the JSON text placed in the QR code.
func (p QRPayload) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
