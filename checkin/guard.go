package checkin

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"expo-backend/models"
	"expo-backend/store"
)

// DefaultFreeCategories mark a category as not needing payment.
var DefaultFreeCategories = []string{"free", "complimentary", "comp", "gratis", "gratuit", "freepass"}

// acceptedPaymentStatuses are terminal success states across the payment
// gateways that have fed the registration tables.
var acceptedPaymentStatuses = map[string]struct{}{
	"paid":       {},
	"success":    {},
	"successful": {},
	"succeeded":  {},
	"completed":  {},
	"complete":   {},
	"captured":   {},
	"capture":    {},
	"settled":    {},
	"settlement": {},
	"confirmed":  {},
}

// EligibilityResult is the admission decision.
type EligibilityResult struct {
	Eligible bool   `json:"eligible"`
	FreeTier bool   `json:"free_tier"`
	Reason   string `json:"reason,omitempty"`
}

// BookkeepingResult is the outcome of the redemption write. It never
// changes the admission decision.
type BookkeepingResult struct {
	Attempted    bool  `json:"attempted"`
	RowsAffected int64 `json:"rows_affected"`
	Err          error `json:"-"`
}

// AdmitResult is returned for an admitted ticket.
type AdmitResult struct {
	Record             models.Registrant
	Eligibility        EligibilityResult
	Bookkeeping        BookkeepingResult
	PreviouslyRedeemed bool
}

// Guard decides admission and records redemption.
type Guard struct {
	freeMarkers map[string]struct{}
	columns     *Introspector
	timeout     time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

func NewGuard(freeCategories []string, columns *Introspector, timeout time.Duration, logger *slog.Logger) *Guard {
	if len(freeCategories) == 0 {
		freeCategories = DefaultFreeCategories
	}
	if logger == nil {
		logger = slog.Default()
	}
	markers := make(map[string]struct{}, len(freeCategories))
	for _, m := range freeCategories {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			markers[m] = struct{}{}
		}
	}
	return &Guard{
		freeMarkers: markers,
		columns:     columns,
		timeout:     timeout,
		logger:      logger,
		now:         time.Now,
	}
}

// IsFreeCategory reports whether any word of category is a free marker.
func (g *Guard) IsFreeCategory(category string) bool {
	words := strings.FieldsFunc(strings.ToLower(category), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if _, ok := g.freeMarkers[w]; ok {
			return true
		}
	}
	return false
}

// IsPaid reports whether status is an accepted payment state.
func IsPaid(status string) bool {
	_, ok := acceptedPaymentStatuses[strings.ToLower(strings.TrimSpace(status))]
	return ok
}

// Eligibility checks a record without touching the store.
func (g *Guard) Eligibility(rec models.Registrant) EligibilityResult {
	if g.IsFreeCategory(rec.Category) {
		return EligibilityResult{Eligible: true, FreeTier: true}
	}
	if strings.TrimSpace(rec.PaymentStatus) == "" {
		return EligibilityResult{Reason: "payment status missing"}
	}
	if !IsPaid(rec.PaymentStatus) {
		return EligibilityResult{Reason: "payment status " + rec.PaymentStatus}
	}
	return EligibilityResult{Eligible: true}
}

// Admit checks eligibility and, for eligible tickets, marks the ticket
// redeemed. A ticket that was already redeemed is admitted again.
func (g *Guard) Admit(ctx context.Context, sess store.Session, rec models.Registrant) (AdmitResult, error) {
	res := AdmitResult{
		Record:             rec,
		Eligibility:        g.Eligibility(rec),
		PreviouslyRedeemed: rec.Redeemed,
	}
	if !res.Eligibility.Eligible {
		g.logger.Info("admission refused",
			"ticket_code", rec.TicketCode,
			"collection", rec.Collection,
			"category", rec.Category,
			"reason", res.Eligibility.Reason,
		)
		return res, ErrPaymentRequired
	}

	res.Bookkeeping = g.markRedeemed(ctx, sess, rec)
	if res.Bookkeeping.Err == nil && res.Bookkeeping.RowsAffected > 0 {
		at := g.now()
		res.Record.Redeemed = true
		res.Record.RedeemedAt = &at
	}
	if res.PreviouslyRedeemed {
		g.logger.Info("ticket admitted again", "ticket_code", rec.TicketCode, "collection", rec.Collection)
	}
	return res, nil
}

func (g *Guard) markRedeemed(ctx context.Context, sess store.Session, rec models.Registrant) BookkeepingResult {
	set := g.columns.Columns(ctx, sess, rec.Collection)
	if set.Empty() || set.Redemption.IsZero() {
		g.logger.Debug("collection has no redemption columns", "collection", rec.Collection)
		return BookkeepingResult{}
	}

	callCtx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()
	n, err := sess.MarkRedeemed(callCtx, rec.Collection, set.Ticket, set.Redemption, rec.TicketCode)
	if err != nil {
		g.logger.Warn("mark redeemed failed", "ticket_code", rec.TicketCode, "collection", rec.Collection, "error", err)
	}
	return BookkeepingResult{Attempted: true, RowsAffected: n, Err: err}
}
