package handlers

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"expo-backend/badge"
	"expo-backend/checkin"
	"expo-backend/middleware"
	"expo-backend/models"
	"expo-backend/scan"
)

type CheckinHandler struct {
	engine *checkin.Engine
	badges *badge.Service
	event  models.EventContext
	logger *slog.Logger
}

func NewCheckinHandler(engine *checkin.Engine, badges *badge.Service, event models.EventContext, logger *slog.Logger) *CheckinHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckinHandler{engine: engine, badges: badges, event: event, logger: logger}
}

// PrintBadge redeems a scanned ticket and returns its badge.
func (h *CheckinHandler) PrintBadge(c *gin.Context) {
	req, key, ok := h.bindScan(c)
	if !ok {
		return
	}
	log := h.requestLogger(c).With("ticket_code", key)

	res, err := h.engine.Redeem(c.Request.Context(), key)
	if err != nil {
		h.respondError(c, log, err)
		return
	}

	log.Info("ticket admitted",
		"collection", res.Record.Collection,
		"entity_type", res.Record.EntityType,
		"free_tier", res.Eligibility.FreeTier,
		"previously_redeemed", res.PreviouslyRedeemed,
		"redemption_rows", res.Bookkeeping.RowsAffected,
	)

	art := h.badges.Render(c.Request.Context(), res.Record, h.eventFor(req))
	if art.Fallback {
		log.Warn("badge rendered by fallback", "content_type", art.ContentType)
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.Filename}))
	c.Header("X-Ticket-Previously-Redeemed", strconv.FormatBool(res.PreviouslyRedeemed))
	c.Data(http.StatusOK, art.ContentType, art.Data)
}

// Lookup resolves a scanned ticket without redeeming it.
func (h *CheckinHandler) Lookup(c *gin.Context) {
	_, key, ok := h.bindScan(c)
	if !ok {
		return
	}
	log := h.requestLogger(c).With("ticket_code", key)

	rec, err := h.engine.Lookup(c.Request.Context(), key)
	if err != nil {
		h.respondError(c, log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"registrant":  rec,
		"eligibility": h.engine.Eligibility(rec),
	})
}

// TicketQR returns a PNG of the QR payload for a ticket.
func (h *CheckinHandler) TicketQR(c *gin.Context) {
	key, ok := scan.Normalize(c.Param("code"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": checkin.ErrBadInput.Error()})
		return
	}
	log := h.requestLogger(c).With("ticket_code", key)

	rec, err := h.engine.Lookup(c.Request.Context(), key)
	if err != nil {
		h.respondError(c, log, err)
		return
	}

	event := h.eventFor(models.ScanRequest{})
	out, err := badge.LocalRenderer{}.Render(c.Request.Context(), h.badges.NewRequest(rec, event))
	if err != nil {
		h.respondError(c, log, errors.Join(checkin.ErrInternal, err))
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": badge.Filename(rec.TicketCode, out.ContentType)}))
	c.Data(http.StatusOK, out.ContentType, out.Buffer)
}

// bindScan reads the scan body and extracts the ticket key. An explicit
// ticket_code or code wins over the raw payload.
func (h *CheckinHandler) bindScan(c *gin.Context) (models.ScanRequest, string, bool) {
	var req models.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body: " + err.Error()})
		return req, "", false
	}

	for _, candidate := range []models.ScanValue{req.TicketCode, req.Code, req.Payload} {
		if strings.TrimSpace(string(candidate)) == "" {
			continue
		}
		if key, ok := scan.Normalize(string(candidate)); ok {
			return req, key, true
		}
	}

	h.requestLogger(c).Info("no ticket code in scan", "payload_len", len(req.Payload))
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": checkin.ErrBadInput.Error()})
	return req, "", false
}

// eventFor prefers the event sent with the scan over the configured one.
func (h *CheckinHandler) eventFor(req models.ScanRequest) *models.EventContext {
	if req.Event != nil && !req.Event.IsZero() {
		return req.Event
	}
	if h.event.IsZero() {
		return nil
	}
	event := h.event
	return &event
}

func (h *CheckinHandler) requestLogger(c *gin.Context) *slog.Logger {
	log := h.logger
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		log = log.With("request_id", id)
	}
	if station := c.GetString(middleware.StationKey); station != "" {
		log = log.With("station", station)
	}
	return log
}

func (h *CheckinHandler) respondError(c *gin.Context, log *slog.Logger, err error) {
	status, msg := http.StatusInternalServerError, "Internal server error"
	switch {
	case errors.Is(err, checkin.ErrBadInput):
		status, msg = http.StatusBadRequest, checkin.ErrBadInput.Error()
	case errors.Is(err, checkin.ErrNotFound):
		status, msg = http.StatusNotFound, "Ticket not found"
	case errors.Is(err, checkin.ErrPaymentRequired):
		status, msg = http.StatusPaymentRequired, "Ticket payment not completed"
	case errors.Is(err, checkin.ErrStoreUnavailable):
		status, msg = http.StatusServiceUnavailable, "Ticket store unavailable, please retry"
	}

	if status >= http.StatusInternalServerError {
		log.Error("check-in failed", "status", status, "error", err)
	} else {
		log.Info("check-in rejected", "status", status, "error", err)
	}
	c.JSON(status, gin.H{"success": false, "error": msg})
}
