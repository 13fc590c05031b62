package badge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"expo-backend/models"
)

// Service renders badges for admitted registrants. Render always returns an
// artifact: renderer failures fall back to local rendering.
type Service struct {
	renderer Renderer
	local    Renderer
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds a Service. renderer may be nil, in which case every badge
// is rendered locally.
func NewService(renderer Renderer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		renderer: renderer,
		local:    LocalRenderer{},
		logger:   logger,
		now:      time.Now,
	}
}

// NewRequest builds the renderer request for a registrant.
func (s *Service) NewRequest(rec models.Registrant, event *models.EventContext) Request {
	if event != nil && event.IsZero() {
		event = nil
	}
	return Request{
		Registrant: NewView(rec),
		Event:      event,
		Options: Options{
			IncludeQRCode: true,
			QRPayload:     models.NewQRPayload(rec, event, s.now()),
			Event:         event,
		},
	}
}

// Render produces the badge artifact for rec.
func (s *Service) Render(ctx context.Context, rec models.Registrant, event *models.EventContext) Artifact {
	req := s.NewRequest(rec, event)

	if s.renderer != nil {
		art, err := s.render(ctx, s.renderer, req)
		if err == nil {
			return art
		}
		s.logger.Warn("badge renderer failed, using local fallback", "ticket_code", rec.TicketCode, "error", err)
	}

	art, err := s.render(ctx, s.local, req)
	if err == nil {
		art.Fallback = true
		return art
	}
	s.logger.Error("local badge rendering failed", "ticket_code", rec.TicketCode, "error", err)
	return Artifact{
		Data:        plainText(req.Registrant),
		ContentType: "text/plain; charset=utf-8",
		Filename:    Filename(rec.TicketCode, "text/plain"),
		Fallback:    true,
	}
}

func (s *Service) render(ctx context.Context, r Renderer, req Request) (art Artifact, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("renderer panic: %v", p)
		}
	}()

	out, err := r.Render(ctx, req)
	if err != nil {
		return Artifact{}, err
	}
	data, contentType, err := out.Bytes()
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Data:        data,
		ContentType: contentType,
		Filename:    Filename(req.Registrant.TicketCode, contentType),
	}, nil
}
