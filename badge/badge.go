// Package badge hands admitted registrants to a badge renderer and turns
// whatever it returns into a downloadable artifact.
package badge

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"strings"

	"github.com/gosimple/slug"

	"expo-backend/models"
)

// maxArtifactBytes caps what is read from a renderer.
const maxArtifactBytes = 20 << 20

var (
	errEmptyArtifact    = errors.New("badge: renderer returned no data")
	errArtifactTooLarge = fmt.Errorf("badge: renderer output exceeds %d bytes", maxArtifactBytes)
)

// View is the registrant data printed on a badge.
type View struct {
	TicketCode string `json:"ticket_code"`
	Name       string `json:"name"`
	Company    string `json:"company"`
	Category   string `json:"category"`
}

func NewView(r models.Registrant) View {
	return View{
		TicketCode: r.TicketCode,
		Name:       r.Name,
		Company:    r.Company,
		Category:   r.Category,
	}
}

// Options tell the renderer what to draw besides the view.
type Options struct {
	IncludeQRCode bool                 `json:"includeQRCode"`
	QRPayload     any                  `json:"qrPayload,omitempty"`
	Event         *models.EventContext `json:"event,omitempty"`
}

// Request is everything a renderer receives.
type Request struct {
	Registrant View                 `json:"registrant"`
	Event      *models.EventContext `json:"event,omitempty"`
	Options    Options              `json:"options"`
}

// Output is a renderer result in one of three forms: a stream, an in-memory
// buffer, or a data URL. The first non-empty form wins.
type Output struct {
	Stream      io.ReadCloser
	Buffer      []byte
	DataURL     string
	ContentType string
}

// Renderer draws a badge.
type Renderer interface {
	Render(ctx context.Context, req Request) (Output, error)
}

// Artifact is a rendered badge ready to send.
type Artifact struct {
	Data        []byte
	ContentType string
	Filename    string
	// Fallback is set when the local renderer produced the artifact.
	Fallback bool
}

// Bytes reads the output into memory and reports its content type. A stream
// is always closed.
func (o Output) Bytes() ([]byte, string, error) {
	contentType := o.ContentType
	var data []byte
	switch {
	case o.Stream != nil:
		defer o.Stream.Close()
		b, err := readArtifact(o.Stream)
		if err != nil {
			return nil, "", fmt.Errorf("read badge stream: %w", err)
		}
		data = b
	case len(o.Buffer) > 0:
		data = o.Buffer
	case o.DataURL != "":
		b, ct, err := DecodeDataURL(o.DataURL)
		if err != nil {
			return nil, "", err
		}
		data, contentType = b, ct
	}
	if len(data) == 0 {
		return nil, "", errEmptyArtifact
	}
	if contentType == "" {
		contentType = "application/pdf"
	}
	return data, contentType, nil
}

// readArtifact reads r in full, failing once it passes maxArtifactBytes.
func readArtifact(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxArtifactBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxArtifactBytes {
		return nil, errArtifactTooLarge
	}
	return b, nil
}

// DecodeDataURL decodes an RFC 2397 data URL.
func DecodeDataURL(s string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "data:")
	if !ok {
		return nil, "", errors.New("badge: not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", errors.New("badge: data URL has no payload")
	}

	isBase64 := false
	if m, found := strings.CutSuffix(meta, ";base64"); found {
		meta, isBase64 = m, true
	}
	contentType := meta
	if contentType == "" {
		contentType = "text/plain;charset=US-ASCII"
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("badge: decode data URL: %w", err)
		}
		return data, contentType, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("badge: decode data URL: %w", err)
	}
	return []byte(text), contentType, nil
}

// Filename suggests a download name for a ticket's badge.
func Filename(ticketCode, contentType string) string {
	base := slug.Make(ticketCode)
	if base == "" {
		base = "ticket"
	}
	return "badge-" + base + extension(contentType)
}

func extension(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	switch mediaType {
	case "application/pdf":
		return ".pdf"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/svg+xml":
		return ".svg"
	case "text/plain":
		return ".txt"
	default:
		return ".bin"
	}
}
