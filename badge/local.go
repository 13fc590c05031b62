package badge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"expo-backend/models"
)

const (
	defaultQRSize = 512
	labelLine     = 18
	labelMargin   = 12
)

// LocalRenderer draws a PNG badge: the QR code of the badge payload with the
// ticket code and category printed under it. It is the fallback when no
// external renderer is configured or it fails.
type LocalRenderer struct {
	Size int
}

func (l LocalRenderer) Render(ctx context.Context, req Request) (Output, error) {
	content, err := localPayload(req)
	if err != nil {
		return Output{}, err
	}
	size := l.Size
	if size <= 0 {
		size = defaultQRSize
	}
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return Output{}, fmt.Errorf("encode qr: %w", err)
	}

	lines := labelLines(req.Registrant)
	canvas := image.NewRGBA(image.Rect(0, 0, size, size+len(lines)*labelLine+labelMargin))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(0, 0, size, size), qr.Image(size), image.Point{}, draw.Src)

	d := font.Drawer{Dst: canvas, Src: image.NewUniform(color.Black), Face: basicfont.Face7x13}
	maxChars := (size - 2*labelMargin) / basicfont.Face7x13.Advance
	for i, line := range lines {
		if maxChars > 0 && len(line) > maxChars {
			line = line[:maxChars]
		}
		d.Dot = fixed.P(labelMargin, size+(i+1)*labelLine)
		d.DrawString(line)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return Output{}, fmt.Errorf("encode badge png: %w", err)
	}
	return Output{Buffer: buf.Bytes(), ContentType: "image/png"}, nil
}

func labelLines(v View) []string {
	lines := []string{"TICKET: " + v.TicketCode}
	if v.Category != "" {
		lines = append(lines, "CATEGORY: "+v.Category)
	}
	if v.Name != "" {
		lines = append(lines, v.Name)
	}
	return lines
}

// localPayload uses the request's QR payload when present, otherwise a
// minimal one that still carries the ticket code and category.
func localPayload(req Request) (string, error) {
	if req.Options.QRPayload != nil {
		b, err := json.Marshal(req.Options.QRPayload)
		if err != nil {
			return "", fmt.Errorf("encode qr payload: %w", err)
		}
		return string(b), nil
	}

	p := models.QRPayload{
		TicketCode:   req.Registrant.TicketCode,
		Name:         req.Registrant.Name,
		Organization: req.Registrant.Company,
		Category:     req.Registrant.Category,
	}
	if req.Event != nil && !req.Event.IsZero() {
		p.Event = &models.QREvent{Name: req.Event.Name, Date: req.Event.Date, Venue: req.Event.Venue}
	}
	return p.Encode()
}

// plainText is the last resort when even the QR code cannot be drawn.
func plainText(v View) []byte {
	return []byte(fmt.Sprintf("TICKET: %s\nCATEGORY: %s\nNAME: %s\nCOMPANY: %s\n",
		v.TicketCode, v.Category, v.Name, v.Company))
}
