package badge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// HTTPRenderer posts the badge request to an external rendering service.
// The service may answer with the binary itself, or with JSON carrying a
// data URL or a serialized byte buffer.
type HTTPRenderer struct {
	url    string
	client *http.Client
}

func NewHTTPRenderer(url string, timeout time.Duration) *HTTPRenderer {
	return &HTTPRenderer{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (h *HTTPRenderer) Render(ctx context.Context, req Request) (Output, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Output{}, fmt.Errorf("encode badge request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return Output{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/pdf, image/png, application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return Output{}, fmt.Errorf("badge renderer: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return Output{}, fmt.Errorf("badge renderer: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType != "application/json" {
		return Output{Stream: resp.Body, ContentType: contentType}, nil
	}

	defer resp.Body.Close()
	raw, err := readArtifact(resp.Body)
	if err != nil {
		return Output{}, fmt.Errorf("badge renderer: read body: %w", err)
	}
	return decodeJSONOutput(raw)
}

// decodeJSONOutput accepts {"dataUrl": "data:..."} (also "data_url" or
// "data") and Node-style buffers, {"type":"Buffer","data":[...]}, either at
// the top level or under "buffer".
func decodeJSONOutput(raw []byte) (Output, error) {
	if !gjson.ValidBytes(raw) {
		return Output{}, fmt.Errorf("badge renderer: invalid JSON response")
	}
	doc := gjson.ParseBytes(raw)
	contentType := doc.Get("contentType").String()

	for _, path := range []string{"dataUrl", "data_url", "data"} {
		if v := doc.Get(path); v.Type == gjson.String && strings.HasPrefix(v.Str, "data:") {
			return Output{DataURL: v.Str}, nil
		}
	}
	for _, path := range []string{"buffer.data", "data"} {
		if b, ok := bufferBytes(doc.Get(path)); ok {
			return Output{Buffer: b, ContentType: contentType}, nil
		}
	}
	return Output{}, fmt.Errorf("badge renderer: unrecognized JSON response")
}

func bufferBytes(v gjson.Result) ([]byte, bool) {
	if !v.IsArray() {
		return nil, false
	}
	items := v.Array()
	if len(items) == 0 {
		return nil, false
	}
	out := make([]byte, 0, len(items))
	for _, item := range items {
		n := item.Int()
		if item.Type != gjson.Number || n < 0 || n > 255 {
			return nil, false
		}
		out = append(out, byte(n))
	}
	return out, true
}
