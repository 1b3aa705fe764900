package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxImageBytes bounds the inline payload sent to a vision model.
const MaxImageBytes = 20 * 1024 * 1024

// ErrEmptyDescription is returned when the model answered without any text.
var ErrEmptyDescription = errors.New("vision: empty description")

// Description is the free-text answer of a vision model plus its raw response body.
type Description struct {
	Text string
	Raw  json.RawMessage
}

// Analyzer describes an image given an instruction prompt.
type Analyzer interface {
	Describe(ctx context.Context, image []byte, prompt string) (Description, error)
}

func checkImage(image []byte) error {
	if len(image) == 0 {
		return fmt.Errorf("vision: empty image data")
	}
	if len(image) > MaxImageBytes {
		return fmt.Errorf("vision: image exceeds %d bytes", MaxImageBytes)
	}
	return nil
}

func detectMime(data []byte) string {
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "image/jpeg"
	}
	return mime
}

// upstreamError extracts {"error":{"message":...}} from a failed response.
func upstreamError(resp *http.Response) string {
	var failure struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := json.Unmarshal(body, &failure); err == nil && failure.Error.Message != "" {
		return failure.Error.Message
	}
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
		return trimmed
	}
	return http.StatusText(resp.StatusCode)
}

func rawJSON(body []byte) json.RawMessage {
	if !json.Valid(body) {
		return nil
	}
	return json.RawMessage(body)
}
