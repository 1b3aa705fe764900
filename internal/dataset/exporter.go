package dataset

import (
	"encoding/json"
	"io"
	"strings"

	"photoGalleryAi/internal/photos"
)

// Row is one exported gallery entry.
type Row struct {
	Key              string   `json:"key"`
	PublicURL        string   `json:"public_url"`
	Type             string   `json:"type"`
	Room             string   `json:"room"`
	Description      string   `json:"description,omitempty"`
	Categories       []string `json:"categories"`
	OriginalImageKey string   `json:"original_image_key,omitempty"`
	PromptUsed       string   `json:"prompt_used,omitempty"`
	AnalysisError    string   `json:"analysis_error,omitempty"`
}

// Options control which records are exported.
type Options struct {
	Room       string
	Type       photos.RecordType
	SkipFailed bool
}

// BuildRows flattens gallery records, keeping their order.
func BuildRows(records []photos.Record, opts Options) []Row {
	room := strings.TrimSpace(opts.Room)
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		if room != "" && !strings.EqualFold(rec.Room, room) {
			continue
		}
		if opts.Type != "" && rec.Type != opts.Type {
			continue
		}
		row := Row{
			Key:         rec.Key,
			PublicURL:   rec.PublicURL,
			Type:        string(rec.Type),
			Room:        rec.Room,
			Description: rec.Description(),
			Categories:  rec.Categories,
			PromptUsed:  rec.Prompt(),
		}
		if rec.Categories == nil {
			row.Categories = []string{}
		}
		if rec.Lineage != nil {
			row.OriginalImageKey = rec.OriginalImageKey
		}
		if rec.Analysis != nil {
			row.AnalysisError = rec.Analysis.Error
		}
		if opts.SkipFailed && row.AnalysisError != "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteJSONL serializes rows as JSON Lines.
func WriteJSONL(w io.Writer, rows []Row) error {
	enc := json.NewEncoder(w)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}
