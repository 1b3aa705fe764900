package photos

import (
	"encoding/json"
	"strings"
	"time"
)

// RecordType tags a PhotoRecord as an uploaded original or a generated variant.
type RecordType string

const (
	TypeOriginal  RecordType = "original"
	TypeGenerated RecordType = "generated"
)

const (
	// GeneratedPrefix is the reserved key prefix for generated images.
	GeneratedPrefix = "generated/"

	RoomUncategorized = "Uncategorized"
	RoomGenerated     = "Generated"
)

// TypeForKey derives the record type from the key prefix.
func TypeForKey(key string) RecordType {
	if strings.HasPrefix(key, GeneratedPrefix) {
		return TypeGenerated
	}
	return TypeOriginal
}

// Record is the metadata document stored per blob key.
//
// Generated records carry a Lineage; originals leave it nil. The JSON shape is flat so
// existing documents keep decoding.
type Record struct {
	Key          string     `json:"key"`
	PublicURL    string     `json:"publicUrl"`
	Type         RecordType `json:"type"`
	Analysis     *Analysis  `json:"analysis,omitempty"`
	Room         string     `json:"room"`
	Categories   []string   `json:"categories"`
	LastModified time.Time  `json:"lastModified,omitzero"`
	*Lineage
}

// Lineage links a generated record back to its source.
type Lineage struct {
	OriginalImageKey string `json:"originalImageKey,omitempty"`
	PromptUsed       string `json:"promptUsed,omitempty"`
}

// Analysis is the vision output kept on a record.
type Analysis struct {
	Description         string          `json:"description"`
	RawAIResponse       json.RawMessage `json:"rawAiResponse,omitempty"`
	ExtractedRoom       string          `json:"extractedRoom,omitempty"`
	ExtractedCategories []string        `json:"extractedCategories,omitempty"`
	Error               string          `json:"error,omitempty"`
}

// Description returns the analysis description, or "" when there is none.
func (r Record) Description() string {
	if r.Analysis == nil {
		return ""
	}
	return r.Analysis.Description
}

// Prompt returns the prompt a generated record was made from.
func (r Record) Prompt() string {
	if r.Lineage == nil {
		return ""
	}
	return r.PromptUsed
}

// Normalize backfills fields that legacy documents may lack: the type tag (from the key
// prefix), the room default and an empty category list.
func (r *Record) Normalize() {
	if r.Type == "" {
		r.Type = TypeForKey(r.Key)
	}
	if r.Room == "" {
		if r.Type == TypeGenerated {
			r.Room = RoomGenerated
		} else {
			r.Room = RoomUncategorized
		}
	}
	if r.Categories == nil {
		r.Categories = []string{}
	}
}

// Decode parses a stored document.
func Decode(raw []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Encode serializes the record for storage.
func Encode(rec Record) ([]byte, error) {
	if rec.Categories == nil {
		rec.Categories = []string{}
	}
	return json.Marshal(rec)
}
