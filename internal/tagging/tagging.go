// Package tagging turns free-text vision output into a room label and a category list.
package tagging

import (
	"regexp"
	"strings"
)

// Unclassified is the room reported when neither the text nor the key names one.
const Unclassified = "Uncategorized"

// RoomKeywords are checked in this order; the first hit wins.
var RoomKeywords = []string{
	"living room",
	"kitchen",
	"bedroom",
	"bathroom",
	"hallway",
	"dining room",
	"office",
	"garage",
	"basement",
	"attic",
	"garden",
	"patio",
	"balcony",
	"outdoor",
	"unknown",
	"exterior",
}

const maxFallbackCategories = 5

var (
	categoryPattern = regexp.MustCompile(`categories(?::|\s*-)?\s*([a-z0-9\s,]+)`)

	stopWords = map[string]struct{}{
		"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "in": {},
		"on": {}, "at": {}, "of": {}, "and": {}, "or": {},
	}
)

// Result is the outcome of tagging one photo.
type Result struct {
	Room       string
	Categories []string
}

// Tag classifies a photo from its vision description and blob key. A room segment in the
// key path overrides whatever the description suggests.
func Tag(key, description string) Result {
	room := RoomFromText(description)
	if fromPath := RoomFromPath(key); fromPath != "" {
		room = fromPath
	}
	if room == "" {
		room = Unclassified
	}
	return Result{Room: room, Categories: Categories(description)}
}

// RoomFromText returns the first room keyword contained in the lower-cased text, or "".
func RoomFromText(text string) string {
	lower := strings.ToLower(text)
	for _, keyword := range RoomKeywords {
		if strings.Contains(lower, keyword) {
			return keyword
		}
	}
	return ""
}

// RoomFromPath returns the first room keyword that equals a lower-cased "/" segment of key,
// accepting underscores in place of spaces. It returns "" when no segment matches.
func RoomFromPath(key string) string {
	segments := map[string]struct{}{}
	for _, part := range strings.Split(key, "/") {
		segments[strings.ToLower(part)] = struct{}{}
	}
	for _, keyword := range RoomKeywords {
		if _, ok := segments[keyword]; ok {
			return keyword
		}
		if _, ok := segments[strings.ReplaceAll(keyword, " ", "_")]; ok {
			return keyword
		}
	}
	return ""
}

// Categories extracts an explicit "categories:" list from the description, falling back to
// salient words when the model did not produce one.
func Categories(description string) []string {
	if m := categoryPattern.FindStringSubmatch(strings.ToLower(description)); m != nil {
		var out []string
		for _, part := range strings.Split(m[1], ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallbackCategories(description)
}

// fallbackCategories keeps the first few long, non-stop-word tokens whose successor does not
// open with punctuation, then removes duplicates.
func fallbackCategories(description string) []string {
	tokens := strings.Fields(description)
	picked := make([]string, 0, maxFallbackCategories)
	for i, token := range tokens {
		if len(picked) == maxFallbackCategories {
			break
		}
		if len([]rune(token)) <= 3 {
			continue
		}
		if _, stop := stopWords[strings.ToLower(token)]; stop {
			continue
		}
		if i+1 < len(tokens) {
			next := tokens[i+1]
			if strings.HasPrefix(next, ".") || strings.HasPrefix(next, ",") {
				continue
			}
		}
		picked = append(picked, token)
	}

	seen := make(map[string]struct{}, len(picked))
	out := make([]string, 0, len(picked))
	for _, token := range picked {
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}
