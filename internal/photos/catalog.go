package photos

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"photoGalleryAi/internal/storage"
)

// Catalog reads and writes photo records in the metadata store.
type Catalog struct {
	store storage.Store
}

// NewCatalog wraps a metadata store.
func NewCatalog(store storage.Store) *Catalog {
	return &Catalog{store: store}
}

// Save writes rec under its key, replacing whatever was there.
func (c *Catalog) Save(ctx context.Context, rec Record) error {
	payload, err := Encode(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.Key, err)
	}
	if err := c.store.Put(ctx, rec.Key, payload); err != nil {
		return fmt.Errorf("save record %s: %w", rec.Key, err)
	}
	return nil
}

// ListAll loads every record, backfills legacy fields and returns them in gallery order.
// Records are sorted on their stored room, so a missing room sorts as Uncategorized even
// when the response fills it in as Generated.
func (c *Catalog) ListAll(ctx context.Context) ([]Record, error) {
	records := []Record{}
	err := c.each(ctx, func(rec Record) bool {
		if rec.Type == "" {
			rec.Type = TypeForKey(rec.Key)
		}
		records = append(records, rec)
		return true
	})
	if err != nil {
		return nil, err
	}
	SortForGallery(records)
	for i := range records {
		records[i].Normalize()
	}
	return records, nil
}

// Search filters the gallery listing with a case-insensitive substring match on the key,
// description, categories, room and prompt. An empty query returns the full listing.
func (c *Catalog) Search(ctx context.Context, query string) ([]Record, error) {
	all, err := c.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return all, nil
	}
	return Filter(all, query), nil
}

// FindByPublicURL scans the store and returns the first record whose publicUrl equals url.
// Uniqueness of publicUrl is not enforced, so with duplicates the store's iteration order
// decides which one wins.
func (c *Catalog) FindByPublicURL(ctx context.Context, url string) (Record, bool, error) {
	var (
		found Record
		ok    bool
	)
	err := c.each(ctx, func(rec Record) bool {
		if rec.PublicURL == url {
			found, ok = rec, true
			return false
		}
		return true
	})
	if err != nil {
		return Record{}, false, err
	}
	return found, ok, nil
}

func (c *Catalog) each(ctx context.Context, fn func(Record) bool) error {
	keys, err := c.store.Keys(ctx)
	if err != nil {
		return fmt.Errorf("list metadata keys: %w", err)
	}
	for _, key := range keys {
		raw, err := c.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return fmt.Errorf("load metadata %s: %w", key, err)
		}
		if len(raw) == 0 {
			continue
		}
		rec, err := Decode(raw)
		if err != nil {
			return fmt.Errorf("decode metadata %s: %w", key, err)
		}
		if !fn(rec) {
			return nil
		}
	}
	return nil
}

// Filter keeps records matching query in any searchable field, preserving order.
func Filter(records []Record, query string) []Record {
	needle := strings.ToLower(query)
	matches := []Record{}
	for _, rec := range records {
		if Matches(rec, needle) {
			matches = append(matches, rec)
		}
	}
	return matches
}

// Matches reports whether the lower-cased needle occurs in any searchable field of rec.
func Matches(rec Record, needle string) bool {
	if containsFold(rec.Key, needle) ||
		containsFold(rec.Description(), needle) ||
		containsFold(rec.Room, needle) ||
		containsFold(rec.Prompt(), needle) {
		return true
	}
	for _, category := range rec.Categories {
		if containsFold(category, needle) {
			return true
		}
	}
	return false
}

func containsFold(field, needle string) bool {
	return field != "" && strings.Contains(strings.ToLower(field), needle)
}

// SortForGallery orders originals before generated records, then by room, then by key,
// using a locale-aware collation. Ties on room are broken by key so the order does not
// depend on how the store iterates.
func SortForGallery(records []Record) {
	col := collate.New(language.Und)
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if ra, rb := typeRank(a.Type), typeRank(b.Type); ra != rb {
			return ra < rb
		}
		if cmp := col.CompareString(roomOrDefault(a.Room), roomOrDefault(b.Room)); cmp != 0 {
			return cmp < 0
		}
		if cmp := col.CompareString(a.Key, b.Key); cmp != 0 {
			return cmp < 0
		}
		return a.Key < b.Key
	})
}

func typeRank(t RecordType) int {
	switch t {
	case TypeOriginal:
		return 0
	case TypeGenerated:
		return 1
	default:
		return 2
	}
}

func roomOrDefault(room string) string {
	if room == "" {
		return RoomUncategorized
	}
	return room
}
