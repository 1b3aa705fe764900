package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// ErrObjectNotFound indicates that a key is not present in the blob store.
var ErrObjectNotFound = errors.New("media object not found")

// PutInput wraps the payload required for persisting an object.
type PutInput struct {
	Key         string
	ContentType string
	Body        io.Reader
	Size        int64
}

// PutResult captures the canonical object key and its accessible URL.
type PutResult struct {
	Key string
	URL string
}

// Object is a single listing entry.
type Object struct {
	Key      string
	Uploaded time.Time
	Size     int64
}

// Store hides the backing implementation for photo bytes.
type Store interface {
	Put(ctx context.Context, input PutInput) (PutResult, error)
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context) ([]Object, error)
	PublicURL(key string) string
}

// IsDirectoryMarker reports keys that only stand in for a folder.
func IsDirectoryMarker(key string) bool {
	return strings.HasSuffix(key, "/")
}

// JoinPublicURL builds prefix + "/" + key.
func JoinPublicURL(prefix, key string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + key
}
