package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore keeps objects on the local filesystem, for development without a bucket.
type LocalStore struct {
	BaseDir   string
	publicURL string
}

// NewLocalStore constructs a store rooted at baseDir.
// If baseDir is empty, a directory below os.TempDir() is used.
func NewLocalStore(baseDir, publicURL string) (*LocalStore, error) {
	dir := baseDir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "photo-gallery-media")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create local media dir: %w", err)
	}
	return &LocalStore{BaseDir: dir, publicURL: strings.TrimSuffix(publicURL, "/")}, nil
}

// Put writes the content atomically to BaseDir/<key>.
func (l *LocalStore) Put(_ context.Context, input PutInput) (PutResult, error) {
	if input.Body == nil {
		return PutResult{}, errors.New("media: put body is required")
	}
	target, err := l.path(input.Key)
	if err != nil {
		return PutResult{}, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return PutResult{}, fmt.Errorf("create object dir: %w", err)
	}

	tmpName := filepath.Join(filepath.Dir(target), ".upload-"+uuid.NewString())
	tmpFile, err := os.Create(tmpName)
	if err != nil {
		return PutResult{}, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmpFile, input.Body); err != nil {
		tmpFile.Close()
		os.Remove(tmpName)
		return PutResult{}, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpName)
		return PutResult{}, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return PutResult{}, fmt.Errorf("store object: %w", err)
	}

	return PutResult{Key: input.Key, URL: l.PublicURL(input.Key)}, nil
}

// Get reads the object bytes.
func (l *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	target, err := l.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

// List walks BaseDir and reports every regular file, using its mtime as upload time.
func (l *LocalStore) List(_ context.Context) ([]Object, error) {
	var objects []Object
	err := filepath.WalkDir(l.BaseDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(l.BaseDir, p)
		if err != nil {
			return err
		}
		objects = append(objects, Object{
			Key:      filepath.ToSlash(rel),
			Uploaded: info.ModTime().UTC(),
			Size:     info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list local media: %w", err)
	}
	return objects, nil
}

// PublicURL returns the externally reachable address of key.
func (l *LocalStore) PublicURL(key string) string {
	return JoinPublicURL(l.publicURL, key)
}

func (l *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("media: invalid key %q", key)
	}
	return filepath.Join(l.BaseDir, clean), nil
}
