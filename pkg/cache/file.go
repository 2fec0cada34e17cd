package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// FileCache implements a file-based cache for CLI usage.
//
// Every entry is two files in a hash-sharded directory: the gzip-compressed
// data (".gz") and a JSON sidecar (".meta") holding the key and the expiry.
// The sidecar is written last, so an entry without one is incomplete and
// reads as a miss.
type FileCache struct {
	dir string
}

// NewFileCache creates a file-based cache in the given directory.
// The directory will be created if it doesn't exist.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string { return c.dir }

// fileMeta is the sidecar stored next to each data file.
type fileMeta struct {
	Key       string    `json:"key"`
	Size      int       `json:"size"`
	StoredAt  time.Time `json:"stored_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Get retrieves a value from the cache.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	dataPath, metaPath := c.paths(key)

	raw, err := os.ReadFile(metaPath)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var meta fileMeta
	if err := json.Unmarshal(raw, &meta); err != nil || meta.Key != key {
		// Invalid or colliding entry - treat as miss
		c.remove(dataPath, metaPath)
		return nil, false, nil
	}
	if !meta.ExpiresAt.IsZero() && time.Now().After(meta.ExpiresAt) {
		c.remove(dataPath, metaPath)
		return nil, false, nil
	}

	data, err := readGzip(dataPath)
	if os.IsNotExist(err) {
		_ = os.Remove(metaPath)
		return nil, false, nil
	}
	if err != nil {
		c.remove(dataPath, metaPath)
		return nil, false, nil
	}
	return data, true, nil
}

// Set stores a value in the cache.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	dataPath, metaPath := c.paths(key)
	if err := os.MkdirAll(filepath.Dir(dataPath), 0755); err != nil {
		return err
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return fmt.Errorf("compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compress: %w", err)
	}

	meta := fileMeta{Key: key, Size: len(data), StoredAt: time.Now().UTC()}
	if ttl > 0 {
		meta.ExpiresAt = meta.StoredAt.Add(ttl)
	}
	metaData, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	// A reader must never pair new data with an old sidecar.
	_ = os.Remove(metaPath)
	if err := writeAtomic(dataPath, buf.Bytes()); err != nil {
		return err
	}
	return writeAtomic(metaPath, metaData)
}

// Delete removes a value from the cache.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	dataPath, metaPath := c.paths(key)
	for _, p := range []string{metaPath, dataPath} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Clear removes every entry and returns how many were removed.
func (c *FileCache) Clear() (int, error) {
	count := 0
	err := filepath.WalkDir(c.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}
		if d.IsDir() {
			return nil
		}
		if err := os.Remove(path); err == nil && strings.HasSuffix(path, ".meta") {
			count++
		}
		return nil
	})
	if err != nil {
		return count, err
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return count, err
	}
	for _, e := range entries {
		if e.IsDir() {
			_ = os.Remove(filepath.Join(c.dir, e.Name()))
		}
	}
	return count, nil
}

// Close does nothing for file cache.
func (c *FileCache) Close() error {
	return nil
}

// paths converts a cache key to its data and sidecar paths.
// The first two hash characters select a subdirectory.
func (c *FileCache) paths(key string) (data, meta string) {
	hash := Hash([]byte(key))
	base := filepath.Join(c.dir, hash[:2], hash[2:])
	return base + ".gz", base + ".meta"
}

func (c *FileCache) remove(paths ...string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}

func readGzip(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// writeAtomic writes data to a temporary file in the target directory and
// renames it into place.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Ensure FileCache implements Cache.
var _ Cache = (*FileCache)(nil)
