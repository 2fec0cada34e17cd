// Package store keeps validated vase documents in a cache.
//
// A [Store] pairs a [cache.Cache] with the XML codec: everything written
// is serialized by pkg/io and everything read is parsed and validated again,
// so a corrupted or hand-edited entry surfaces as a coded format error
// instead of reaching the presentation layer.
package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vase/pkg/cache"
	"github.com/matzehuels/vase/pkg/document"
	vaseio "github.com/matzehuels/vase/pkg/io"
)

// Store reads and writes documents by key.
type Store struct {
	cache  cache.Cache
	reader vaseio.Reader
	ttl    time.Duration
	logger *log.Logger
}

// Options tunes a Store. The zero value is usable.
type Options struct {
	// TTL is applied to every write; zero keeps documents forever.
	TTL time.Duration
	// MaxDocumentBytes bounds reads; see io.Reader.MaxBytes.
	MaxDocumentBytes int64
	Logger           *log.Logger
}

// New creates a store on top of c.
func New(c cache.Cache, opts Options) *Store {
	if c == nil {
		c = cache.NewNullCache()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Store{
		cache:  c,
		reader: vaseio.Reader{MaxBytes: opts.MaxDocumentBytes},
		ttl:    opts.TTL,
		logger: logger,
	}
}

// Raw returns the stored bytes for key without validating them. It returns
// cache.ErrNotFound when nothing is stored.
func (s *Store) Raw(ctx context.Context, key string) ([]byte, error) {
	var (
		data []byte
		hit  bool
	)
	err := cache.RetryWithBackoff(ctx, func() error {
		var err error
		data, hit, err = s.cache.Get(ctx, key)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	if !hit {
		return nil, fmt.Errorf("%s: %w", key, cache.ErrNotFound)
	}
	return data, nil
}

// Load reads and validates the document stored under key.
func (s *Store) Load(ctx context.Context, key string) (*document.Document, error) {
	data, err := s.Raw(ctx, key)
	if err != nil {
		return nil, err
	}
	doc, err := s.reader.Read(bytes.NewReader(data))
	if err != nil {
		s.logger.Warn("stored document failed validation", "key", key, "error", err)
		return nil, err
	}
	s.logger.Debug("loaded document", "key", key, "bytes", len(data))
	return doc, nil
}

// Save serializes doc and stores it under key.
func (s *Store) Save(ctx context.Context, key string, doc *document.Document) error {
	data, err := vaseio.Marshal(doc)
	if err != nil {
		return err
	}
	return s.put(ctx, key, data)
}

// PutRaw validates data as a document and stores it unchanged under key.
// Invalid documents are rejected with the codec's error and not stored.
func (s *Store) PutRaw(ctx context.Context, key string, data []byte) (*document.Document, error) {
	doc, err := s.reader.Read(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := s.put(ctx, key, data); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes the document stored under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, key)
}

func (s *Store) put(ctx context.Context, key string, data []byte) error {
	err := cache.RetryWithBackoff(ctx, func() error {
		return s.cache.Set(ctx, key, data, s.ttl)
	})
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	s.logger.Debug("stored document", "key", key, "bytes", len(data))
	return nil
}
