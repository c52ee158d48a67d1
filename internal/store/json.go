package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/rcliao/msg-memory/internal/logging"
	"github.com/rcliao/msg-memory/internal/model"
)

// lockRetry is how often a writer re-checks a document lock held by
// another process.
const lockRetry = 25 * time.Millisecond

// JSONStore keeps the memory collection in a single JSON document. Each
// operation reloads the file, mutates it and rewrites it atomically. The
// mutex serializes mutations within the process and an advisory lock on
// <path>.lock serializes them across processes.
type JSONStore struct {
	path   string
	logger *zap.Logger
	now    func() time.Time

	mu   sync.Mutex
	lock *flock.Flock
}

// NewJSONStore creates a store backed by the file at path. The file need not
// exist yet.
func NewJSONStore(path string, logger *zap.Logger) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create memory dir: %w", err)
	}
	return &JSONStore{
		path:   path,
		logger: logging.OrNop(logger),
		now:    time.Now,
		lock:   flock.New(path + ".lock"),
	}, nil
}

// Path returns the document location.
func (s *JSONStore) Path() string { return s.path }

// load reads the document. A missing or unreadable document yields an empty
// collection.
func (s *JSONStore) load() model.Document {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("memory document unreadable, starting empty", zap.String("path", s.path), zap.Error(err))
		}
		return model.Document{Items: []model.MemoryItem{}}
	}
	doc, err := DecodeDocument(data)
	if err != nil {
		s.logger.Warn("memory document corrupt, starting empty", zap.String("path", s.path), zap.Error(err))
		return model.Document{Items: []model.MemoryItem{}}
	}
	return doc
}

func (s *JSONStore) save(doc model.Document) error {
	data, err := EncodeDocument(doc)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".memory-*.json")
	if err != nil {
		return fmt.Errorf("save memory document: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save memory document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save memory document: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("save memory document: %w", err)
	}
	return nil
}

// locked runs fn holding both the process mutex and the file lock.
func (s *JSONStore) locked(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lock.TryLockContext(ctx, lockRetry); err != nil {
		return fmt.Errorf("lock memory document: %w", err)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("unlock memory document", zap.String("path", s.path), zap.Error(err))
		}
	}()
	return fn()
}

func (s *JSONStore) mutate(ctx context.Context, fn func(doc *model.Document)) error {
	return s.locked(ctx, func() error {
		doc := s.load()
		fn(&doc)
		doc.LastUpdatedAt = s.now()
		return s.save(doc)
	})
}

func (s *JSONStore) Append(ctx context.Context, item model.MemoryItem, limit int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.mutate(ctx, func(doc *model.Document) {
		doc.Items = evictOldest(append(doc.Items, item), limit)
	})
}

func (s *JSONStore) QueryRelevant(ctx context.Context, p RelevantParams) ([]model.MemoryItem, error) {
	s.mu.Lock()
	doc := s.load()
	s.mu.Unlock()
	return selectRelevant(doc.Items, p), nil
}

func (s *JSONStore) ListAll(ctx context.Context) ([]model.MemoryItem, error) {
	s.mu.Lock()
	doc := s.load()
	s.mu.Unlock()
	return sortedNewestFirst(doc.Items), nil
}

func (s *JSONStore) ClearAll(ctx context.Context) error {
	return s.mutate(ctx, func(doc *model.Document) {
		doc.Items = []model.MemoryItem{}
	})
}

func (s *JSONStore) TrimToLimit(ctx context.Context, limit int) error {
	return s.mutate(ctx, func(doc *model.Document) {
		doc.Items = evictOldest(doc.Items, limit)
	})
}

func (s *JSONStore) Document(ctx context.Context) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.load()
	return &doc, nil
}

func (s *JSONStore) Replace(ctx context.Context, doc model.Document) error {
	return s.locked(ctx, func() error {
		if doc.Items == nil {
			doc.Items = []model.MemoryItem{}
		}
		if doc.LastUpdatedAt.IsZero() {
			doc.LastUpdatedAt = s.now()
		}
		return s.save(doc)
	})
}

func (s *JSONStore) Close() error { return nil }

var _ MemoryStore = (*JSONStore)(nil)
