// Package store owns the on-disk index: an immutable segment file per
// commit, a CURRENT manifest naming the committed segment, and a LOCK file
// serialising writers. A Store is the single writer handle; any number of
// Reader handles may search the committed state concurrently.
package store

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xplr/topicsearch/internal/index"
	apperrors "github.com/xplr/topicsearch/pkg/errors"
	"github.com/xplr/topicsearch/pkg/logger"
)

// OpenMode selects how Open treats existing index content.
type OpenMode int

const (
	// OpenOrCreate opens an existing index, or creates an empty one.
	OpenOrCreate OpenMode = iota
	// Flush destroys any existing index content before creating a fresh,
	// empty index.
	Flush
)

// Store is the writer handle for one index directory. Upserts accumulate in
// memory; Commit persists a full snapshot as a new segment and repoints the
// manifest. Uncommitted upserts are lost on crash, which is acceptable:
// indexing is restartable from the source URL list.
type Store struct {
	dir    string
	logger *slog.Logger

	mu       sync.Mutex
	mem      *index.MemoryIndex
	lockPath string
	closed   bool
}

// Open opens or creates the index at dir and takes the writer lock.
// It fails with ErrStoreUnavailable when dir cannot be created or read,
// and with ErrStoreLocked when another writer holds the lock. Both modes
// leave a committed (possibly empty) segment behind, so readers opening
// afterwards always find a searchable index.
func Open(dir string, mode OpenMode) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.Newf(apperrors.ErrStoreUnavailable, "creating index directory %s: %v", dir, err)
	}
	lockPath, err := acquireLock(dir)
	if err != nil {
		return nil, err
	}
	s := &Store{
		dir:      dir,
		logger:   logger.WithComponent("store"),
		mem:      index.NewMemoryIndex(),
		lockPath: lockPath,
	}
	if err := s.init(mode); err != nil {
		releaseLock(lockPath)
		return nil, err
	}
	return s, nil
}

func (s *Store) init(mode OpenMode) error {
	switch mode {
	case Flush:
		if err := s.removeIndexFiles(); err != nil {
			return apperrors.Newf(apperrors.ErrStoreUnavailable, "flushing index: %v", err)
		}
		s.logger.Info("index flushed", "dir", s.dir)
		return s.commitLocked()
	default:
		current, err := readManifest(s.dir)
		if os.IsNotExist(err) {
			// First use: persist the empty state.
			return s.commitLocked()
		}
		if err != nil {
			return apperrors.Newf(apperrors.ErrStoreUnavailable, "reading manifest: %v", err)
		}
		entries, docs, err := readSegment(filepath.Join(s.dir, current))
		if err != nil {
			return apperrors.Newf(apperrors.ErrStoreUnavailable, "loading segment %s: %v", current, err)
		}
		s.mem.Load(entries, docs)
		s.logger.Info("index opened",
			"dir", s.dir,
			"segment", current,
			"docs", s.mem.DocCount(),
			"terms", s.mem.TermCount(),
		)
		return nil
	}
}

// Upsert stages the document: added if its URL is new, otherwise the prior
// version's postings are replaced wholesale. Visible to readers only after
// Commit.
func (s *Store) Upsert(doc index.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return apperrors.New(apperrors.ErrStoreClosed, "upsert on closed store")
	}
	if doc.URL == "" {
		return apperrors.New(apperrors.ErrInvalidDocument, "empty url")
	}
	s.mem.Upsert(doc)
	return nil
}

// Commit makes all staged upserts durable and visible: it writes a new
// segment, fsyncs it, atomically repoints CURRENT, then removes superseded
// segments. Readers holding the old segment keep a valid file handle.
func (s *Store) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return apperrors.New(apperrors.ErrStoreClosed, "commit on closed store")
	}
	return s.commitLocked()
}

func (s *Store) commitLocked() error {
	entries, docs := s.mem.Snapshot()
	segmentName, err := newSegmentWriter(s.dir).Write(entries, docs)
	if err != nil {
		return apperrors.Newf(apperrors.ErrStoreUnavailable, "writing segment: %v", err)
	}
	if err := writeManifest(s.dir, segmentName); err != nil {
		return apperrors.Newf(apperrors.ErrStoreUnavailable, "updating manifest: %v", err)
	}
	s.removeStaleSegments(segmentName)
	s.logger.Info("commit complete",
		"segment", segmentName,
		"docs", len(docs),
		"terms", len(entries),
	)
	return nil
}

// DocCount returns the number of staged (committed plus uncommitted) docs.
func (s *Store) DocCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mem.DocCount()
}

// Close releases the writer lock. It does not commit; staged upserts since
// the last Commit are discarded. Further operations fail with ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return apperrors.New(apperrors.ErrStoreClosed, "already closed")
	}
	s.closed = true
	if err := releaseLock(s.lockPath); err != nil {
		return apperrors.Newf(apperrors.ErrStoreUnavailable, "releasing lock: %v", err)
	}
	return nil
}

// removeIndexFiles deletes segments and the manifest, keeping the lock.
func (s *Store) removeIndexFiles() error {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	for _, entry := range dirEntries {
		name := entry.Name()
		if name == lockName {
			continue
		}
		if name == manifestName || strings.HasSuffix(name, SegmentSuffix) || strings.HasSuffix(name, ".tmp") {
			if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
				return err
			}
		}
	}
	s.mem.Reset()
	return nil
}

func (s *Store) removeStaleSegments(current string) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("listing index directory", "error", err)
		return
	}
	for _, entry := range dirEntries {
		name := entry.Name()
		if name == current || !strings.HasSuffix(name, SegmentSuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			s.logger.Warn("removing stale segment", "segment", name, "error", err)
		}
	}
}
