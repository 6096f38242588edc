package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/xplr/topicsearch/internal/index"
	apperrors "github.com/xplr/topicsearch/pkg/errors"
)

// Reader is a read-only handle over the committed segment. It resolves
// CURRENT once at open, so its view stays consistent even while a writer
// commits; postings are read from disk on demand. Any number of Readers may
// be open concurrently with one writer.
type Reader struct {
	file   *os.File
	header segmentHeader
	dict   []dictEntry
	docs   map[string]index.DocEntry
}

// openAttempts bounds the manifest re-resolution loop in OpenReader. A
// commit between reading CURRENT and opening the named segment deletes the
// superseded segment, so a vanished file means a newer commit exists and the
// manifest must be read again.
const openAttempts = 5

// OpenReader opens the committed index at dir for searching. A missing or
// corrupt index fails with ErrIndexUnavailable; a segment swapped out by a
// concurrent commit is retried against the new manifest.
func OpenReader(dir string) (*Reader, error) {
	var (
		current string
		f       *os.File
	)
	for attempt := 0; ; attempt++ {
		var err error
		current, err = readManifest(dir)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrIndexUnavailable, "no committed index at %s: %v", dir, err)
		}
		f, err = os.Open(filepath.Join(dir, current))
		if err == nil {
			break
		}
		if os.IsNotExist(err) && attempt < openAttempts-1 {
			continue
		}
		return nil, apperrors.Newf(apperrors.ErrIndexUnavailable, "opening segment %s: %v", current, err)
	}
	header, err := readAndCheckHeader(f)
	if err != nil {
		f.Close()
		return nil, apperrors.Newf(apperrors.ErrIndexUnavailable, "segment %s: %v", current, err)
	}
	dict, docs, err := readSections(f, header)
	if err != nil {
		f.Close()
		return nil, apperrors.Newf(apperrors.ErrIndexUnavailable, "segment %s: %v", current, err)
	}
	docsByURL := make(map[string]index.DocEntry, len(docs))
	for _, doc := range docs {
		docsByURL[doc.URL] = doc
	}
	return &Reader{
		file:   f,
		header: header,
		dict:   dict,
		docs:   docsByURL,
	}, nil
}

// Postings returns the posting list for an exact (already normalized) term.
// Unknown terms yield nil without error.
func (r *Reader) Postings(term string) (index.PostingList, error) {
	i := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Term >= term
	})
	if i >= len(r.dict) || r.dict[i].Term != term {
		return nil, nil
	}
	entry := r.dict[i]
	postingsData := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(postingsData, r.header.PostOffset+entry.PostOffset); err != nil {
		return nil, apperrors.Newf(apperrors.ErrIndexUnavailable, "reading postings for %q: %v", term, err)
	}
	var postings index.PostingList
	if err := json.Unmarshal(postingsData, &postings); err != nil {
		return nil, apperrors.Newf(apperrors.ErrIndexUnavailable, "parsing postings for %q: %v", term, err)
	}
	return postings, nil
}

// Doc returns the stored entry for a URL.
func (r *Reader) Doc(url string) (index.DocEntry, bool) {
	doc, ok := r.docs[url]
	return doc, ok
}

// DocCount returns the number of committed documents.
func (r *Reader) DocCount() int {
	return int(r.header.DocCount)
}

// TermCount returns the number of distinct terms in the dictionary.
func (r *Reader) TermCount() int {
	return len(r.dict)
}

func (r *Reader) Close() error {
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("closing segment: %w", err)
	}
	return nil
}
