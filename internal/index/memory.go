package index

import (
	"sort"
	"sync"

	"github.com/xplr/topicsearch/internal/tokenizer"
)

// MemoryIndex is the in-memory inverted index: a term dictionary mapping
// each normalized token to per-URL postings, plus a stored-documents table.
// It is safe for concurrent use.
type MemoryIndex struct {
	mu       sync.RWMutex
	terms    map[string]map[string]*Posting
	docs     map[string]*DocEntry
	docTerms map[string][]string
}

func NewMemoryIndex() *MemoryIndex {
	m := &MemoryIndex{}
	m.reset()
	return m
}

func (m *MemoryIndex) reset() {
	m.terms = make(map[string]map[string]*Posting)
	m.docs = make(map[string]*DocEntry)
	m.docTerms = make(map[string][]string)
}

// Upsert indexes the document's topics under its URL. If the URL is already
// indexed, the prior version's postings are removed first, so the index only
// ever reflects the latest topics for a URL. The whole operation happens
// under one lock; readers of this index never observe a partially applied
// document.
func (m *MemoryIndex) Upsert(doc Document) {
	termFreq := make(map[string]int)
	length := 0
	for _, topic := range doc.Topics {
		for _, term := range tokenizer.Tokenize(topic) {
			termFreq[term]++
			length++
		}
	}
	distinct := make([]string, 0, len(termFreq))
	for term := range termFreq {
		distinct = append(distinct, term)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(doc.URL)
	for term, freq := range termFreq {
		if _, exists := m.terms[term]; !exists {
			m.terms[term] = make(map[string]*Posting)
		}
		m.terms[term][doc.URL] = &Posting{
			URL:       doc.URL,
			Frequency: freq,
		}
	}
	m.docs[doc.URL] = &DocEntry{
		URL:    doc.URL,
		Topics: doc.Topics,
		Length: length,
	}
	m.docTerms[doc.URL] = distinct
}

// removeLocked drops all postings of the given URL. Caller holds mu.
func (m *MemoryIndex) removeLocked(url string) {
	for _, term := range m.docTerms[url] {
		postings := m.terms[term]
		delete(postings, url)
		if len(postings) == 0 {
			delete(m.terms, term)
		}
	}
	delete(m.docTerms, url)
	delete(m.docs, url)
}

// Postings returns the posting list for a term, sorted by URL. A term absent
// from the dictionary yields nil.
func (m *MemoryIndex) Postings(term string) PostingList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	urls, exists := m.terms[term]
	if !exists {
		return nil
	}
	result := make(PostingList, 0, len(urls))
	for _, posting := range urls {
		result = append(result, *posting)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].URL < result[j].URL
	})
	return result
}

// Doc returns the stored entry for a URL, or nil.
func (m *MemoryIndex) Doc(url string) *DocEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if entry, ok := m.docs[url]; ok {
		copied := *entry
		return &copied
	}
	return nil
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryIndex) TermCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.terms)
}

// Snapshot returns the full index state with terms and postings in sorted
// order, suitable for segment serialisation.
func (m *MemoryIndex) Snapshot() ([]TermEntry, []DocEntry) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0, len(m.terms))
	for term, urls := range m.terms {
		postings := make(PostingList, 0, len(urls))
		for _, posting := range urls {
			postings = append(postings, *posting)
		}
		sort.Slice(postings, func(i, j int) bool {
			return postings[i].URL < postings[j].URL
		})
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: postings,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	docs := make([]DocEntry, 0, len(m.docs))
	for _, entry := range m.docs {
		docs = append(docs, *entry)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].URL < docs[j].URL
	})
	return entries, docs
}

// Load replaces the index state with a previously snapshotted one.
func (m *MemoryIndex) Load(entries []TermEntry, docs []DocEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
	for _, doc := range docs {
		copied := doc
		m.docs[doc.URL] = &copied
	}
	for _, entry := range entries {
		urls := make(map[string]*Posting, len(entry.Postings))
		for _, posting := range entry.Postings {
			copied := posting
			urls[posting.URL] = &copied
			m.docTerms[posting.URL] = append(m.docTerms[posting.URL], entry.Term)
		}
		m.terms[entry.Term] = urls
	}
}

// Reset drops all index state.
func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}
