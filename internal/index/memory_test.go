package index

import (
	"errors"
	"testing"

	apperrors "github.com/xplr/topicsearch/pkg/errors"
)

func TestNewDocument(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		topics  []string
		wantErr bool
	}{
		{
			name:   "valid document",
			url:    "http://example.com",
			topics: []string{"technology"},
		},
		{
			name:   "empty topics is valid",
			url:    "http://example.com",
			topics: nil,
		},
		{
			name:    "empty url is rejected",
			url:     "",
			topics:  []string{"technology"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDocument(tt.url, tt.topics)
			if tt.wantErr {
				if !errors.Is(err, apperrors.ErrInvalidDocument) {
					t.Fatalf("expected ErrInvalidDocument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func mustDoc(t *testing.T, url string, topics ...string) Document {
	t.Helper()
	doc, err := NewDocument(url, topics)
	if err != nil {
		t.Fatalf("NewDocument(%q): %v", url, err)
	}
	return doc
}

func TestMemoryIndexUpsert(t *testing.T) {
	m := NewMemoryIndex()
	m.Upsert(mustDoc(t, "http://a.com", "sports", "sports", "finance"))

	if got := m.DocCount(); got != 1 {
		t.Fatalf("DocCount = %d, want 1", got)
	}
	postings := m.Postings("sport")
	if len(postings) != 1 {
		t.Fatalf("postings for %q: %v", "sport", postings)
	}
	if postings[0].Frequency != 2 {
		t.Errorf("duplicate topics should raise frequency: got %d, want 2", postings[0].Frequency)
	}
}

// Indexing the same document twice must leave the index in the same state
// as indexing it once.
func TestMemoryIndexUpsertIdempotent(t *testing.T) {
	m := NewMemoryIndex()
	doc := mustDoc(t, "http://a.com", "finance")
	m.Upsert(doc)
	m.Upsert(doc)

	if got := m.DocCount(); got != 1 {
		t.Fatalf("DocCount = %d, want 1", got)
	}
	postings := m.Postings("financ")
	if len(postings) != 1 {
		t.Fatalf("postings duplicated: %v", postings)
	}
	if postings[0].Frequency != 1 {
		t.Errorf("frequency = %d, want 1", postings[0].Frequency)
	}
}

// Re-indexing a URL with new topics must fully replace the old postings,
// never union them.
func TestMemoryIndexUpsertReplaces(t *testing.T) {
	m := NewMemoryIndex()
	m.Upsert(mustDoc(t, "http://a.com", "finance"))
	m.Upsert(mustDoc(t, "http://a.com", "sports"))

	if got := m.Postings("financ"); len(got) != 0 {
		t.Errorf("old postings survived replacement: %v", got)
	}
	if got := m.Postings("sport"); len(got) != 1 {
		t.Errorf("new postings missing: %v", got)
	}
	if got := m.DocCount(); got != 1 {
		t.Errorf("DocCount = %d, want 1", got)
	}
}

func TestMemoryIndexEmptyTopics(t *testing.T) {
	m := NewMemoryIndex()
	m.Upsert(mustDoc(t, "http://empty.com"))

	if got := m.DocCount(); got != 1 {
		t.Errorf("document with no topics must still count: DocCount = %d", got)
	}
	if got := m.TermCount(); got != 0 {
		t.Errorf("TermCount = %d, want 0", got)
	}
}

func TestMemoryIndexPostingsSorted(t *testing.T) {
	m := NewMemoryIndex()
	m.Upsert(mustDoc(t, "http://b.com", "golang"))
	m.Upsert(mustDoc(t, "http://a.com", "golang"))
	m.Upsert(mustDoc(t, "http://c.com", "golang"))

	postings := m.Postings("golang")
	if len(postings) != 3 {
		t.Fatalf("postings = %v", postings)
	}
	for i := 1; i < len(postings); i++ {
		if postings[i-1].URL >= postings[i].URL {
			t.Fatalf("postings not sorted by URL: %v", postings)
		}
	}
}

func TestMemoryIndexSnapshotLoadRoundtrip(t *testing.T) {
	m := NewMemoryIndex()
	m.Upsert(mustDoc(t, "http://a.com", "technology", "ai"))
	m.Upsert(mustDoc(t, "http://b.com", "technology"))

	entries, docs := m.Snapshot()
	restored := NewMemoryIndex()
	restored.Load(entries, docs)

	if restored.DocCount() != m.DocCount() {
		t.Fatalf("DocCount after load = %d, want %d", restored.DocCount(), m.DocCount())
	}
	if restored.TermCount() != m.TermCount() {
		t.Fatalf("TermCount after load = %d, want %d", restored.TermCount(), m.TermCount())
	}
	// Replacement still works against loaded state.
	restored.Upsert(mustDoc(t, "http://a.com", "finance"))
	if got := restored.Postings("ai"); len(got) != 0 {
		t.Errorf("stale postings after upsert on loaded index: %v", got)
	}
}
