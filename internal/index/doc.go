package index

import (
	apperrors "github.com/xplr/topicsearch/pkg/errors"
)

// Document is the indexable unit: a URL plus the topic labels the prediction
// service returned for it. The URL is the primary key; re-indexing the same
// URL replaces the prior version. Duplicate topics are allowed and raise
// term frequency.
type Document struct {
	URL    string
	Topics []string
}

// NewDocument validates and builds a Document. A document with an empty
// topic list is valid; it simply never matches a query.
func NewDocument(url string, topics []string) (Document, error) {
	if url == "" {
		return Document{}, apperrors.New(apperrors.ErrInvalidDocument, "empty url")
	}
	return Document{
		URL:    url,
		Topics: topics,
	}, nil
}
