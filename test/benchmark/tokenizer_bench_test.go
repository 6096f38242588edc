package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/xplr/topicsearch/internal/tokenizer"
)

var sampleTexts = map[string]string{
	"topic":  "Machine Learning",
	"phrase": "distributed systems and cloud computing for financial analytics",
	"long": strings.Repeat(`Topic prediction services label web pages with subject
        categories such as finance, sports, technology, and entertainment. The
        labels are normalized through lowercasing, stop word removal, and
        stemming before they reach the inverted index, so that a query for
        "learning" matches pages labelled "machine learning". `, 20),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := tokenizer.Tokenize(text)
				_ = tokens
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := sampleTexts["phrase"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tokens := tokenizer.Tokenize(text)
			_ = tokens
		}
	})
}

func BenchmarkStemming(b *testing.B) {
	words := []string{
		"learning", "finance", "technology", "computing",
		"entertainment", "analytics", "prediction",
		"processing", "infrastructure", "categories",
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for _, w := range words {
			tokens := tokenizer.Tokenize(w)
			_ = tokens
		}
	}
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	sizes := []int{10, 100, 500, 1000, 5000}
	baseText := "finance sports technology entertainment analytics "
	for _, size := range sizes {
		text := strings.Repeat(baseText, size/len(baseText)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := tokenizer.Tokenize(text)
				_ = tokens
			}
		})
	}
}
