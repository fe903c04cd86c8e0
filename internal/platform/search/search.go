// Package search provides an in-process lexical document index used to pull
// guideline and hospital context into LLM prompts. Results carry a distance
// so callers can treat it like any nearest-neighbour store; retrieval is
// advisory only and an empty result set is a valid answer.
package search

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// Document is one indexed entry.
type Document struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Result pairs a matched document with its distance. Smaller is closer;
// distance is in [0, 1].
type Result struct {
	Document Document `json:"document"`
	Distance float64  `json:"distance"`
}

// Searcher finds the k documents closest to a query.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Result, error)
}

// Index is a thread-safe in-memory term-overlap index.
type Index struct {
	mu    sync.RWMutex
	docs  []Document
	terms []map[string]struct{} // parallel to docs
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{}
}

// Add indexes the given documents. Documents with empty text are skipped.
func (ix *Index) Add(docs ...Document) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, d := range docs {
		ts := tokenize(d.Text)
		if len(ts) == 0 {
			continue
		}
		ix.docs = append(ix.docs, d)
		ix.terms = append(ix.terms, ts)
	}
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Search returns up to k documents that share terms with the query, closest
// first. Documents sharing no terms are not returned.
func (ix *Index) Search(_ context.Context, query string, k int) ([]Result, error) {
	if k <= 0 {
		return nil, nil
	}
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	type scored struct {
		idx  int
		dist float64
	}
	var matches []scored
	for i, docTerms := range ix.terms {
		overlap := 0
		for t := range queryTerms {
			if _, ok := docTerms[t]; ok {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}
		// Cosine-style similarity over term sets.
		sim := float64(overlap) / math.Sqrt(float64(len(queryTerms))*float64(len(docTerms)))
		if sim > 1 {
			sim = 1
		}
		matches = append(matches, scored{idx: i, dist: 1 - sim})
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].dist < matches[b].dist
	})
	if len(matches) > k {
		matches = matches[:k]
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, Result{Document: ix.docs[m.idx], Distance: m.dist})
	}
	return results, nil
}

// tokenize lowercases the text and splits it into a set of alphanumeric
// terms.
func tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(fields) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
