package search

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// InMemoryEngine is a token-overlap index suitable for development, testing,
// and single-instance deployments. Data is lost on restart.
type InMemoryEngine struct {
	mu   sync.RWMutex
	docs map[string]Document
	ids  []string
}

// NewInMemoryEngine creates an empty in-memory engine.
func NewInMemoryEngine() *InMemoryEngine {
	return &InMemoryEngine{docs: make(map[string]Document)}
}

// Index adds or replaces documents.
func (e *InMemoryEngine) Index(_ context.Context, docs ...Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, doc := range docs {
		if _, exists := e.docs[doc.ID]; !exists {
			e.ids = append(e.ids, doc.ID)
		}
		e.docs[doc.ID] = doc
	}
	return nil
}

// Search ranks documents by the fraction of query tokens they contain.
// Ties keep indexing order so results are deterministic.
func (e *InMemoryEngine) Search(_ context.Context, query string, limit int) ([]Result, error) {
	tokens := tokenize(query)
	if len(tokens) == 0 || limit == 0 {
		return nil, nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	var results []Result
	for _, id := range e.ids {
		doc := e.docs[id]
		haystack := strings.ToLower(doc.Content + " " + doc.Path)
		matched := 0
		for _, token := range tokens {
			if strings.Contains(haystack, token) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		results = append(results, Result{
			Document: doc,
			Score:    float64(matched) / float64(len(tokens)),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Count returns the number of indexed documents.
func (e *InMemoryEngine) Count(_ context.Context) (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.ids), nil
}

func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, `.,;:"'()[]{}`)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
