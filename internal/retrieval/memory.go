package retrieval

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Document is one passage held by a MemoryIndex.
type Document struct {
	Title      string   `yaml:"title"`
	Collection string   `yaml:"collection"`
	Topics     []string `yaml:"topics"`
	Content    string   `yaml:"content"`
}

// MemoryIndex scores documents by term overlap with the query. It backs local development and
// tests where no search service is running.
type MemoryIndex struct {
	docs  []Document
	terms []map[string]struct{}
}

// NewMemoryIndex indexes docs.
func NewMemoryIndex(docs []Document) *MemoryIndex {
	idx := &MemoryIndex{docs: docs, terms: make([]map[string]struct{}, len(docs))}
	for i, d := range docs {
		idx.terms[i] = termSet(d.Title + " " + d.Content)
	}
	return idx
}

// LoadMemoryIndex reads a YAML list of documents.
func LoadMemoryIndex(r io.Reader) (*MemoryIndex, error) {
	var docs []Document
	if err := yaml.NewDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("decode reference documents: %w", err)
	}
	return NewMemoryIndex(docs), nil
}

// LoadMemoryIndexFile reads documents from path.
func LoadMemoryIndexFile(path string) (*MemoryIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadMemoryIndex(f)
}

// Search scores every document against the query text. The score is the share of query terms
// found in the document.
func (m *MemoryIndex) Search(ctx context.Context, q Query) ([]Passage, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	query := termSet(q.Text)
	if len(query) == 0 {
		return nil, nil
	}

	var out []Passage
	for i, d := range m.docs {
		if q.Collection != "" && d.Collection != q.Collection {
			continue
		}
		if len(q.Topics) > 0 && !sharesTopic(d.Topics, q.Topics) {
			continue
		}
		hits := 0
		for term := range query {
			if _, ok := m.terms[i][term]; ok {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		out = append(out, Passage{
			Content:     d.Content,
			SourceTitle: d.Title,
			Collection:  d.Collection,
			Score:       float64(hits) / float64(len(query)),
		})
	}
	return rank(out, q), nil
}

// rank drops passages under the similarity floor, orders the rest best first and applies the limit.
func rank(passages []Passage, q Query) []Passage {
	out := passages[:0:0]
	for _, p := range passages {
		if p.Score >= q.MinSimilarity {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func sharesTopic(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(w, h) {
				return true
			}
		}
	}
	return false
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "can": {}, "do": {}, "for": {}, "how": {}, "i": {},
	"in": {}, "is": {}, "it": {}, "my": {}, "of": {}, "on": {}, "or": {}, "should": {}, "the": {},
	"to": {}, "what": {}, "with": {}, "you": {}, "your": {},
}

func termSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, stop := stopWords[f]; stop || len(f) < 2 {
			continue
		}
		out[f] = struct{}{}
	}
	return out
}
