package search

import (
	"fmt"
	"strings"
	"sync"

	"neutral-reader/internal/model"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Index is an in-memory full-text index over saved articles. It is rebuilt
// from the full collection rather than updated entry by entry.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
}

type document struct {
	Title    string
	URL      string
	Domain   string
	Original string
	Versions string
}

// Hit is one search result.
type Hit struct {
	ID    string  `json:"id"`
	URL   string  `json:"url"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// New creates an empty index.
func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	title := bleve.NewTextFieldMapping()
	title.Analyzer = "en"

	keyword := bleve.NewKeywordFieldMapping()

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("Title", title)
	doc.AddFieldMappingsAt("URL", keyword)
	doc.AddFieldMappingsAt("Domain", keyword)
	doc.AddFieldMappingsAt("Original", bleve.NewTextFieldMapping())
	doc.AddFieldMappingsAt("Versions", bleve.NewTextFieldMapping())

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// Rebuild replaces the index contents with articles.
func (i *Index) Rebuild(articles []model.SavedArticle) error {
	fresh, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	batch := fresh.NewBatch()
	for _, a := range articles {
		var parts []string
		for _, v := range a.Versions {
			parts = append(parts, v.Content)
		}
		d := document{
			Title:    a.Title,
			URL:      a.URL,
			Domain:   a.Domain,
			Original: a.Text,
			Versions: strings.Join(parts, "\n\n"),
		}
		if err := batch.Index(a.ID, d); err != nil {
			fresh.Close()
			return fmt.Errorf("batch index %s: %w", a.ID, err)
		}
	}
	if err := fresh.Batch(batch); err != nil {
		fresh.Close()
		return fmt.Errorf("commit batch: %w", err)
	}

	i.mu.Lock()
	old := i.index
	i.index = fresh
	i.mu.Unlock()
	return old.Close()
}

// Search runs a query-string query (quotes, +/-, field:term, fuzzy ~).
func (i *Index) Search(q string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(q), limit, 0, false)
	req.Fields = []string{"Title", "URL"}

	i.mu.RLock()
	defer i.mu.RUnlock()
	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		if s, ok := h.Fields["Title"].(string); ok {
			hit.Title = s
		}
		if s, ok := h.Fields["URL"].(string); ok {
			hit.URL = s
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Count returns the number of indexed articles.
func (i *Index) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index.DocCount()
}

func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.index.Close()
}
