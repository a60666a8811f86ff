// Package search keeps an in-memory full text index over loaded feed items
// so a headline can be found and scrolled to.
package search

import (
	"fmt"
	"strings"
	"sync"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/ivanGusef/guardfeed/internal/storage"
)

type Hit struct {
	ID       string
	Headline string
	Score    float64
}

type Index struct {
	mu      sync.Mutex
	idx     bleve.Index
	indexed map[string]storage.Item
}

func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating search index: %w", err)
	}
	return &Index{idx: idx, indexed: make(map[string]storage.Item)}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	headline := bleve.NewTextFieldMapping()
	headline.Analyzer = standard.Name
	headline.Store = true
	headline.IncludeTermVectors = true

	trail := bleve.NewTextFieldMapping()
	trail.Analyzer = standard.Name
	trail.Store = false

	dm.AddFieldMappingsAt("headline", headline)
	dm.AddFieldMappingsAt("trail_text", trail)

	im.DefaultMapping = dm
	return im
}

// Index adds items to the index. Items already indexed with the same
// content are skipped.
func (x *Index) Index(items []storage.Item) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	batch := x.idx.NewBatch()
	fresh := make(map[string]storage.Item)
	for _, item := range items {
		if prev, ok := x.indexed[item.ID]; ok && prev == item {
			continue
		}
		err := batch.Index(item.ID, map[string]any{
			"headline":   item.Headline,
			"trail_text": plainText(item.TrailText),
		})
		if err != nil {
			return fmt.Errorf("indexing %s: %w", item.ID, err)
		}
		fresh[item.ID] = item
	}
	if batch.Size() == 0 {
		return nil
	}
	if err := x.idx.Batch(batch); err != nil {
		return fmt.Errorf("writing index batch: %w", err)
	}
	for id, item := range fresh {
		x.indexed[id] = item
	}
	return nil
}

// Search ORs a match and a prefix query per token, headline boosted over
// trail text. Queries shorter than two characters return nothing.
func (x *Index) Search(query string, limit int) ([]Hit, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []Hit{}, nil
	}

	var qs []bleveQuery.Query
	for _, tok := range tokenize(query) {
		qs = append(qs,
			fieldMatch(tok, "headline", 4.0),
			fieldPrefix(tok, "headline", 3.5),
			fieldMatch(tok, "trail_text", 2.0),
			fieldPrefix(tok, "trail_text", 1.8),
		)
	}
	if len(qs) == 0 {
		return []Hit{}, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	req.Fields = []string{"headline"}

	x.mu.Lock()
	res, err := x.idx.Search(req)
	x.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		if headline, ok := h.Fields["headline"].(string); ok {
			hit.Headline = headline
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (x *Index) DocCount() (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	n, err := x.idx.DocCount()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (x *Index) Close() error {
	return x.idx.Close()
}

func fieldMatch(tok, field string, boost float64) bleveQuery.Query {
	q := bleve.NewMatchQuery(tok)
	q.SetField(field)
	q.SetBoost(boost)
	return q
}

func fieldPrefix(tok, field string, boost float64) bleveQuery.Query {
	q := bleve.NewPrefixQuery(tok)
	q.SetField(field)
	q.SetBoost(boost)
	return q
}

// plainText renders trail text HTML as markdown, falling back to the raw
// text when it does not parse.
func plainText(html string) string {
	if html == "" {
		return ""
	}
	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return html
	}
	return md
}
