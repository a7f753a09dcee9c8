package search

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/renderinc/notion-architect/internal/blueprint"
	"github.com/renderinc/notion-architect/internal/metrics"
	"github.com/renderinc/notion-architect/internal/storage"
)

// Index wraps a Bleve index of few-shot examples
type Index struct {
	index bleve.Index
}

// IndexedExample is an example as it is stored in the index
type IndexedExample struct {
	ID        string
	Prompt    string
	Narrative string
	Content   string   // titles and text of every block
	Kinds     []string // block types the blueprint uses
}

// SearchResult represents a search result
type SearchResult struct {
	ID        string
	Prompt    string
	Score     float64
	Fragments map[string][]string // Highlighted snippets
}

// Open opens or creates a Bleve index
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	english := bleve.NewTextFieldMapping()
	english.Analyzer = "en"

	kinds := bleve.NewKeywordFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("ID", bleve.NewKeywordFieldMapping())
	docMapping.AddFieldMappingsAt("Prompt", english)
	docMapping.AddFieldMappingsAt("Narrative", english)
	docMapping.AddFieldMappingsAt("Content", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("Kinds", kinds)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}

// Close closes the index
func (i *Index) Close() error {
	return i.index.Close()
}

// NewIndexedExample flattens a stored example for indexing. The blueprint
// must already have been validated.
func NewIndexedExample(ex *storage.Example) (*IndexedExample, error) {
	page, err := blueprint.ParsePage([]byte(ex.Blueprint))
	if err != nil {
		return nil, fmt.Errorf("parse blueprint of %s: %w", ex.ID, err)
	}
	doc := &IndexedExample{ID: ex.ID, Prompt: ex.Prompt, Narrative: ex.Response}
	var text []string
	seen := map[blueprint.Type]bool{}
	collect(page, &text, seen)
	doc.Content = strings.Join(text, "\n")
	for _, t := range blueprint.AllTypes {
		if seen[t] {
			doc.Kinds = append(doc.Kinds, string(t))
		}
	}
	return doc, nil
}

func collect(b blueprint.Block, text *[]string, seen map[blueprint.Type]bool) {
	seen[b.Type()] = true
	add := func(s string) {
		if s != "" {
			*text = append(*text, s)
		}
	}
	addSpans := func(spans []blueprint.RichSpan) {
		for _, s := range spans {
			add(s.Text)
		}
	}

	switch b := b.(type) {
	case *blueprint.Page:
		add(b.Title)
	case *blueprint.Database:
		add(b.Title)
		for _, name := range b.Schema.Names() {
			add(name)
		}
	case *blueprint.Heading:
		add(b.Text)
	case *blueprint.Paragraph:
		addSpans(b.Content)
	case *blueprint.List:
		for _, item := range b.Items {
			add(item)
		}
	case *blueprint.ToDoList:
		for _, item := range b.Items {
			add(item.Text)
		}
	case *blueprint.Toggle:
		add(b.Text)
	case *blueprint.Callout:
		addSpans(b.Content)
	case *blueprint.Quote:
		addSpans(b.Content)
	}
	for _, child := range blueprint.Children(b) {
		collect(child, text, seen)
	}
}

// IndexExample adds or updates an example in the index
func (i *Index) IndexExample(doc *IndexedExample) error {
	if err := i.index.Index(doc.ID, doc); err != nil {
		return err
	}
	metrics.ExamplesIndexed.Inc()
	return nil
}

// Delete removes an example from the index
func (i *Index) Delete(id string) error {
	return i.index.Delete(id)
}

// Search runs a query string query (quotes, boolean operators, fuzzy ~,
// field:value) and highlights the matches.
func (i *Index) Search(queryStr string, limit int) ([]*SearchResult, error) {
	return i.run(bleve.NewQueryStringQuery(queryStr), limit, true)
}

// Similar finds the examples closest to a free-form description. Unlike
// Search, the description is not parsed as query syntax.
func (i *Index) Similar(description string, limit int) ([]*SearchResult, error) {
	prompt := bleve.NewMatchQuery(description)
	prompt.SetField("Prompt")
	prompt.SetBoost(3)

	content := bleve.NewMatchQuery(description)
	content.SetField("Content")

	narrative := bleve.NewMatchQuery(description)
	narrative.SetField("Narrative")

	return i.run(bleve.NewDisjunctionQuery(prompt, content, narrative), limit, false)
}

func (i *Index) run(q query.Query, limit int, highlight bool) ([]*SearchResult, error) {
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	if highlight {
		req.Highlight = bleve.NewHighlightWithStyle("html")
	}
	req.Fields = []string{"Prompt"}

	results, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var out []*SearchResult
	for _, hit := range results.Hits {
		result := &SearchResult{ID: hit.ID, Score: hit.Score, Fragments: hit.Fragments}
		if prompt, ok := hit.Fields["Prompt"].(string); ok {
			result.Prompt = prompt
		}
		out = append(out, result)
	}
	return out, nil
}

// IndexFromStorage rebuilds the index from every stored example
func (i *Index) IndexFromStorage(db *storage.DB) error {
	examples, err := db.ListExamples()
	if err != nil {
		return fmt.Errorf("list examples: %w", err)
	}

	batch := i.index.NewBatch()
	for _, ex := range examples {
		doc, err := NewIndexedExample(ex)
		if err != nil {
			return err
		}
		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("batch index %s: %w", ex.ID, err)
		}
	}

	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	metrics.ExamplesIndexed.Add(float64(len(examples)))
	return nil
}

// Count returns the number of examples in the index
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}
