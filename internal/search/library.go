package search

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/renderinc/notion-architect/internal/prompt"
	"github.com/renderinc/notion-architect/internal/storage"
)

var _ prompt.Source = (*Library)(nil)

// Library picks few-shot examples for a description from the imported
// examples, falling back to the built-in ones while none are indexed.
type Library struct {
	db    *storage.DB
	index *Index
	log   zerolog.Logger
}

// NewLibrary creates a Library over db and index
func NewLibrary(db *storage.DB, index *Index, log zerolog.Logger) *Library {
	return &Library{db: db, index: index, log: log}
}

// Examples returns up to n examples, most similar first. Built-in examples
// fill the remaining slots.
func (l *Library) Examples(ctx context.Context, description string, n int) ([]prompt.Example, error) {
	defaults, _ := prompt.Static(prompt.Defaults()).Examples(ctx, description, n)

	count, err := l.index.Count()
	if err != nil {
		return nil, fmt.Errorf("count examples: %w", err)
	}
	if count == 0 || n <= 0 {
		return defaults, nil
	}

	results, err := l.index.Similar(description, n)
	if err != nil {
		return nil, err
	}

	out := make([]prompt.Example, 0, n)
	for _, r := range results {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ex, err := l.db.GetExample(r.ID)
		if err != nil {
			return nil, fmt.Errorf("get example %s: %w", r.ID, err)
		}
		if ex == nil {
			l.log.Warn().Str("id", r.ID).Msg("indexed example missing from storage")
			continue
		}
		out = append(out, prompt.Example{
			Prompt:    ex.Prompt,
			Response:  ex.Response,
			Blueprint: json.RawMessage(ex.Blueprint),
		})
	}
	for _, d := range defaults {
		if len(out) >= n {
			break
		}
		out = append(out, d)
	}
	l.log.Debug().Int("matched", len(results)).Int("examples", len(out)).Msg("selected examples")
	return out, nil
}
