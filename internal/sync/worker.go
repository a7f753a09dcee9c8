// Package sync imports few-shot examples into storage and the search index.
package sync

import (
	"bufio"
	"bytes"
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/buger/jsonparser"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/renderinc/notion-architect/internal/blueprint"
	"github.com/renderinc/notion-architect/internal/search"
	"github.com/renderinc/notion-architect/internal/storage"
)

// exampleNamespace derives stable example IDs from prompts.
var exampleNamespace = uuid.MustParse("8f6b3c52-1d7e-4a0b-9a55-4f0c2e6d7b11")

// Record is one example as found in an import file.
type Record struct {
	Prompt    string          `json:"prompt"`
	Response  string          `json:"response"`
	Blueprint json.RawMessage `json:"blueprint"`
}

// ExampleID returns the ID an example with this prompt is stored under.
func ExampleID(prompt string) string {
	return uuid.NewSHA1(exampleNamespace, []byte(prompt)).String()
}

// Worker validates, stores and indexes examples
type Worker struct {
	db          *storage.DB
	index       *search.Index
	log         zerolog.Logger
	concurrency int
}

// NewWorker creates a new import worker
func NewWorker(db *storage.DB, index *search.Index, log zerolog.Logger) *Worker {
	return &Worker{db: db, index: index, log: log, concurrency: 5}
}

// Stats holds import statistics
type Stats struct {
	Total    int
	New      int
	Updated  int
	Skipped  int // unchanged since the last import
	Invalid  int // failed validation
	Errors   int
	Duration time.Duration
}

// Import stores and indexes every valid record. Records whose blueprint
// fails validation are counted and skipped, not fatal.
func (w *Worker) Import(ctx context.Context, source string, records []Record) (*Stats, error) {
	startTime := time.Now()
	stats := &Stats{Total: len(records)}

	w.log.Info().Str("source", source).Int("records", len(records)).Msg("importing examples")

	recordChan := make(chan Record, len(records))
	for _, r := range records {
		recordChan <- r
	}
	close(recordChan)

	var wg sync.WaitGroup
	var mu sync.Mutex

	for range w.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range recordChan {
				if ctx.Err() != nil {
					return
				}
				if err := w.importRecord(source, r, stats, &mu); err != nil {
					w.log.Error().Err(err).Str("prompt", r.Prompt).Msg("import example")
					mu.Lock()
					stats.Errors++
					mu.Unlock()
				}
			}
		}()
	}

	wg.Wait()

	stats.Duration = time.Since(startTime)
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	w.log.Info().
		Int("new", stats.New).Int("updated", stats.Updated).Int("skipped", stats.Skipped).
		Int("invalid", stats.Invalid).Int("errors", stats.Errors).Dur("took", stats.Duration).
		Msg("import complete")
	return stats, nil
}

func (w *Worker) importRecord(source string, r Record, stats *Stats, mu *sync.Mutex) error {
	// 1. Validate through the same parser generation output goes through
	envelope, err := json.Marshal(struct {
		Response  string          `json:"response"`
		Blueprint json.RawMessage `json:"blueprint"`
	}{r.Response, r.Blueprint})
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	result, err := blueprint.Parse(envelope)
	if err != nil || r.Prompt == "" {
		if err == nil {
			err = fmt.Errorf("prompt is required")
		}
		w.log.Warn().Err(err).Str("prompt", r.Prompt).Msg("skipping invalid example")
		mu.Lock()
		stats.Invalid++
		mu.Unlock()
		return nil
	}

	// 2. Canonical blueprint and content hash
	canonical, err := json.Marshal(result.Document)
	if err != nil {
		return fmt.Errorf("encode blueprint: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(r.Prompt)
	buf.WriteByte(0)
	buf.WriteString(result.Narrative)
	buf.WriteByte(0)
	buf.Write(canonical)
	contentHash := fmt.Sprintf("%x", md5.Sum(buf.Bytes()))

	// 3. Skip unchanged examples
	id := ExampleID(r.Prompt)
	existingHash, err := w.db.GetContentHash(id)
	if err != nil {
		return fmt.Errorf("get content hash: %w", err)
	}
	if existingHash == contentHash {
		mu.Lock()
		stats.Skipped++
		mu.Unlock()
		return nil
	}

	ex := &storage.Example{
		ID:          id,
		Prompt:      r.Prompt,
		Response:    result.Narrative,
		Blueprint:   string(canonical),
		ContentHash: contentHash,
		Source:      source,
		ImportedAt:  time.Now().UTC(),
	}
	if err := w.db.UpsertExample(ex); err != nil {
		return fmt.Errorf("upsert example: %w", err)
	}

	doc, err := search.NewIndexedExample(ex)
	if err != nil {
		return err
	}
	if err := w.index.IndexExample(doc); err != nil {
		return fmt.Errorf("index example: %w", err)
	}

	mu.Lock()
	if existingHash == "" {
		stats.New++
	} else {
		stats.Updated++
	}
	mu.Unlock()

	w.log.Debug().Str("id", id).Str("prompt", r.Prompt).Msg("imported example")
	return nil
}

// ReadRecords reads an import file. Two layouts are accepted: a JSON array of
// records, or chat fine-tuning JSONL where each line holds a "messages" array
// whose user turn is the prompt and whose assistant turn is the output object.
func ReadRecords(r io.Reader) ([]Record, error) {
	br := bufio.NewReader(r)
	first, err := firstByte(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if first == '[' {
		var records []Record
		if err := json.NewDecoder(br).Decode(&records); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		return records, nil
	}

	var records []Record
	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		rec, err := chatRecord(data)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return records, nil
}

func firstByte(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n', 0xEF, 0xBB, 0xBF: // whitespace or BOM
			continue
		}
		return b, br.UnreadByte()
	}
}

func chatRecord(line []byte) (Record, error) {
	var rec Record
	var output []byte
	_, err := jsonparser.ArrayEach(line, func(msg []byte, _ jsonparser.ValueType, _ int, _ error) {
		role, _ := jsonparser.GetString(msg, "role")
		content, _ := jsonparser.GetString(msg, "content")
		switch role {
		case "user":
			rec.Prompt = content
		case "assistant":
			output = []byte(content)
		}
	}, "messages")
	if err != nil {
		return rec, fmt.Errorf("read messages: %w", err)
	}
	if output == nil {
		return rec, fmt.Errorf("no assistant message")
	}

	if rec.Response, err = jsonparser.GetString(output, "response"); err != nil {
		return rec, fmt.Errorf("assistant message: response: %w", err)
	}
	bp, _, _, err := jsonparser.Get(output, "blueprint")
	if err != nil {
		return rec, fmt.Errorf("assistant message: blueprint: %w", err)
	}
	rec.Blueprint = append(json.RawMessage(nil), bp...)
	return rec, nil
}
