package llm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Ensure Replay implements Generator interface at compile time
var _ Generator = (*Replay)(nil)

// DefaultChunkSize is the chunk length Replay splits recorded outputs into.
const DefaultChunkSize = 24

// Replay plays back recorded outputs, one per call, split into fixed-size
// chunks. Once the recordings are used up the last one is repeated. It
// keeps every request it receives.
type Replay struct {
	ChunkSize int

	mu       sync.Mutex
	outputs  []string
	requests []Request
}

// NewReplay creates a Replay over the given outputs.
func NewReplay(outputs ...string) *Replay {
	return &Replay{ChunkSize: DefaultChunkSize, outputs: outputs}
}

// NewReplayFromPath loads one recording from a file, or one per *.json file
// (in name order) from a directory.
func NewReplayFromPath(path string) (*Replay, error) {
	if path == "" {
		return nil, fmt.Errorf("replay provider needs a recording path")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat recording: %w", err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(path, "*.json"))
		if err != nil {
			return nil, fmt.Errorf("list recordings: %w", err)
		}
		sort.Strings(files)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no recordings in %s", path)
	}

	outputs := make([]string, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read recording: %w", err)
		}
		outputs = append(outputs, string(data))
	}
	return NewReplay(outputs...), nil
}

func (r *Replay) Name() string { return "replay" }

func (r *Replay) Health(ctx context.Context) error {
	if len(r.outputs) == 0 {
		return fmt.Errorf("%w: no recordings", ErrUnavailable)
	}
	return nil
}

// Requests returns the requests received so far.
func (r *Replay) Requests() []Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Request(nil), r.requests...)
}

func (r *Replay) Stream(ctx context.Context, req Request) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StreamError{Provider: "replay", Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.outputs) == 0 {
		return nil, fmt.Errorf("%w: no recordings", ErrUnavailable)
	}
	i := len(r.requests)
	if i >= len(r.outputs) {
		i = len(r.outputs) - 1
	}
	r.requests = append(r.requests, req)

	size := r.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &replayStream{ctx: ctx, text: r.outputs[i], size: size}, nil
}

type replayStream struct {
	ctx  context.Context
	text string
	size int
	pos  int
}

func (s *replayStream) Next() (string, bool, error) {
	if err := s.ctx.Err(); err != nil {
		return "", false, &StreamError{Provider: "replay", Err: err}
	}
	if s.pos >= len(s.text) {
		return "", true, nil
	}
	end := s.pos + s.size
	if end > len(s.text) {
		end = len(s.text)
	}
	chunk := s.text[s.pos:end]
	s.pos = end
	return chunk, false, nil
}

func (s *replayStream) Close() error { return nil }
