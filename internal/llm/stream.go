package llm

import (
	"bufio"
	"io"
)

// lineStream turns a line-delimited response body into a Stream. parse is
// called for every non-empty line.
type lineStream struct {
	provider string
	body     io.ReadCloser
	scanner  *bufio.Scanner
	parse    func(line []byte) (chunk string, done bool, err error)
	finished bool
}

func newLineStream(provider string, body io.ReadCloser, parse func([]byte) (string, bool, error)) *lineStream {
	scanner := bufio.NewScanner(body)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 2*1024*1024)
	return &lineStream{provider: provider, body: body, scanner: scanner, parse: parse}
}

func (s *lineStream) Next() (string, bool, error) {
	if s.finished {
		return "", true, nil
	}
	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		chunk, done, err := s.parse(line)
		if err != nil {
			s.finished = true
			return "", false, err
		}
		if done {
			s.finished = true
			return chunk, true, nil
		}
		if chunk != "" {
			return chunk, false, nil
		}
	}
	s.finished = true
	if err := s.scanner.Err(); err != nil {
		return "", false, &StreamError{Provider: s.provider, Err: err}
	}
	return "", true, nil
}

func (s *lineStream) Close() error {
	return s.body.Close()
}
