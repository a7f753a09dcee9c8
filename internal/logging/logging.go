// Package logging builds the zerolog loggers used across the process.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const permission = 0664

// New returns a logger writing to w at the given level ("debug", "info",
// ...; empty means info). pretty selects the human-readable console format.
func New(w io.Writer, level string, pretty bool) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		var err error
		lvl, err = zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
		}
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// File is a logger appending JSON lines to a file.
type File struct {
	zerolog.Logger
	f *os.File
}

// OpenFile opens (or creates) path for appending and logs to it.
func OpenFile(path, level string) (*File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log, err := New(zerolog.SyncWriter(f), level, false)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &File{Logger: log, f: f}, nil
}

// Close closes the underlying file.
func (l *File) Close() error {
	return l.f.Close()
}
