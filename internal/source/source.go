package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/didar67/enterprise-log-file-analyzer/internal/model"
)

const (
	defaultBufferSize = 1024
	// maxLineSize bounds memory per line regardless of file size.
	maxLineSize = 1 << 20
)

// IOError reports a failure to open or read the source file.
type IOError struct {
	Path string
	Op   string // "open" or "read"
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Source streams the lines of a single file.
type Source struct {
	path     string
	bufSize  int
	maxLines int
}

// Option configures a Source.
type Option func(*Source)

// WithBufferSize sets the read buffer size. Non-positive values are ignored.
func WithBufferSize(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.bufSize = n
		}
	}
}

// WithMaxLines stops the stream after n lines. Zero means no limit.
func WithMaxLines(n int) Option {
	return func(s *Source) {
		if n >= 0 {
			s.maxLines = n
		}
	}
}

// New creates a Source for the file at path. The file is not opened until
// Lines is iterated.
func New(path string, opts ...Option) *Source {
	s := &Source{path: path, bufSize: defaultBufferSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the file the source reads.
func (s *Source) Path() string {
	return s.path
}

// Lines returns a sequence of trimmed lines, numbered from 1. Every iteration
// reopens the file and starts from the beginning. A line longer than
// maxLineSize is cut to its first maxLineSize bytes and the rest is skipped.
// An open or read failure is yielded once as an *IOError and ends the
// sequence; a cancelled context ends it with ctx.Err(). The file is closed
// whenever iteration stops.
func (s *Source) Lines(ctx context.Context) iter.Seq2[model.LogLine, error] {
	return func(yield func(model.LogLine, error) bool) {
		f, err := os.Open(s.path)
		if err != nil {
			yield(model.LogLine{}, &IOError{Path: s.path, Op: "open", Err: err})
			return
		}
		defer f.Close()

		r := bufio.NewReaderSize(f, min(s.bufSize, maxLineSize))
		var buf []byte

		n := 0
		for {
			frag, isPrefix, err := r.ReadLine()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(model.LogLine{}, &IOError{Path: s.path, Op: "read", Err: err})
				return
			}
			if room := maxLineSize - len(buf); room > 0 {
				buf = append(buf, frag[:min(len(frag), room)]...)
			}
			if isPrefix {
				continue
			}

			if err := ctx.Err(); err != nil {
				yield(model.LogLine{}, err)
				return
			}
			if s.maxLines > 0 && n >= s.maxLines {
				return
			}
			n++
			line := model.LogLine{Number: n, Text: strings.TrimSpace(string(buf))}
			buf = buf[:0]
			if !yield(line, nil) {
				return
			}
		}
	}
}
