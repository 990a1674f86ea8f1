// Package textsource provides the input abstraction the parser reads
// from: a named byte stream that can be read in bounded chunks and
// disposed. Sources are assumed resident; reads never wait on external
// I/O beyond the local filesystem.
package textsource

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/samber/oops"
)

// Source is a named byte stream. Read fills p with up to len(p) bytes
// and reports io.EOF on exhaustion; Close releases whatever the source
// holds. Both may be called more than once.
type Source interface {
	io.ReadCloser
	Name() string
}

type stringSource struct {
	name string
	r    *strings.Reader
}

// NewString wraps an in-memory string. The name may be empty for
// inline inclusions that should not carry their own position.
func NewString(name, text string) Source {
	return &stringSource{name: name, r: strings.NewReader(text)}
}

func (s *stringSource) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *stringSource) Close() error               { return nil }
func (s *stringSource) Name() string               { return s.name }

type bytesSource struct {
	name string
	r    *bytes.Reader
}

// NewBytes wraps an in-memory byte slice. The source iterates over the
// caller's bytes without copying them.
func NewBytes(name string, data []byte) Source {
	return &bytesSource{name: name, r: bytes.NewReader(data)}
}

func (s *bytesSource) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *bytesSource) Close() error               { return nil }
func (s *bytesSource) Name() string               { return s.name }

type readerSource struct {
	name string
	r    io.Reader
}

// NewReader wraps an arbitrary reader. Close closes the reader when it
// supports it.
func NewReader(name string, r io.Reader) Source {
	return &readerSource{name: name, r: r}
}

func (s *readerSource) Read(p []byte) (int, error) { return s.r.Read(p) }

func (s *readerSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

func (s *readerSource) Name() string { return s.name }

// fileSource opens lazily, so building a parse pipeline never touches
// the filesystem before the first read.
type fileSource struct {
	path string
	file *os.File
	err  error
}

// NewFile reads from the file at path, opened on first Read.
func NewFile(path string) Source {
	return &fileSource{path: path}
}

func (s *fileSource) Read(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}

	if s.file == nil {
		file, err := os.Open(s.path)
		if err != nil {
			s.err = oops.
				Code("SOURCE_OPEN_FAILED").
				With("path", s.path).
				Hint("Check that the input file exists and is readable").
				Wrapf(err, "opening text source %q", s.path)

			return 0, s.err
		}

		s.file = file
	}

	return s.file.Read(p)
}

func (s *fileSource) Close() error {
	if s.file == nil {
		return nil
	}

	file := s.file
	s.file = nil

	if err := file.Close(); err != nil {
		return oops.Wrapf(err, "closing text source %q", s.path)
	}

	return nil
}

func (s *fileSource) Name() string { return s.path }
