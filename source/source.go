// Package source supplies captured symbol strings to a receiver.
//
// A Source yields one raw string per call. Where the strings come from (a
// capture file, a queue, a QR detector over camera frames) is the source's
// concern; parsing happens downstream.
package source

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// MaxLineSize bounds a single captured symbol line.
const MaxLineSize = 1 << 20

// Source yields captured symbol strings.
type Source interface {
	// Next returns the next string. It returns io.EOF when the source is
	// exhausted and ctx.Err() when ctx is done.
	Next(ctx context.Context) (string, error)
}

// LineSource reads one symbol per line. Blank lines are skipped and a
// trailing carriage return is removed.
type LineSource struct {
	scanner *bufio.Scanner
}

// NewLineSource wraps r.
func NewLineSource(r io.Reader) *LineSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return &LineSource{scanner: sc}
}

// Next implements Source.
func (s *LineSource) Next(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		line := strings.TrimRight(s.scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		return line, nil
	}
}

// SliceSource yields a fixed list of strings.
type SliceSource struct {
	items []string
	pos   int
}

// NewSliceSource returns a source over items.
func NewSliceSource(items []string) *SliceSource {
	return &SliceSource{items: items}
}

// Next implements Source.
func (s *SliceSource) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.pos >= len(s.items) {
		return "", io.EOF
	}
	item := s.items[s.pos]
	s.pos++
	return item, nil
}

var (
	_ Source = (*LineSource)(nil)
	_ Source = (*SliceSource)(nil)
)
