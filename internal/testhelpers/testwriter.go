// Package testhelpers routes logs into the test output.
package testhelpers

import (
	"bytes"
	"io"
	"sync/atomic"
	"testing"
)

// Writer writes every line it receives with t.Log, so logs only show up for failing or verbose tests.
type Writer struct {
	t    testing.TB
	done atomic.Bool
}

// NewWriter creates a Writer for t. Writing after t has finished panics, which points at goroutines such as servers
// that outlive their test.
func NewWriter(t testing.TB) io.Writer {
	w := &Writer{t: t, done: atomic.Bool{}}
	t.Cleanup(func() { w.done.Store(true) })
	return w
}

func (w *Writer) Write(p []byte) (int, error) {
	if w.done.Load() {
		panic("testhelpers: write after the test finished, is the server shut down in t.Cleanup?")
	}
	for line := range bytes.Lines(p) {
		if line = bytes.TrimRight(line, "\n"); len(line) > 0 {
			w.t.Log(string(line))
		}
	}
	return len(p), nil
}
