package route

import (
	"io"
	"os"
	"sync"
)

// LineWriter serialises whole lines onto one stream shared by every worker.
type LineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{w: w}
}

// Stdout is the channel read by the routing daemon.
var Stdout = NewLineWriter(os.Stdout)

// WriteLine writes s and a newline in a single Write call and flushes
// buffered writers.
func (l *LineWriter) WriteLine(s string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.w.Write([]byte(s + "\n")); err != nil {
		return err
	}
	if f, ok := l.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
