package eventlog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Tail reads the event log incrementally. Each Poll consumes only complete lines
// appended since the previous poll; an unterminated last line waits for the next one.
type Tail struct {
	path string

	mu     sync.Mutex
	offset int64
	dec    *decoder
	trend  *Trend
}

// NewTail creates an incremental reader for the log at path
func NewTail(path string) *Tail {
	t := &Tail{path: path}
	t.reset()
	return t
}

func (t *Tail) reset() {
	t.offset = 0
	t.dec = newDecoder()
	t.trend = NewTrend()
}

// Poll reads newly appended rows and returns a copy of the accumulated trend.
// A missing file yields an empty trend; a file shorter than the last offset is
// treated as rotated and re-read from the start.
func (t *Tail) Poll() (*Trend, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.path)
	if errors.Is(err, os.ErrNotExist) {
		if t.offset > 0 {
			log.Printf("TrendReader: Event log %s disappeared, resetting", t.path)
		}
		t.reset()
		return t.trend.Clone(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open event log %s: %w", t.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat event log %s: %w", t.path, err)
	}
	if info.Size() < t.offset {
		log.Printf("TrendReader: Event log %s shrank from %d to %d bytes, re-reading", t.path, t.offset, info.Size())
		t.reset()
	}
	if info.Size() == t.offset {
		return t.trend.Clone(), nil
	}

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek event log %s: %w", t.path, err)
	}
	data, err := io.ReadAll(io.LimitReader(f, info.Size()-t.offset))
	if err != nil {
		return nil, fmt.Errorf("failed to read event log %s: %w", t.path, err)
	}

	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		return t.trend.Clone(), nil
	}

	for _, line := range bytes.Split(data[:end], []byte{'\n'}) {
		t.dec.consume(string(line), false, t.trend)
	}
	t.offset += int64(end + 1)

	return t.trend.Clone(), nil
}

// Offset returns how many bytes of the log have been consumed
func (t *Tail) Offset() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.offset
}
