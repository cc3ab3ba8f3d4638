package eventlog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/sanas2211/Realtime-human-intension/internal/models"
)

// ErrEmptyRecord is returned when a record has no dominant emotion or no intensities.
// Cycles without a detection are skipped by the caller, never logged.
var ErrEmptyRecord = errors.New("record has no detection")

// Writer appends frame records to the event log file
type Writer struct {
	path string
	mu   sync.Mutex
}

// NewWriter creates a writer for the log at path. Nothing is touched on disk
// until the first Append.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Path returns the log file location
func (w *Writer) Path() string {
	return w.path
}

// Append writes exactly one row. The file is opened and closed around the write;
// a new or empty file gets the header first.
func (w *Writer) Append(record models.FrameRecord) (err error) {
	if strings.TrimSpace(record.Dominant) == "" || len(record.Intensity) == 0 {
		return ErrEmptyRecord
	}

	row, err := encodeRow(record)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if dir := filepath.Dir(w.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(w.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open event log %s: %w", w.path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close event log %s: %w", w.path, cerr)
		}
	}()

	prefix, err := rowPrefix(f)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString(prefix)
	buf.Write(row)

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to append to event log %s: %w", w.path, err)
	}
	return nil
}

// rowPrefix returns what must precede the next row: the header for an empty file,
// a line break when the last row was torn by an interrupted write, or nothing.
func rowPrefix(f *os.File) (string, error) {
	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat event log: %w", err)
	}
	if info.Size() == 0 {
		line, err := csvLine(Header)
		if err != nil {
			return "", err
		}
		return string(line), nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read event log tail: %w", err)
	}
	if last[0] != '\n' {
		return "\n", nil
	}
	return "", nil
}

func encodeRow(record models.FrameRecord) ([]byte, error) {
	emotions, err := EncodeScores(record.Emotions)
	if err != nil {
		return nil, err
	}
	intensity, err := EncodeScores(record.Intensity)
	if err != nil {
		return nil, err
	}

	return csvLine([]string{
		record.Timestamp.Local().Format(TimestampLayout),
		singleLine(record.Dominant),
		emotions,
		intensity,
		formatNumber(record.FPS),
		formatNumber(record.Efficiency),
		singleLine(record.Alerts),
	})
}

func csvLine(fields []string) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(fields); err != nil {
		return nil, fmt.Errorf("failed to encode row: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("failed to encode row: %w", err)
	}
	return buf.Bytes(), nil
}

// formatNumber writes a value rounded to 2 decimals without trailing zeros
func formatNumber(v float64) string {
	rounded := strconv.FormatFloat(v, 'f', 2, 64)
	parsed, err := strconv.ParseFloat(rounded, 64)
	if err != nil {
		return rounded
	}
	return strconv.FormatFloat(parsed, 'f', -1, 64)
}

// singleLine keeps one record on one line so readers can split on newlines
func singleLine(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}
