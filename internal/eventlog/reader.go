package eventlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/sanas2211/Realtime-human-intension/internal/models"
)

// Trend is the viewer's reconstruction of the event log
type Trend struct {
	Series       map[models.Label][]float64 // One value per row, in file order
	Timestamps   []time.Time                // Zero when a row's timestamp is unreadable
	LatestAlerts string                     // Alert field of the last well-formed row
	Rows         int                        // Well-formed rows
	Skipped      int                        // Malformed rows that were dropped
}

// NewTrend returns an empty trend with a series for every charted label
func NewTrend() *Trend {
	series := make(map[models.Label][]float64, len(models.Vocabulary)+1)
	for _, label := range models.OrderedLabels() {
		series[label] = []float64{}
	}
	return &Trend{Series: series, Timestamps: []time.Time{}}
}

// Clone returns a deep copy that is safe to hand to another goroutine
func (t *Trend) Clone() *Trend {
	out := &Trend{
		Series:       make(map[models.Label][]float64, len(t.Series)),
		Timestamps:   append([]time.Time{}, t.Timestamps...),
		LatestAlerts: t.LatestAlerts,
		Rows:         t.Rows,
		Skipped:      t.Skipped,
	}
	for label, values := range t.Series {
		out.Series[label] = append([]float64{}, values...)
	}
	return out
}

func (t *Trend) add(r row) {
	for label := range t.Series {
		t.Series[label] = append(t.Series[label], r.intensity[label])
	}
	t.Timestamps = append(t.Timestamps, r.timestamp)
	t.LatestAlerts = r.alerts
	t.Rows++
}

// Reader loads the whole event log on every call
type Reader struct {
	path string
}

// NewReader creates a reader for the log at path
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// Load reads the full log. A missing or empty file is an empty trend, not an error.
// Malformed rows are skipped and counted; an unterminated last line is kept only if it parses.
func (r *Reader) Load() (*Trend, error) {
	trend := NewTrend()

	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return trend, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read event log %s: %w", r.path, err)
	}

	text := string(data)
	terminated := strings.HasSuffix(text, "\n")
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")

	dec := newDecoder()
	for i, line := range lines {
		partial := !terminated && i == len(lines)-1
		dec.consume(line, partial, trend)
	}
	return trend, nil
}

// columns holds the position of each field the reader needs
type columns struct {
	timestamp int
	intensity int
	alerts    int
}

var defaultColumns = columns{timestamp: 0, intensity: 3, alerts: 6}

type row struct {
	timestamp time.Time
	intensity map[models.Label]float64
	alerts    string
}

// decoder turns log lines into rows, tracking header state across calls
type decoder struct {
	cols    columns
	started bool
	lineNo  int
}

func newDecoder() *decoder {
	return &decoder{cols: defaultColumns}
}

// consume handles one line without its terminator. partial marks a final line
// with no newline, which is dropped quietly when it does not parse.
func (d *decoder) consume(line string, partial bool, trend *Trend) {
	d.lineNo++
	line = strings.TrimSuffix(line, "\r")
	if strings.TrimSpace(line) == "" {
		return
	}

	fields, err := splitFields(line)
	if err == nil && !d.started {
		d.started = true
		if isHeader(fields) {
			d.cols = resolveColumns(fields)
			return
		}
		log.Printf("TrendReader: Event log has no header, using default column layout")
	}

	var r row
	if err == nil {
		r, err = d.parse(fields)
	}
	if err != nil {
		if partial {
			log.Printf("TrendReader: Dropping unterminated last line %d", d.lineNo)
		} else {
			log.Printf("TrendReader: Skipping line %d: %v", d.lineNo, err)
		}
		trend.Skipped++
		return
	}
	trend.add(r)
}

func (d *decoder) parse(fields []string) (row, error) {
	if d.cols.intensity >= len(fields) {
		return row{}, fmt.Errorf("%w: %d fields, intensity column missing", ErrMalformedRow, len(fields))
	}

	intensity, err := DecodeScores(fields[d.cols.intensity])
	if err != nil {
		return row{}, err
	}

	r := row{intensity: intensity}
	if d.cols.timestamp >= 0 && d.cols.timestamp < len(fields) {
		if ts, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(fields[d.cols.timestamp]), time.Local); err == nil {
			r.timestamp = ts
		}
	}
	if d.cols.alerts >= 0 && d.cols.alerts < len(fields) {
		r.alerts = fields[d.cols.alerts]
	}
	return r, nil
}

func isHeader(fields []string) bool {
	for _, name := range fields {
		if strings.TrimSpace(name) == ColumnIntensity {
			return true
		}
	}
	return false
}

// resolveColumns maps header names to positions so added columns do not break old readers
func resolveColumns(header []string) columns {
	cols := columns{timestamp: -1, intensity: -1, alerts: -1}
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case ColumnTimestamp:
			cols.timestamp = i
		case ColumnIntensity:
			cols.intensity = i
		case ColumnAlerts:
			cols.alerts = i
		}
	}
	return cols
}

func splitFields(line string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.FieldsPerRecord = -1
	fields, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	return fields, nil
}
