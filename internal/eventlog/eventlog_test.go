package eventlog_test

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sanas2211/Realtime-human-intension/internal/eventlog"
	"github.com/sanas2211/Realtime-human-intension/internal/models"
)

const header = "Timestamp,Dominant Emotion,Emotion Scores,Intensity Scores,FPS,Efficiency,Alerts\n"

func sampleRecord(ts time.Time, stress float64, alerts string) models.FrameRecord {
	return models.FrameRecord{
		Timestamp:  ts,
		Dominant:   "angry",
		Emotions:   models.EmotionScores{models.Angry: 80, models.Fear: 50.5, models.Sad: 20},
		Intensity:  models.IntensityMap{models.Angry: 80, models.Fear: 50.5, models.Sad: 20, models.Stress: stress},
		FPS:        14.285714,
		Efficiency: 47.62,
		Alerts:     alerts,
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}
	return string(data)
}

func TestScores_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	labels := models.OrderedLabels()

	for i := 0; i < 200; i++ {
		original := models.IntensityMap{}
		for _, label := range labels {
			if rng.Intn(2) == 0 {
				original[label] = rng.Float64() * 100
			}
		}

		text, err := eventlog.EncodeScores(original)
		if err != nil {
			t.Fatalf("Failed to encode %v: %v", original, err)
		}
		decoded, err := eventlog.DecodeScores(text)
		if err != nil {
			t.Fatalf("Failed to decode %q: %v", text, err)
		}

		if len(decoded) != len(original) {
			t.Fatalf("Expected %d keys, got %d (%q)", len(original), len(decoded), text)
		}
		for label, value := range original {
			if decoded[label] != value {
				t.Errorf("Expected %s=%v, got %v", label, value, decoded[label])
			}
		}
	}
}

func TestDecodeScores_LegacyLiteral(t *testing.T) {
	scores, err := eventlog.DecodeScores("{'angry': 80.0, 'fear': 50.25, 'stress': 51.0}")
	if err != nil {
		t.Fatalf("Expected legacy literal to decode, got: %v", err)
	}
	if scores[models.Angry] != 80 || scores[models.Fear] != 50.25 || scores[models.Stress] != 51 {
		t.Errorf("Unexpected decoded scores: %v", scores)
	}
}

func TestDecodeScores_NumpyScalars(t *testing.T) {
	scores, err := eventlog.DecodeScores("{'angry': 100.0, 'fear': np.float32(12.5), 'stress': np.float64(57.0)}")
	if err != nil {
		t.Fatalf("Expected numpy scalar literal to decode, got: %v", err)
	}
	if scores[models.Angry] != 100 || scores[models.Fear] != 12.5 || scores[models.Stress] != 57 {
		t.Errorf("Unexpected decoded scores: %v", scores)
	}
}

func TestDecodeScores_Malformed(t *testing.T) {
	for _, text := range []string{"", "null", "{'angry': np.float32()}", "{\"angry\": ", "[1,2]"} {
		if _, err := eventlog.DecodeScores(text); !errors.Is(err, eventlog.ErrMalformedRow) {
			t.Errorf("Expected ErrMalformedRow for %q, got: %v", text, err)
		}
	}
}

func TestWriter_CreatesHeaderThenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "emotion_log.csv")
	writer := eventlog.NewWriter(path)
	ts := time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local)

	if err := writer.Append(sampleRecord(ts, 51, "")); err != nil {
		t.Fatalf("First append failed: %v", err)
	}
	if err := writer.Append(sampleRecord(ts.Add(time.Second), 80, "ANGRY, STRESS")); err != nil {
		t.Fatalf("Second append failed: %v", err)
	}

	content := readFile(t, path)
	if !strings.HasPrefix(content, header) {
		t.Fatalf("Expected header as first line, got: %q", content)
	}
	if strings.Count(content, header) != 1 {
		t.Errorf("Expected exactly one header, got: %q", content)
	}

	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d lines: %q", len(lines), content)
	}
	if !strings.HasPrefix(lines[1], "2024-03-01 09:30:00,angry,") {
		t.Errorf("Unexpected first row: %q", lines[1])
	}
	if !strings.HasSuffix(lines[1], ",14.29,47.62,") {
		t.Errorf("Expected rounded fps and empty alerts, got: %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], `,"ANGRY, STRESS"`) {
		t.Errorf("Expected quoted alerts column, got: %q", lines[2])
	}
}

func TestWriter_RejectsEmptyDetection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	writer := eventlog.NewWriter(path)

	record := sampleRecord(time.Now(), 10, "")
	record.Intensity = models.IntensityMap{}
	if err := writer.Append(record); !errors.Is(err, eventlog.ErrEmptyRecord) {
		t.Errorf("Expected ErrEmptyRecord for empty intensity, got: %v", err)
	}

	record = sampleRecord(time.Now(), 10, "")
	record.Dominant = ""
	if err := writer.Append(record); !errors.Is(err, eventlog.ErrEmptyRecord) {
		t.Errorf("Expected ErrEmptyRecord for missing dominant emotion, got: %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected no log file to be created, stat err: %v", err)
	}
}

func TestWriter_IsolatesTornRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	writer := eventlog.NewWriter(path)
	ts := time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local)

	if err := writer.Append(sampleRecord(ts, 40, "")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// Simulate a write interrupted halfway through a row
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("Failed to open log: %v", err)
	}
	if _, err := f.WriteString(`2024-03-01 09:30:01,angry,"{""angry"":8`); err != nil {
		t.Fatalf("Failed to write torn row: %v", err)
	}
	f.Close()

	if err := writer.Append(sampleRecord(ts.Add(2*time.Second), 30, "")); err != nil {
		t.Fatalf("Append after torn row failed: %v", err)
	}

	trend, err := eventlog.NewReader(path).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if trend.Rows != 2 || trend.Skipped != 1 {
		t.Fatalf("Expected 2 rows and 1 skipped, got rows=%d skipped=%d", trend.Rows, trend.Skipped)
	}
	if got := trend.Series[models.Stress]; got[0] != 40 || got[1] != 30 {
		t.Errorf("Unexpected stress series: %v", got)
	}
}

func TestReader_MissingFile(t *testing.T) {
	trend, err := eventlog.NewReader(filepath.Join(t.TempDir(), "absent.csv")).Load()
	if err != nil {
		t.Fatalf("Expected no error for a missing log, got: %v", err)
	}
	if trend.Rows != 0 || trend.LatestAlerts != "" {
		t.Errorf("Expected empty trend, got rows=%d alerts=%q", trend.Rows, trend.LatestAlerts)
	}
	for _, label := range models.Vocabulary {
		if len(trend.Series[label]) != 0 {
			t.Errorf("Expected empty %s series, got: %v", label, trend.Series[label])
		}
	}
}

func TestReader_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	trend, err := eventlog.NewReader(path).Load()
	if err != nil {
		t.Fatalf("Expected no error for an empty log, got: %v", err)
	}
	if trend.Rows != 0 || trend.Skipped != 0 || trend.LatestAlerts != "" {
		t.Errorf("Expected empty trend, got: %+v", trend)
	}
}

func TestReader_SkipsCorruptRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	content := header +
		`2024-03-01 09:30:00,angry,"{""angry"":80}","{""angry"":80,""stress"":32}",12.5,41.67,` + "\n" +
		`2024-03-01 09:30:01,fear,"{""fear"":90}","{""fear"": oops}",12.5,41.67,FEAR` + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write log: %v", err)
	}

	trend, err := eventlog.NewReader(path).Load()
	if err != nil {
		t.Fatalf("Expected corrupt row to be skipped, got: %v", err)
	}
	if trend.Rows != 1 || trend.Skipped != 1 {
		t.Fatalf("Expected 1 row and 1 skipped, got rows=%d skipped=%d", trend.Rows, trend.Skipped)
	}
	if got := trend.Series[models.Angry]; len(got) != 1 || got[0] != 80 {
		t.Errorf("Unexpected angry series: %v", got)
	}
	if got := trend.Series[models.Fear]; len(got) != 1 || got[0] != 0 {
		t.Errorf("Expected fear to default to 0, got: %v", got)
	}
	if trend.LatestAlerts != "" {
		t.Errorf("Expected latest alerts from the well-formed row, got: %q", trend.LatestAlerts)
	}
}

func TestReader_RoundTripsWriterOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	writer := eventlog.NewWriter(path)
	ts := time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local)

	for i, stress := range []float64{40, 76, 30} {
		alerts := ""
		if stress >= 75 {
			alerts = "STRESS"
		}
		if err := writer.Append(sampleRecord(ts.Add(time.Duration(i)*time.Second), stress, alerts)); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	trend, err := eventlog.NewReader(path).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	expected := []float64{40, 76, 30}
	got := trend.Series[models.Stress]
	if len(got) != len(expected) {
		t.Fatalf("Expected %d stress values, got: %v", len(expected), got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Stress[%d]: expected %v, got %v", i, expected[i], got[i])
		}
	}
	if got := trend.Series[models.Happy]; len(got) != 3 || got[0] != 0 {
		t.Errorf("Expected happy to default to 0 per row, got: %v", got)
	}
	if !trend.Timestamps[2].Equal(ts.Add(2 * time.Second)) {
		t.Errorf("Unexpected last timestamp: %v", trend.Timestamps[2])
	}
	if trend.LatestAlerts != "" {
		t.Errorf("Expected empty latest alerts, got: %q", trend.LatestAlerts)
	}
}

func TestReader_UnterminatedLastLine(t *testing.T) {
	dir := t.TempDir()
	good := `2024-03-01 09:30:00,sad,"{""sad"":90}","{""sad"":90,""stress"":18}",30,100,SAD`

	complete := filepath.Join(dir, "complete.csv")
	if err := os.WriteFile(complete, []byte(header+good), 0o644); err != nil {
		t.Fatalf("Failed to write log: %v", err)
	}
	trend, err := eventlog.NewReader(complete).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if trend.Rows != 1 || trend.LatestAlerts != "SAD" {
		t.Errorf("Expected final row without newline to be read, got rows=%d alerts=%q", trend.Rows, trend.LatestAlerts)
	}

	torn := filepath.Join(dir, "torn.csv")
	if err := os.WriteFile(torn, []byte(header+good+"\n"+`2024-03-01 09:30:01,sad,"{""sad"":9`), 0o644); err != nil {
		t.Fatalf("Failed to write log: %v", err)
	}
	trend, err = eventlog.NewReader(torn).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if trend.Rows != 1 || trend.LatestAlerts != "SAD" {
		t.Errorf("Expected torn final line to be dropped, got rows=%d alerts=%q", trend.Rows, trend.LatestAlerts)
	}
}

func TestReader_ResolvesColumnsByName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	content := "Session,Timestamp,Alerts,Intensity Scores\n" +
		`abc,2024-03-01 09:30:00,ANGRY,"{""angry"":71}"` + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write log: %v", err)
	}

	trend, err := eventlog.NewReader(path).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if trend.Rows != 1 || trend.Series[models.Angry][0] != 71 || trend.LatestAlerts != "ANGRY" {
		t.Errorf("Unexpected trend from reordered columns: %+v", trend)
	}
}

func TestTail_IncrementalPolls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	writer := eventlog.NewWriter(path)
	tail := eventlog.NewTail(path)
	ts := time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local)

	trend, err := tail.Poll()
	if err != nil || trend.Rows != 0 {
		t.Fatalf("Expected empty trend before the log exists, got rows=%d err=%v", trend.Rows, err)
	}

	if err := writer.Append(sampleRecord(ts, 40, "")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	trend, err = tail.Poll()
	if err != nil || trend.Rows != 1 {
		t.Fatalf("Expected 1 row, got rows=%d err=%v", trend.Rows, err)
	}

	// A half-written row is left for the next poll
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("Failed to open log: %v", err)
	}
	partial := `2024-03-01 09:30:01,angry,"{""angry"":80}","{""angry"":80,""stress"":76}"`
	if _, err := f.WriteString(partial); err != nil {
		t.Fatalf("Failed to write partial row: %v", err)
	}
	offset := tail.Offset()
	trend, err = tail.Poll()
	if err != nil || trend.Rows != 1 || tail.Offset() != offset {
		t.Fatalf("Expected partial row to stay pending, got rows=%d offset=%d err=%v", trend.Rows, tail.Offset(), err)
	}

	if _, err := f.WriteString(",14.29,47.62,STRESS\n"); err != nil {
		t.Fatalf("Failed to finish row: %v", err)
	}
	f.Close()

	trend, err = tail.Poll()
	if err != nil || trend.Rows != 2 || trend.LatestAlerts != "STRESS" {
		t.Fatalf("Expected completed row to be read, got rows=%d alerts=%q err=%v", trend.Rows, trend.LatestAlerts, err)
	}
	if got := trend.Series[models.Stress]; got[0] != 40 || got[1] != 76 {
		t.Errorf("Unexpected stress series: %v", got)
	}
}

func TestTail_ResetsAfterTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	writer := eventlog.NewWriter(path)
	tail := eventlog.NewTail(path)
	ts := time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local)

	for i := 0; i < 3; i++ {
		if err := writer.Append(sampleRecord(ts, float64(10*i), "")); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	if trend, err := tail.Poll(); err != nil || trend.Rows != 3 {
		t.Fatalf("Expected 3 rows, got err=%v", err)
	}

	// External rotation replaces the log with a fresh one
	if err := os.Remove(path); err != nil {
		t.Fatalf("Failed to remove log: %v", err)
	}
	if err := writer.Append(sampleRecord(ts, 99, "STRESS")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	trend, err := tail.Poll()
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if trend.Rows != 1 || trend.Series[models.Stress][0] != 99 {
		t.Errorf("Expected tail to restart on the rotated log, got rows=%d series=%v", trend.Rows, trend.Series[models.Stress])
	}
}

func TestSummarize(t *testing.T) {
	trend := eventlog.NewTrend()
	trend.Series[models.Stress] = []float64{10, 20, 30}
	trend.Series[models.Angry] = []float64{42}

	summaries := eventlog.Summarize(trend)

	stress := summaries[models.Stress]
	if stress.Mean != 20 || stress.StdDev != 10 || stress.Max != 30 || stress.Last != 30 {
		t.Errorf("Unexpected stress summary: %+v", stress)
	}
	if angry := summaries[models.Angry]; angry.Mean != 42 || angry.StdDev != 0 {
		t.Errorf("Unexpected single-sample summary: %+v", angry)
	}
	if happy := summaries[models.Happy]; happy != (models.SeriesSummary{}) {
		t.Errorf("Expected zero summary for an empty series, got: %+v", happy)
	}
}
