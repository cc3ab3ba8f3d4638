package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sanas2211/Realtime-human-intension/internal/intensity"
	"github.com/sanas2211/Realtime-human-intension/internal/models"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.EventLogPath != "data/emotion_log.csv" {
		t.Errorf("Unexpected default log path: %s", cfg.EventLogPath)
	}
	if cfg.ReferenceRateHz != 30 {
		t.Errorf("Expected default reference rate 30, got: %v", cfg.ReferenceRateHz)
	}
	if cfg.UnknownLabelPolicy != models.UnknownLog {
		t.Errorf("Expected default policy log, got: %s", cfg.UnknownLabelPolicy)
	}
	if cfg.TrendPollInterval != time.Second {
		t.Errorf("Expected 1s poll interval, got: %v", cfg.TrendPollInterval)
	}
	if cfg.Thresholds[models.Stress] != 75 || cfg.Thresholds[models.Angry] != 70 {
		t.Errorf("Unexpected default thresholds: %v", cfg.Thresholds)
	}
	if cfg.ClickHouseEnabled {
		t.Error("Expected ClickHouse mirror to be disabled by default")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("EVENT_LOG_PATH", "/tmp/affect.csv")
	t.Setenv("REFERENCE_RATE_HZ", "15")
	t.Setenv("UNKNOWN_LABEL_POLICY", "reject")
	t.Setenv("TREND_POLL_INTERVAL", "250ms")
	t.Setenv("EFFICIENCY_WINDOW", "not-a-number")
	t.Setenv("CLICKHOUSE_ENABLED", "true")

	cfg := Load()

	if cfg.EventLogPath != "/tmp/affect.csv" || cfg.ReferenceRateHz != 15 {
		t.Errorf("Unexpected overrides: path=%s rate=%v", cfg.EventLogPath, cfg.ReferenceRateHz)
	}
	if cfg.UnknownLabelPolicy != models.UnknownReject {
		t.Errorf("Expected reject policy, got: %s", cfg.UnknownLabelPolicy)
	}
	if cfg.TrendPollInterval != 250*time.Millisecond {
		t.Errorf("Expected 250ms poll interval, got: %v", cfg.TrendPollInterval)
	}
	if cfg.EfficiencyWindow != 30 {
		t.Errorf("Expected invalid window to fall back to 30, got: %d", cfg.EfficiencyWindow)
	}
	if !cfg.ClickHouseEnabled {
		t.Error("Expected ClickHouse mirror to be enabled")
	}
}

func TestLoad_NonPositiveReferenceRate(t *testing.T) {
	t.Setenv("REFERENCE_RATE_HZ", "0")
	if cfg := Load(); cfg.ReferenceRateHz != 30 {
		t.Errorf("Expected fallback to 30 Hz, got: %v", cfg.ReferenceRateHz)
	}
}

func TestLoadThresholds_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	content := `thresholds:
  stress: 65
  Fear: 55
  disgust: 90
  boredom: 10
  angry: 140
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write threshold file: %v", err)
	}
	t.Setenv("THRESHOLD_STRESS", "72.5")

	table := LoadThresholds(path)

	if table[models.Stress] != 72.5 {
		t.Errorf("Expected env to override file for stress, got: %v", table[models.Stress])
	}
	if table[models.Fear] != 55 || table[models.Disgust] != 90 {
		t.Errorf("Expected file values for fear and disgust, got: %v", table)
	}
	if table[models.Angry] != 70 {
		t.Errorf("Expected out-of-range angry to keep default 70, got: %v", table[models.Angry])
	}
	if _, ok := table["boredom"]; ok {
		t.Error("Expected unknown label to be ignored")
	}
	if err := table.Validate(); err != nil {
		t.Errorf("Expected loaded table to validate, got: %v", err)
	}
}

func TestLoadThresholds_RejectsNonFinite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	if err := os.WriteFile(path, []byte("thresholds:\n  fear: .nan\n  sad: .inf\n"), 0o644); err != nil {
		t.Fatalf("Failed to write threshold file: %v", err)
	}
	t.Setenv("THRESHOLD_STRESS", "NaN")
	t.Setenv("THRESHOLD_ANGRY", "+Inf")

	table := LoadThresholds(path)

	expected := intensity.DefaultThresholds()
	for label, value := range expected {
		if table[label] != value {
			t.Errorf("Expected %s to keep default %v, got: %v", label, value, table[label])
		}
	}
	if err := table.Validate(); err != nil {
		t.Errorf("Expected loaded table to validate, got: %v", err)
	}
	if alerts := intensity.Evaluate(models.IntensityMap{models.Stress: 100}, table); len(alerts) != 1 {
		t.Errorf("Expected stress alert at 100, got: %v", alerts)
	}
}

func TestLoad_NonFiniteReferenceRate(t *testing.T) {
	for _, v := range []string{"NaN", "Inf"} {
		t.Setenv("REFERENCE_RATE_HZ", v)
		if cfg := Load(); cfg.ReferenceRateHz != 30 {
			t.Errorf("REFERENCE_RATE_HZ=%s: expected fallback to 30 Hz, got: %v", v, cfg.ReferenceRateHz)
		}
	}
}

func TestLoadThresholds_MissingFileKeepsDefaults(t *testing.T) {
	table := LoadThresholds(filepath.Join(t.TempDir(), "absent.yaml"))
	if len(table) != 4 || table[models.Sad] != 80 {
		t.Errorf("Expected default thresholds, got: %v", table)
	}
}
