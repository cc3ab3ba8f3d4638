package config

import (
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sanas2211/Realtime-human-intension/internal/intensity"
	"github.com/sanas2211/Realtime-human-intension/internal/models"
)

type Config struct {
	// Event log
	EventLogPath string

	// Fusion and alerting
	Thresholds         intensity.ThresholdTable
	ReferenceRateHz    float64
	UnknownLabelPolicy models.UnknownLabelPolicy

	// Service cadence
	TrendPollInterval time.Duration
	StatsInterval     time.Duration
	EfficiencyWindow  int
	FrameChannelSize  int

	// MQTT Configuration
	MQTTBroker      string
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicFrames string
	MQTTTopicAlerts string
	MQTTTopicTrend  string

	// ClickHouse Configuration
	ClickHouseEnabled bool
	ClickHouseAddr    string
	ClickHouseDB      string
	ClickHouseUser    string
	ClickHousePass    string
}

// ThresholdFile is the YAML layout of THRESHOLDS_FILE
type ThresholdFile struct {
	Thresholds map[string]float64 `yaml:"thresholds"`
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	policy, err := models.ParseUnknownLabelPolicy(getEnv("UNKNOWN_LABEL_POLICY", string(models.UnknownLog)))
	if err != nil {
		log.Printf("Warning: %v, using %q", err, policy)
	}

	referenceRate := getEnvFloat("REFERENCE_RATE_HZ", intensity.DefaultReferenceRateHz)
	if math.IsNaN(referenceRate) || math.IsInf(referenceRate, 0) || referenceRate <= 0 {
		log.Printf("Warning: REFERENCE_RATE_HZ must be a finite positive number, using default %.0f", intensity.DefaultReferenceRateHz)
		referenceRate = intensity.DefaultReferenceRateHz
	}

	return &Config{
		EventLogPath: getEnv("EVENT_LOG_PATH", "data/emotion_log.csv"),

		Thresholds:         LoadThresholds(getEnv("THRESHOLDS_FILE", "")),
		ReferenceRateHz:    referenceRate,
		UnknownLabelPolicy: policy,

		TrendPollInterval: getEnvDuration("TREND_POLL_INTERVAL", time.Second),
		StatsInterval:     getEnvDuration("STATS_INTERVAL", 10*time.Second),
		EfficiencyWindow:  getEnvInt("EFFICIENCY_WINDOW", 30),
		FrameChannelSize:  getEnvInt("FRAME_CHANNEL_SIZE", 100),

		MQTTBroker:      getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID:    getEnv("MQTT_CLIENT_ID", "affect-monitor"),
		MQTTUsername:    getEnv("MQTT_USERNAME", ""),
		MQTTPassword:    getEnv("MQTT_PASSWORD", ""),
		MQTTTopicFrames: getEnv("MQTT_TOPIC_FRAMES", "affect/+/frame"),
		MQTTTopicAlerts: getEnv("MQTT_TOPIC_ALERTS", "affect/{source_id}/alerts"),
		MQTTTopicTrend:  getEnv("MQTT_TOPIC_TREND", "affect/trend"),

		ClickHouseEnabled: getEnvBool("CLICKHOUSE_ENABLED", false),
		ClickHouseAddr:    getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:      getEnv("CLICKHOUSE_DB", "affect"),
		ClickHouseUser:    getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePass:    getEnv("CLICKHOUSE_PASS", ""),
	}
}

// LoadThresholds builds the alert table from defaults, then the optional YAML file,
// then THRESHOLD_<LABEL> environment overrides. Invalid entries are logged and skipped.
func LoadThresholds(path string) intensity.ThresholdTable {
	table := intensity.DefaultThresholds()

	if path != "" {
		fromFile, err := readThresholdFile(path)
		if err != nil {
			log.Printf("Warning: failed to load thresholds from %s, keeping defaults: %v", path, err)
		}
		for name, value := range fromFile {
			setThreshold(table, name, value, path)
		}
	}

	for _, label := range models.OrderedLabels() {
		key := "THRESHOLD_" + strings.ToUpper(string(label))
		if os.Getenv(key) == "" {
			continue
		}
		setThreshold(table, string(label), getEnvFloat(key, table[label]), key)
	}

	return table
}

func readThresholdFile(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read threshold file: %w", err)
	}
	var file ThresholdFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse threshold file: %w", err)
	}
	return file.Thresholds, nil
}

func setThreshold(table intensity.ThresholdTable, name string, value float64, source string) {
	label, ok := models.ParseLabel(name)
	if !ok {
		log.Printf("Warning: ignoring threshold for unknown label %q from %s", name, source)
		return
	}
	if !intensity.ValidThreshold(value) {
		log.Printf("Warning: ignoring threshold %s=%v from %s, must be within [0,100]", label, value, source)
		return
	}
	table[label] = value
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Warning: failed to parse %s as float, using default: %v", key, err)
		return defaultValue
	}
	return floatValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil || intValue <= 0 {
		log.Printf("Warning: failed to parse %s as positive int, using default: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as bool, using default: %v", key, err)
		return defaultValue
	}
	return boolValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil || duration <= 0 {
		log.Printf("Warning: failed to parse %s as positive duration, using default: %v", key, err)
		return defaultValue
	}
	return duration
}
