package database

// SQL schemas for the ClickHouse mirror of the event log

const (
	// FrameRecordsTableSQL creates the frame_records table, one row per logged cycle
	FrameRecordsTableSQL = `
		CREATE TABLE IF NOT EXISTS frame_records (
			timestamp DateTime64(3),
			session_id String,
			source_id String,
			dominant_emotion String,
			emotion_scores Map(String, Float64),
			intensity_scores Map(String, Float64),
			stress Float64,
			fps Float64,
			efficiency Float64,
			alerts String
		) ENGINE = MergeTree()
		ORDER BY (source_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// AlertEventsTableSQL creates the alert_events table, one row per triggered label
	AlertEventsTableSQL = `
		CREATE TABLE IF NOT EXISTS alert_events (
			timestamp DateTime64(3),
			event_id String,
			session_id String,
			source_id String,
			label String,
			value Float64,
			threshold Float64
		) ENGINE = MergeTree()
		ORDER BY (source_id, label, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`
)

// AllTables returns all table creation SQL statements
func AllTables() []string {
	return []string{
		FrameRecordsTableSQL,
		AlertEventsTableSQL,
	}
}
