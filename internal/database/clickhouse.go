package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/sanas2211/Realtime-human-intension/internal/models"
)

type ClickHouseDB struct {
	conn driver.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(addr, database, username, password string) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	log.Printf("Connected to ClickHouse at %s", addr)

	db := &ClickHouseDB{conn: conn}

	// Initialize schema
	if err := db.InitSchema(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// InitSchema creates the necessary tables if they don't exist
func (db *ClickHouseDB) InitSchema(ctx context.Context) error {
	for _, tableSQL := range AllTables() {
		if err := db.conn.Exec(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	log.Println("Database schema initialized successfully")
	return nil
}

// SaveFrame mirrors one event log row into frame_records
func (db *ClickHouseDB) SaveFrame(ctx context.Context, sessionID, sourceID string, record models.FrameRecord) error {
	query := `
		INSERT INTO frame_records (timestamp, session_id, source_id, dominant_emotion, emotion_scores,
			intensity_scores, stress, fps, efficiency, alerts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		record.Timestamp,
		sessionID,
		sourceID,
		record.Dominant,
		labelMap(record.Emotions),
		labelMap(record.Intensity),
		record.Intensity[models.Stress],
		record.FPS,
		record.Efficiency,
		record.Alerts,
	)

	if err != nil {
		return fmt.Errorf("failed to insert frame record: %w", err)
	}

	return nil
}

// SaveAlertEvent writes one alert_events row per triggered label in a single batch
func (db *ClickHouseDB) SaveAlertEvent(ctx context.Context, event *models.AlertEvent) error {
	if len(event.Alerts) == 0 {
		return nil
	}

	batch, err := db.conn.PrepareBatch(ctx, `INSERT INTO alert_events`)
	if err != nil {
		return fmt.Errorf("failed to prepare alert batch: %w", err)
	}

	for _, alert := range event.Alerts {
		if err := batch.Append(
			event.Timestamp,
			event.EventID,
			event.SessionID,
			event.SourceID,
			string(alert.Label),
			alert.Value,
			alert.Threshold,
		); err != nil {
			return fmt.Errorf("failed to append alert %s: %w", alert.Label, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to insert alert events: %w", err)
	}

	return nil
}

// Close closes the ClickHouse connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		if err := db.conn.Close(); err != nil {
			return fmt.Errorf("failed to close ClickHouse connection: %w", err)
		}
		log.Println("ClickHouse connection closed")
	}
	return nil
}

// labelMap converts a label-keyed map into the Map(String, Float64) column form
func labelMap[M ~map[models.Label]float64](scores M) map[string]float64 {
	out := make(map[string]float64, len(scores))
	for label, value := range scores {
		out[string(label)] = value
	}
	return out
}
