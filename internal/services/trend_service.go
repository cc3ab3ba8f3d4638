package services

import (
	"context"
	"log"
	"time"

	"github.com/sanas2211/Realtime-human-intension/internal/eventlog"
	"github.com/sanas2211/Realtime-human-intension/internal/models"
)

// TrendService polls the event log and publishes trend snapshots for the viewer.
// It only reads the log; a failed poll is logged and retried on the next tick.
type TrendService struct {
	tail *eventlog.Tail

	pollingInterval time.Duration
	now             func() time.Time

	// Output channel for trend snapshots
	SnapshotChan chan models.TrendSnapshot

	lastRows    int
	lastSkipped int
}

// TrendServiceConfig holds configuration for trend service
type TrendServiceConfig struct {
	LogPath         string
	PollingInterval time.Duration
	ChannelSize     int
}

// DefaultTrendServiceConfig returns default configuration
func DefaultTrendServiceConfig() TrendServiceConfig {
	return TrendServiceConfig{
		LogPath:         "data/emotion_log.csv",
		PollingInterval: time.Second,
		ChannelSize:     10,
	}
}

// NewTrendService creates a new trend service
func NewTrendService(config TrendServiceConfig) *TrendService {
	if config.PollingInterval <= 0 {
		config.PollingInterval = time.Second
	}
	return &TrendService{
		tail:            eventlog.NewTail(config.LogPath),
		pollingInterval: config.PollingInterval,
		now:             time.Now,
		SnapshotChan:    make(chan models.TrendSnapshot, config.ChannelSize),
		lastRows:        -1,
	}
}

// Start begins the polling loop
func (ts *TrendService) Start(ctx context.Context) {
	log.Printf("TrendService: Polling every %v", ts.pollingInterval)

	ticker := time.NewTicker(ts.pollingInterval)
	defer ticker.Stop()

	// Initial poll
	ts.pollOnce()

	for {
		select {
		case <-ctx.Done():
			log.Println("TrendService: Shutting down...")
			close(ts.SnapshotChan)
			log.Println("TrendService: Shutdown complete")
			return
		case <-ticker.C:
			ts.pollOnce()
		}
	}
}

func (ts *TrendService) pollOnce() {
	snapshot, err := ts.Poll()
	if err != nil {
		log.Printf("TrendService: Error polling event log: %v", err)
		return
	}

	// Send snapshot to channel (non-blocking with timeout)
	select {
	case ts.SnapshotChan <- snapshot:
	case <-time.After(1 * time.Second):
		log.Println("TrendService: Warning - snapshot channel full, dropping snapshot")
	}
}

// Poll reads new rows and returns the current snapshot
func (ts *TrendService) Poll() (models.TrendSnapshot, error) {
	trend, err := ts.tail.Poll()
	if err != nil {
		return models.TrendSnapshot{}, err
	}

	snapshot := eventlog.Snapshot(trend, ts.now())
	if snapshot.Rows != ts.lastRows || snapshot.Skipped != ts.lastSkipped {
		ts.logSummary(snapshot)
		ts.lastRows = snapshot.Rows
		ts.lastSkipped = snapshot.Skipped
	}
	return snapshot, nil
}

func (ts *TrendService) logSummary(snapshot models.TrendSnapshot) {
	stress := snapshot.Summaries[models.Stress]
	log.Printf("TrendService: rows=%d skipped=%d stress last=%.2f mean=%.2f max=%.2f latest alerts=%q",
		snapshot.Rows, snapshot.Skipped, stress.Last, stress.Mean, stress.Max, snapshot.LatestAlerts)
}
