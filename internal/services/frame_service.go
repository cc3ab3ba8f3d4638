package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sanas2211/Realtime-human-intension/internal/eventlog"
	"github.com/sanas2211/Realtime-human-intension/internal/intensity"
	"github.com/sanas2211/Realtime-human-intension/internal/models"
)

// ErrNoDetection marks a cycle in which no face was detected; nothing is logged or alerted
var ErrNoDetection = errors.New("no emotion detected")

// FrameSink mirrors logged cycles into secondary storage
type FrameSink interface {
	SaveFrame(ctx context.Context, sessionID, sourceID string, record models.FrameRecord) error
	SaveAlertEvent(ctx context.Context, event *models.AlertEvent) error
}

// Notifier is the downstream collaborator that renders or sounds alerts
type Notifier interface {
	Notify(event *models.AlertEvent)
}

// Uplink reports whether the transport that feeds frames and carries alerts is connected
type Uplink interface {
	IsConnected() bool
}

// FrameService runs the per-cycle pipeline: normalize, fuse, evaluate, log, notify
type FrameService struct {
	writer   *eventlog.Writer
	sink     FrameSink
	notifier Notifier
	uplink   Uplink

	// Configuration
	thresholds    intensity.ThresholdTable
	fusion        intensity.FusionConfig
	referenceRate float64
	policy        models.UnknownLabelPolicy
	statsInterval time.Duration

	sessionID string
	window    *intensity.EfficiencyWindow
	now       func() time.Time

	// Input channel from the MQTT subscriber
	FrameChan chan *models.FrameSignal

	mu    sync.Mutex
	stats FrameStats
}

// FrameStats counts what happened to received cycles
type FrameStats struct {
	Received   uint64
	Logged     uint64
	NoFace     uint64
	Rejected   uint64
	Alerts     uint64
	MeanFPS    float64
	Efficiency float64
	Uplink     string // "connected", "disconnected", or empty without an uplink
}

// FrameServiceConfig holds configuration for frame service
type FrameServiceConfig struct {
	Thresholds         intensity.ThresholdTable
	Fusion             intensity.FusionConfig
	ReferenceRateHz    float64
	UnknownLabelPolicy models.UnknownLabelPolicy
	EfficiencyWindow   int
	StatsInterval      time.Duration
	ChannelSize        int
}

// DefaultFrameServiceConfig returns default configuration
func DefaultFrameServiceConfig() FrameServiceConfig {
	return FrameServiceConfig{
		Thresholds:         intensity.DefaultThresholds(),
		Fusion:             intensity.DefaultFusionConfig(),
		ReferenceRateHz:    intensity.DefaultReferenceRateHz,
		UnknownLabelPolicy: models.UnknownLog,
		EfficiencyWindow:   30,
		StatsInterval:      10 * time.Second,
		ChannelSize:        100,
	}
}

// NewFrameService creates a new frame service. sink and notifier may be nil.
func NewFrameService(
	writer *eventlog.Writer,
	sink FrameSink,
	notifier Notifier,
	config FrameServiceConfig,
) (*FrameService, error) {
	if err := config.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid thresholds: %w", err)
	}

	return &FrameService{
		writer:        writer,
		sink:          sink,
		notifier:      notifier,
		thresholds:    config.Thresholds.Clone(),
		fusion:        config.Fusion,
		referenceRate: config.ReferenceRateHz,
		policy:        config.UnknownLabelPolicy,
		statsInterval: config.StatsInterval,
		sessionID:     uuid.New().String(),
		window:        intensity.NewEfficiencyWindow(config.EfficiencyWindow, config.ReferenceRateHz),
		now:           time.Now,
		FrameChan:     make(chan *models.FrameSignal, config.ChannelSize),
	}, nil
}

// SetUplink attaches the transport whose connectivity is reported with the stats
func (s *FrameService) SetUplink(uplink Uplink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uplink = uplink
}

// SessionID identifies this process run in mirrored rows and alert events
func (s *FrameService) SessionID() string {
	return s.sessionID
}

// Start begins processing frame signals from the channel
// Runs until context is cancelled; cycles are handled one at a time
func (s *FrameService) Start(ctx context.Context) {
	log.Printf("FrameService: Starting session %s, logging to %s (reference rate %.0f Hz)...",
		s.sessionID, s.writer.Path(), s.referenceRate)

	var tick <-chan time.Time
	if s.statsInterval > 0 {
		ticker := time.NewTicker(s.statsInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("FrameService: Shutting down...")
			s.logStats()
			log.Println("FrameService: Shutdown complete")
			return
		case <-tick:
			s.logStats()
		case signal := <-s.FrameChan:
			if _, err := s.ProcessFrame(ctx, signal); err != nil && !errors.Is(err, ErrNoDetection) {
				log.Printf("FrameService: Cycle from %s: %v", signal.SourceID, err)
			}
		}
	}
}

// ProcessFrame runs one capture cycle and returns the alerts it raised.
// ErrNoDetection is returned when the detector produced no usable scores.
// A failed append is returned, but alerts are still delivered.
func (s *FrameService) ProcessFrame(ctx context.Context, signal *models.FrameSignal) (models.AlertSet, error) {
	fps := intensity.Round2(intensity.FPS(signal.ElapsedSeconds))
	efficiency := intensity.Efficiency(signal.ElapsedSeconds, s.referenceRate)
	s.window.Add(fps)
	s.count(func(st *FrameStats) { st.Received++ })

	scores, err := models.NormalizeScores(signal.Emotions, s.policy)
	if err != nil {
		s.count(func(st *FrameStats) { st.Rejected++ })
		return nil, fmt.Errorf("failed to normalize scores: %w", err)
	}
	if len(scores) == 0 {
		s.count(func(st *FrameStats) { st.NoFace++ })
		return nil, ErrNoDetection
	}

	fused := intensity.FuseWithConfig(scores, signal.Posture.Posture(), s.fusion)
	alerts := intensity.Evaluate(fused, s.thresholds)

	timestamp := signal.Timestamp
	if timestamp.IsZero() {
		timestamp = s.now()
	}

	record := models.FrameRecord{
		Timestamp:  timestamp,
		Dominant:   string(dominantEmotion(signal.Dominant, scores)),
		Emotions:   scores,
		Intensity:  fused,
		FPS:        fps,
		Efficiency: efficiency,
		Alerts:     alerts.String(),
	}

	var appendErr error
	if err := s.writer.Append(record); err != nil {
		appendErr = fmt.Errorf("failed to append event log row: %w", err)
	} else {
		s.count(func(st *FrameStats) { st.Logged++ })
	}

	// Best effort - don't fail the cycle if the mirror is unavailable
	if s.sink != nil {
		if err := s.sink.SaveFrame(ctx, s.sessionID, signal.SourceID, record); err != nil {
			log.Printf("FrameService: Error mirroring frame for %s: %v", signal.SourceID, err)
		}
	}

	if len(alerts) > 0 {
		s.count(func(st *FrameStats) { st.Alerts += uint64(len(alerts)) })
		s.raise(ctx, signal.SourceID, record, alerts)
	}

	return alerts, appendErr
}

// raise builds an alert event and hands it to the notifier and the mirror
func (s *FrameService) raise(ctx context.Context, sourceID string, record models.FrameRecord, alerts models.AlertSet) {
	messages := make([]string, 0, len(alerts))
	for _, a := range alerts {
		messages = append(messages, a.Message())
	}

	event := &models.AlertEvent{
		EventID:    uuid.New().String(),
		SessionID:  s.sessionID,
		SourceID:   sourceID,
		Timestamp:  record.Timestamp,
		Dominant:   record.Dominant,
		Alerts:     alerts,
		Messages:   messages,
		Stress:     record.Intensity[models.Stress],
		Efficiency: record.Efficiency,
	}

	log.Printf("FrameService: %s from %s (stress=%.2f)", alerts, sourceID, event.Stress)

	if s.notifier != nil {
		s.notifier.Notify(event)
	}

	if s.sink != nil {
		if err := s.sink.SaveAlertEvent(ctx, event); err != nil {
			log.Printf("FrameService: Error mirroring alert event %s: %v", event.EventID, err)
		}
	}
}

// dominantEmotion keeps the detector's dominant label when it is a known emotion
// with a score, and otherwise picks the highest score
func dominantEmotion(reported string, scores models.EmotionScores) models.Label {
	if label, ok := models.ParseLabel(reported); ok && label.IsEmotion() {
		if _, scored := scores[label]; scored {
			return label
		}
	}
	label, _ := scores.Dominant()
	return label
}

func (s *FrameService) count(update func(*FrameStats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update(&s.stats)
}

// Stats returns the counters and the rolling processing rate
func (s *FrameService) Stats() FrameStats {
	s.mu.Lock()
	stats := s.stats
	uplink := s.uplink
	s.mu.Unlock()

	if uplink != nil {
		stats.Uplink = "disconnected"
		if uplink.IsConnected() {
			stats.Uplink = "connected"
		}
	}

	stats.MeanFPS = s.window.MeanFPS()
	stats.Efficiency = s.window.Efficiency()
	return stats
}

func (s *FrameService) logStats() {
	st := s.Stats()
	log.Printf("FrameService: received=%d logged=%d no_face=%d rejected=%d alerts=%d fps=%.2f efficiency=%.2f%%",
		st.Received, st.Logged, st.NoFace, st.Rejected, st.Alerts, st.MeanFPS, st.Efficiency)
	if st.Uplink == "disconnected" {
		log.Println("FrameService: Warning - MQTT uplink is down, alert publishing may fail until it reconnects")
	}
}
