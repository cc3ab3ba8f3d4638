package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/sanas2211/Realtime-human-intension/internal/models"
)

// Publisher handles MQTT publishing from channels
type Publisher struct {
	client mqtt.Client

	// Input channels. AlertChan is fed through Notify by the frame service,
	// TrendChan is written by the trend service. Either may be nil.
	AlertChan chan *models.AlertEvent
	TrendChan <-chan models.TrendSnapshot

	// Topic patterns
	alertsTopic string // e.g., "affect/{source_id}/alerts"
	trendTopic  string // e.g., "affect/trend"
}

// PublisherConfig holds configuration for MQTT publisher
type PublisherConfig struct {
	AlertsTopic      string
	TrendTopic       string
	AlertChannelSize int
}

// NewPublisher creates a new MQTT publisher with channels
func NewPublisher(
	client mqtt.Client,
	config PublisherConfig,
	trendChan <-chan models.TrendSnapshot,
) *Publisher {
	var alertChan chan *models.AlertEvent
	if config.AlertChannelSize > 0 {
		alertChan = make(chan *models.AlertEvent, config.AlertChannelSize)
	}
	return &Publisher{
		client:      client,
		AlertChan:   alertChan,
		TrendChan:   trendChan,
		alertsTopic: config.AlertsTopic,
		trendTopic:  config.TrendTopic,
	}
}

// Notify queues an alert event for publishing
func (p *Publisher) Notify(event *models.AlertEvent) {
	if p.AlertChan == nil {
		return
	}

	// Write to channel (non-blocking with timeout)
	select {
	case p.AlertChan <- event:
	case <-time.After(1 * time.Second):
		log.Printf("MQTT Publisher: Warning - alert channel full, dropping %s for %s", event.Alerts, event.SourceID)
	}
}

// Start begins publishing alert events and trend snapshots from the channels
// Runs until context is cancelled or the trend channel is closed
func (p *Publisher) Start(ctx context.Context) {
	log.Println("MQTT Publisher: Starting...")

	for {
		select {
		case <-ctx.Done():
			log.Println("MQTT Publisher: Context cancelled, shutting down...")
			return

		case event := <-p.AlertChan:
			if err := p.publishAlert(event); err != nil {
				log.Printf("MQTT Publisher: Error publishing alert: %v", err)
			}

		case snapshot, ok := <-p.TrendChan:
			if !ok {
				log.Println("MQTT Publisher: Trend channel closed, shutting down...")
				return
			}
			if err := p.publishTrend(snapshot); err != nil {
				log.Printf("MQTT Publisher: Error publishing trend: %v", err)
			}
		}
	}
}

// publishAlert publishes an alert event to the per-source alerts topic
func (p *Publisher) publishAlert(event *models.AlertEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal alert event: %w", err)
	}

	topic := formatTopic(p.alertsTopic, event.SourceID)

	token := p.client.Publish(topic, 1, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish alert event: %w", token.Error())
	}

	log.Printf("MQTT Publisher: Published %s for %s to topic: %s", event.Alerts, event.SourceID, topic)
	return nil
}

// publishTrend publishes a trend snapshot as a retained message so late viewers get the latest one
func (p *Publisher) publishTrend(snapshot models.TrendSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal trend snapshot: %w", err)
	}

	token := p.client.Publish(p.trendTopic, 0, true, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish trend snapshot: %w", token.Error())
	}
	return nil
}

// formatTopic replaces the {source_id} placeholder with the actual source id
func formatTopic(topicPattern, sourceID string) string {
	return strings.ReplaceAll(topicPattern, "{source_id}", sourceID)
}
