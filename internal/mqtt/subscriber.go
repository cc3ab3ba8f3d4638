package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/sanas2211/Realtime-human-intension/internal/models"
)

// ErrMissingSource is returned when neither the topic nor the payload names a source
var ErrMissingSource = errors.New("frame signal has no source id")

// Subscriber handles MQTT subscriptions and writes frame signals to a channel
type Subscriber struct {
	client mqtt.Client

	// Output channel (written by subscriber, read by the frame service)
	FrameChan chan *models.FrameSignal

	framesTopic string
}

// SubscriberConfig holds configuration for MQTT subscriber
type SubscriberConfig struct {
	FramesTopic string // e.g., "affect/+/frame"
}

// NewSubscriber creates a new MQTT subscriber writing into frameChan
func NewSubscriber(client mqtt.Client, config SubscriberConfig, frameChan chan *models.FrameSignal) *Subscriber {
	return &Subscriber{
		client:      client,
		FrameChan:   frameChan,
		framesTopic: config.FramesTopic,
	}
}

// SubscribeAll subscribes to the configured frame topic
func (s *Subscriber) SubscribeAll() error {
	if s.framesTopic == "" {
		return errors.New("no frame topic configured")
	}

	token := s.client.Subscribe(s.framesTopic, 1, s.handleFrame)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to frame topic: %w", token.Error())
	}
	log.Printf("Subscribed to frame topic: %s", s.framesTopic)
	return nil
}

// handleFrame decodes one capture cycle and writes it to the channel
func (s *Subscriber) handleFrame(client mqtt.Client, msg mqtt.Message) {
	signal, err := decodeFrameSignal(msg.Topic(), msg.Payload(), time.Now())
	if err != nil {
		log.Printf("Error decoding frame signal from %s: %v", msg.Topic(), err)
		return
	}

	// Write to channel (non-blocking with timeout)
	select {
	case s.FrameChan <- signal:
	case <-time.After(1 * time.Second):
		log.Printf("Warning: Frame channel full, dropping frame from %s", signal.SourceID)
	}
}

// decodeFrameSignal parses a JSON frame payload. The source id from the topic wins over
// the payload; a missing timestamp is stamped server-side.
func decodeFrameSignal(topic string, payload []byte, now time.Time) (*models.FrameSignal, error) {
	var signal models.FrameSignal
	if err := json.Unmarshal(payload, &signal); err != nil {
		return nil, fmt.Errorf("failed to unmarshal frame signal: %w", err)
	}

	if sourceID := extractSourceID(topic); sourceID != "" && sourceID != "+" {
		signal.SourceID = sourceID
	}
	if signal.SourceID == "" {
		return nil, ErrMissingSource
	}

	if signal.Timestamp.IsZero() {
		signal.Timestamp = now
	}
	if signal.ElapsedSeconds < 0 {
		signal.ElapsedSeconds = 0
	}
	return &signal, nil
}

// extractSourceID extracts the source id from an MQTT topic
// Example: "affect/webcam-0/frame" -> "webcam-0"
func extractSourceID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 3 {
		return parts[1]
	}
	return ""
}
