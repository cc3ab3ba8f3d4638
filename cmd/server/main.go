package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sanas2211/Realtime-human-intension/internal/database"
	"github.com/sanas2211/Realtime-human-intension/internal/eventlog"
	"github.com/sanas2211/Realtime-human-intension/internal/intensity"
	"github.com/sanas2211/Realtime-human-intension/internal/mqtt"
	"github.com/sanas2211/Realtime-human-intension/internal/services"
	"github.com/sanas2211/Realtime-human-intension/pkg/config"
)

func main() {
	log.Println("Starting affect monitoring service...")

	// Load configuration
	cfg := config.Load()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === Optional ClickHouse mirror ===
	var sink services.FrameSink
	if cfg.ClickHouseEnabled {
		db, err := database.NewClickHouseDB(
			cfg.ClickHouseAddr,
			cfg.ClickHouseDB,
			cfg.ClickHouseUser,
			cfg.ClickHousePass,
		)
		if err != nil {
			log.Fatalf("Failed to initialize ClickHouse: %v", err)
		}
		defer db.Close()
		sink = db
	}

	// === Initialize MQTT Client ===
	log.Println("Connecting to MQTT broker...")
	mqttClient, err := mqtt.NewClient(mqtt.ClientConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
	})
	if err != nil {
		log.Fatalf("Failed to initialize MQTT client: %v", err)
	}
	defer mqttClient.Close()

	// === Initialize MQTT Publisher (alert notifier) ===
	log.Println("Setting up MQTT publisher...")
	publisher := mqtt.NewPublisher(
		mqttClient.GetNativeClient(),
		mqtt.PublisherConfig{
			AlertsTopic:      cfg.MQTTTopicAlerts,
			AlertChannelSize: 50,
		},
		nil,
	)
	go publisher.Start(ctx)

	// === Initialize Frame Service ===
	log.Println("Initializing frame service...")
	frameConfig := services.FrameServiceConfig{
		Thresholds:         cfg.Thresholds,
		Fusion:             intensity.DefaultFusionConfig(),
		ReferenceRateHz:    cfg.ReferenceRateHz,
		UnknownLabelPolicy: cfg.UnknownLabelPolicy,
		EfficiencyWindow:   cfg.EfficiencyWindow,
		StatsInterval:      cfg.StatsInterval,
		ChannelSize:        cfg.FrameChannelSize,
	}

	frameService, err := services.NewFrameService(eventlog.NewWriter(cfg.EventLogPath), sink, publisher, frameConfig)
	if err != nil {
		log.Fatalf("Failed to initialize frame service: %v", err)
	}
	frameService.SetUplink(mqttClient)
	go frameService.Start(ctx)

	// === Initialize MQTT Subscriber ===
	// Subscribed last so no frame arrives before the service is running
	log.Println("Setting up MQTT subscriber...")
	subscriber := mqtt.NewSubscriber(
		mqttClient.GetNativeClient(),
		mqtt.SubscriberConfig{FramesTopic: cfg.MQTTTopicFrames},
		frameService.FrameChan,
	)
	if err := subscriber.SubscribeAll(); err != nil {
		log.Fatalf("Failed to subscribe to MQTT topics: %v", err)
	}

	// === Log startup info ===
	log.Println("=== Affect monitoring service is running ===")
	log.Printf("Session: %s", frameService.SessionID())
	log.Printf("Event log: %s", cfg.EventLogPath)
	for _, label := range cfg.Thresholds.Labels() {
		log.Printf("  - Threshold %-8s %.2f", label, cfg.Thresholds[label])
	}
	log.Printf("MQTT Topics:")
	log.Printf("  - Frames: %s", cfg.MQTTTopicFrames)
	log.Printf("  - Alerts: %s", cfg.MQTTTopicAlerts)
	log.Println("Press Ctrl+C to exit...")

	// === Wait for interrupt signal ===
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// === Graceful shutdown ===
	log.Println("Shutdown signal received, stopping services...")
	cancel()

	// Give services time to finish the current cycle
	time.Sleep(2 * time.Second)

	log.Println("Shutdown complete. Goodbye!")
}
