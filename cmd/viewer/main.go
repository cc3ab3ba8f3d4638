package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sanas2211/Realtime-human-intension/internal/mqtt"
	"github.com/sanas2211/Realtime-human-intension/internal/services"
	"github.com/sanas2211/Realtime-human-intension/pkg/config"
)

func main() {
	log.Println("Starting affect trend viewer...")

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === Initialize Trend Service ===
	trendService := services.NewTrendService(services.TrendServiceConfig{
		LogPath:         cfg.EventLogPath,
		PollingInterval: cfg.TrendPollInterval,
		ChannelSize:     10,
	})

	// === Initialize MQTT Client ===
	log.Println("Connecting to MQTT broker...")
	mqttClient, err := mqtt.NewClient(mqtt.ClientConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID + "-viewer",
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
	})
	if err != nil {
		log.Fatalf("Failed to initialize MQTT client: %v", err)
	}
	defer mqttClient.Close()

	// Publisher reads snapshots straight from the trend service
	publisher := mqtt.NewPublisher(
		mqttClient.GetNativeClient(),
		mqtt.PublisherConfig{TrendTopic: cfg.MQTTTopicTrend},
		trendService.SnapshotChan,
	)

	go trendService.Start(ctx)
	go publisher.Start(ctx)

	log.Println("=== Affect trend viewer is running ===")
	log.Printf("Event log: %s (poll every %v)", cfg.EventLogPath, cfg.TrendPollInterval)
	log.Printf("Trend topic: %s", cfg.MQTTTopicTrend)
	log.Println("Press Ctrl+C to exit...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutdown signal received, stopping services...")
	cancel()
	time.Sleep(1 * time.Second)

	log.Println("Shutdown complete. Goodbye!")
}
