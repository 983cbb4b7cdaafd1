package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/product_catalog/internal/config"
	"github.com/Pesokrava/product_catalog/internal/pkg/logger"
)

const (
	// MaxDeliveryAttempts is the max number of delivery attempts before discarding.
	// Only cancelled or unacknowledged messages are redelivered.
	MaxDeliveryAttempts = 5

	// AckWait is how long to wait for acknowledgment before redelivery
	AckWait = 60 * time.Second

	// StreamMaxAge bounds how long unconsumed import messages are kept
	StreamMaxAge = 72 * time.Hour
)

// StreamConfig ensures the JetStream stream and durable consumer for product imports exist
type StreamConfig struct {
	js     nats.JetStreamContext
	cfg    config.NATSConfig
	logger *logger.Logger
}

// NewStreamConfig creates a new stream configuration helper
func NewStreamConfig(js nats.JetStreamContext, cfg config.NATSConfig, log *logger.Logger) *StreamConfig {
	return &StreamConfig{
		js:     js,
		cfg:    cfg,
		logger: log,
	}
}

// generateExponentialBackoff creates a backoff schedule for NATS redeliveries
// Pattern: 1s, 2s, 4s, 8s, ... (2^n seconds)
// MaxDeliver N requires N-1 backoff durations (first delivery is immediate)
func generateExponentialBackoff(maxDeliveryAttempts int) []time.Duration {
	if maxDeliveryAttempts <= 1 {
		return nil
	}

	backoff := make([]time.Duration, maxDeliveryAttempts-1)
	for i := range backoff {
		backoff[i] = time.Duration(1<<i) * time.Second
	}
	return backoff
}

// StreamDefinition returns the stream configuration used for the import subject
func (s *StreamConfig) StreamDefinition() *nats.StreamConfig {
	return &nats.StreamConfig{
		Name:        s.cfg.StreamName,
		Subjects:    []string{s.cfg.ImportSubject},
		Retention:   nats.WorkQueuePolicy,
		Storage:     nats.FileStorage,
		Replicas:    1,
		MaxAge:      StreamMaxAge,
		Discard:     nats.DiscardOld,
		Duplicates:  2 * time.Minute,
		Description: "Product import messages for catalog batch processing",
	}
}

// ConsumerDefinition returns the durable pull consumer configuration for the catalog worker
func (s *StreamConfig) ConsumerDefinition() *nats.ConsumerConfig {
	return &nats.ConsumerConfig{
		Durable:       s.cfg.ConsumerName,
		AckPolicy:     nats.AckExplicitPolicy,
		AckWait:       AckWait,
		MaxDeliver:    MaxDeliveryAttempts,
		FilterSubject: s.cfg.ImportSubject,
		BackOff:       generateExponentialBackoff(MaxDeliveryAttempts),
		Description:   "Catalog batch worker consumer for product imports",
	}
}

// EnsureStream creates the import stream when it does not exist yet
func (s *StreamConfig) EnsureStream() error {
	stream, err := s.js.StreamInfo(s.cfg.StreamName)

	if errors.Is(err, nats.ErrStreamNotFound) {
		s.logger.WithFields(map[string]any{
			"stream":   s.cfg.StreamName,
			"subjects": s.cfg.ImportSubject,
		}).Info("Creating JetStream stream")

		if _, err = s.js.AddStream(s.StreamDefinition()); err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}

		s.logger.Info("JetStream stream created successfully")
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to get stream info: %w", err)
	}

	s.logger.WithFields(map[string]any{
		"stream":   stream.Config.Name,
		"messages": stream.State.Msgs,
		"bytes":    stream.State.Bytes,
	}).Info("JetStream stream already exists")

	return nil
}

// EnsureConsumer creates the durable consumer when it does not exist yet
func (s *StreamConfig) EnsureConsumer() error {
	consumerInfo, err := s.js.ConsumerInfo(s.cfg.StreamName, s.cfg.ConsumerName)

	if errors.Is(err, nats.ErrConsumerNotFound) {
		s.logger.WithFields(map[string]any{
			"stream":   s.cfg.StreamName,
			"consumer": s.cfg.ConsumerName,
		}).Info("Creating JetStream consumer")

		if _, err = s.js.AddConsumer(s.cfg.StreamName, s.ConsumerDefinition()); err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}

		s.logger.Info("JetStream consumer created successfully")
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to get consumer info: %w", err)
	}

	s.logger.WithFields(map[string]any{
		"consumer":    consumerInfo.Name,
		"pending":     consumerInfo.NumPending,
		"redelivered": consumerInfo.NumRedelivered,
		"ack_pending": consumerInfo.NumAckPending,
	}).Info("JetStream consumer already exists")

	return nil
}
