package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/product_catalog/internal/config"
	"github.com/Pesokrava/product_catalog/internal/domain"
	"github.com/Pesokrava/product_catalog/internal/pkg/logger"
)

// ProductCreatedEventType is the event type published for every ingested product
const ProductCreatedEventType = "product.created"

// ProductCreatedEvent is published after a product and its stock were written
type ProductCreatedEvent struct {
	EventType string          `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
	Product   *domain.Product `json:"product"`
}

// jetStreamPublisher is the subset of nats.JetStreamContext used for durable publishes
type jetStreamPublisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// corePublisher is the subset of *nats.Conn used for fire-and-forget notifications
type corePublisher interface {
	Publish(subj string, data []byte) error
}

// Publisher publishes import messages to JetStream and product notifications to core NATS
type Publisher struct {
	nc             *nats.Conn
	js             jetStreamPublisher
	core           corePublisher
	importSubject  string
	createdSubject string
	logger         *logger.Logger
}

// NewPublisher connects to NATS and creates a publisher
func NewPublisher(cfg *config.Config, log *logger.Logger) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"url": cfg.NATS.URL,
	}).Info("Connected to NATS JetStream")

	p := newPublisher(js, nc, cfg.NATS, log)
	p.nc = nc
	return p, nil
}

func newPublisher(js jetStreamPublisher, core corePublisher, cfg config.NATSConfig, log *logger.Logger) *Publisher {
	return &Publisher{
		js:             js,
		core:           core,
		importSubject:  cfg.ImportSubject,
		createdSubject: cfg.CreatedSubject,
		logger:         log,
	}
}

// EnqueueImport durably publishes one raw product message to the import subject
// and returns the message id used for deduplication
func (p *Publisher) EnqueueImport(ctx context.Context, body []byte) (string, error) {
	id := uuid.NewString()

	pubAck, err := p.js.Publish(p.importSubject, body, nats.Context(ctx), nats.MsgId(id))
	if err != nil {
		p.logger.WithFields(map[string]interface{}{
			"subject": p.importSubject,
			"error":   err.Error(),
		}).Error("Failed to publish message to JetStream", err)
		return "", fmt.Errorf("failed to publish to JetStream: %w", err)
	}

	p.logger.WithFields(map[string]interface{}{
		"subject":    p.importSubject,
		"message_id": id,
		"stream":     pubAck.Stream,
		"sequence":   pubAck.Sequence,
	}).Debug("Published import message to JetStream")

	return id, nil
}

// PublishProductCreated notifies subscribers that a product was ingested
func (p *Publisher) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(ProductCreatedEvent{
		EventType: ProductCreatedEventType,
		Timestamp: time.Now().UTC(),
		Product:   product,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal product event: %w", err)
	}

	if err := p.core.Publish(p.createdSubject, data); err != nil {
		return fmt.Errorf("failed to publish product event: %w", err)
	}

	return nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info("NATS publisher connection closed")
	}
}
