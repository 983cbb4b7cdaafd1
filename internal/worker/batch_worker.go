package worker

import (
	"context"
	"time"

	"github.com/Pesokrava/product_catalog/internal/delivery/events"
	"github.com/Pesokrava/product_catalog/internal/domain"
	"github.com/Pesokrava/product_catalog/internal/pkg/logger"
)

const (
	// fetchRetryDelay is the pause after a failed fetch before polling again
	fetchRetryDelay = 5 * time.Second
)

// Fetcher pulls the next batch of deliveries from the queue
type Fetcher interface {
	FetchBatch(ctx context.Context) ([]events.Delivery, error)
}

// BatchProcessor turns a batch of messages into a report
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, messages []domain.QueueMessage) *domain.BatchReport
}

// ProductNotifier announces newly created products
type ProductNotifier interface {
	PublishProductCreated(ctx context.Context, product *domain.Product) error
}

// BatchWorker pulls batches from the queue, runs them through the pipeline,
// publishes created products and acknowledges the deliveries
type BatchWorker struct {
	fetcher    Fetcher
	processor  BatchProcessor
	notifier   ProductNotifier
	logger     *logger.Logger
	retryDelay time.Duration

	done chan struct{}
}

// NewBatchWorker creates a new batch worker
func NewBatchWorker(fetcher Fetcher, processor BatchProcessor, notifier ProductNotifier, log *logger.Logger) *BatchWorker {
	return &BatchWorker{
		fetcher:    fetcher,
		processor:  processor,
		notifier:   notifier,
		logger:     log.Named("batch-worker"),
		retryDelay: fetchRetryDelay,
		done:       make(chan struct{}),
	}
}

// Run polls for batches until ctx is cancelled
func (w *BatchWorker) Run(ctx context.Context) {
	defer close(w.done)

	w.logger.Info("Batch worker started")

	for ctx.Err() == nil {
		deliveries, err := w.fetcher.FetchBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			w.logger.Error("Failed to fetch batch", err)

			select {
			case <-time.After(w.retryDelay):
			case <-ctx.Done():
			}
			continue
		}

		if len(deliveries) == 0 {
			continue
		}

		w.HandleBatch(ctx, deliveries)
	}

	w.logger.Info("Batch worker stopped")
}

// HandleBatch processes one batch and settles every delivery.
// Items cancelled before completion are negatively acknowledged for redelivery;
// every other delivery is acknowledged, including reported failures.
func (w *BatchWorker) HandleBatch(ctx context.Context, deliveries []events.Delivery) *domain.BatchReport {
	messages := make([]domain.QueueMessage, len(deliveries))
	for i, d := range deliveries {
		messages[i] = d.Message
	}

	report := w.processor.ProcessBatch(ctx, messages)

	for _, product := range report.Results {
		if err := w.notifier.PublishProductCreated(context.WithoutCancel(ctx), product); err != nil {
			w.logger.WithFields(map[string]interface{}{
				"product_id": product.ID,
			}).Error("Failed to publish product created event", err)
		}
	}

	cancelled := make(map[string]bool)
	for _, failure := range report.Errors {
		if failure.Kind == domain.KindCancelled {
			cancelled[failure.MessageID] = true
		}
	}

	settleErrors := 0
	for _, d := range deliveries {
		settle, action := d.Ack, "ack"
		if cancelled[d.Message.ID] {
			settle, action = d.Nak, "nak"
		}

		if err := settle(); err != nil {
			settleErrors++
			w.logger.WithFields(map[string]interface{}{
				"message_id": d.Message.ID,
				"action":     action,
			}).Error("Failed to settle message", err)
		}
	}

	w.logger.WithFields(map[string]interface{}{
		"batch_size":      len(deliveries),
		"processed_count": report.ProcessedCount,
		"error_count":     report.ErrorCount,
		"redelivered":     len(cancelled),
		"settle_errors":   settleErrors,
	}).Info("Batch settled")

	return report
}

// Wait blocks until Run returns or ctx expires
func (w *BatchWorker) Wait(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn("Shutdown timeout reached, forcing exit")
		return ctx.Err()
	}
}
