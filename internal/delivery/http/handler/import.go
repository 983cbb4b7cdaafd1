package handler

import (
	"context"
	"net/http"

	"github.com/Pesokrava/product_catalog/internal/delivery/http/middleware"
	"github.com/Pesokrava/product_catalog/internal/delivery/http/request"
	"github.com/Pesokrava/product_catalog/internal/delivery/http/response"
	"github.com/Pesokrava/product_catalog/internal/pkg/logger"
)

// ImportQueue enqueues raw product payloads for the catalog worker
type ImportQueue interface {
	EnqueueImport(ctx context.Context, body []byte) (string, error)
}

// ImportHandler accepts bulk product imports and hands them to the queue
type ImportHandler struct {
	queue  ImportQueue
	logger *logger.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(queue ImportQueue, log *logger.Logger) *ImportHandler {
	return &ImportHandler{
		queue:  queue,
		logger: log.Named("import-handler"),
	}
}

// ImportResult reports how many messages were enqueued
type ImportResult struct {
	Enqueued   int      `json:"enqueued"`
	MessageIDs []string `json:"message_ids"`
}

// Import handles POST /api/v1/products/import
// @Summary Import products in bulk
// @Description Enqueue every element of a JSON array as one import message. Elements are processed asynchronously by the catalog worker.
// @Tags Products
// @Accept json
// @Produce json
// @Security BasicAuth
// @Param products body []domain.ProductInput true "Products to import"
// @Success 202 {object} map[string]interface{} "Products enqueued"
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 401 {object} map[string]string "Missing credentials"
// @Failure 403 {object} map[string]string "Invalid credentials"
// @Failure 503 {object} map[string]string "Queue unavailable"
// @Router /products/import [post]
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	items, err := request.DecodeImportBatch(r)
	if err != nil {
		response.ErrorWithDetails(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	if len(items) == 0 {
		response.Error(w, http.StatusBadRequest, "No products to import")
		return
	}

	result := ImportResult{MessageIDs: make([]string, 0, len(items))}
	for i, item := range items {
		msgID, err := h.queue.EnqueueImport(r.Context(), item)
		if err != nil {
			h.logger.WithFields(map[string]interface{}{
				"index":    i,
				"enqueued": result.Enqueued,
			}).Error("Failed to enqueue import", err)

			response.JSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"error":    "Queue unavailable",
				"enqueued": result.Enqueued,
			})
			return
		}

		result.Enqueued++
		result.MessageIDs = append(result.MessageIDs, msgID)
	}

	principal, _ := middleware.PrincipalFromContext(r.Context())
	h.logger.WithFields(map[string]interface{}{
		"enqueued":  result.Enqueued,
		"principal": principal,
	}).Info("Products enqueued for import")

	response.Accepted(w, result)
}
