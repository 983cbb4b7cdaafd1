package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/product_catalog/internal/pkg/logger"
)

// MockImportQueue is a mock implementation of ImportQueue
type MockImportQueue struct {
	mock.Mock
}

func (m *MockImportQueue) EnqueueImport(ctx context.Context, body []byte) (string, error) {
	args := m.Called(ctx, body)
	return args.String(0), args.Error(1)
}

func TestImportHandler_Import_EnqueuesEachElement(t *testing.T) {
	queue := new(MockImportQueue)
	handler := NewImportHandler(queue, logger.New("test"))

	body := `[{"title":"A","price":1},{"title":"B","price":2,"count":3},"garbage"]`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	queue.On("EnqueueImport", mock.Anything, []byte(`{"title":"A","price":1}`)).Return("m1", nil).Once()
	queue.On("EnqueueImport", mock.Anything, []byte(`{"title":"B","price":2,"count":3}`)).Return("m2", nil).Once()
	queue.On("EnqueueImport", mock.Anything, []byte(`"garbage"`)).Return("m3", nil).Once()

	handler.Import(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	queue.AssertExpectations(t)

	var response struct {
		Data ImportResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 3, response.Data.Enqueued)
	assert.Equal(t, []string{"m1", "m2", "m3"}, response.Data.MessageIDs)
}

func TestImportHandler_Import_RejectsNonArray(t *testing.T) {
	queue := new(MockImportQueue)
	handler := NewImportHandler(queue, logger.New("test"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import", bytes.NewReader([]byte(`{"title":"A"}`)))
	w := httptest.NewRecorder()

	handler.Import(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	queue.AssertNotCalled(t, "EnqueueImport", mock.Anything, mock.Anything)
}

func TestImportHandler_Import_RejectsEmptyArray(t *testing.T) {
	queue := new(MockImportQueue)
	handler := NewImportHandler(queue, logger.New("test"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import", bytes.NewReader([]byte(`[]`)))
	w := httptest.NewRecorder()

	handler.Import(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "No products to import", response["error"])
}

func TestImportHandler_Import_QueueFailure(t *testing.T) {
	queue := new(MockImportQueue)
	handler := NewImportHandler(queue, logger.New("test"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import", bytes.NewReader([]byte(`[{"a":1},{"b":2}]`)))
	w := httptest.NewRecorder()

	queue.On("EnqueueImport", mock.Anything, []byte(`{"a":1}`)).Return("m1", nil).Once()
	queue.On("EnqueueImport", mock.Anything, []byte(`{"b":2}`)).Return("", errors.New("nats: timeout")).Once()

	handler.Import(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(1), response["enqueued"])
	queue.AssertExpectations(t)
}
