package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB
	maxImportBodySize  = 8 << 20 // 8MB
)

// ErrBodyTooLarge is returned when the request body exceeds its size limit
var ErrBodyTooLarge = errors.New("request body too large")

// ReadBody reads a single-item request body as raw bytes
func ReadBody(r *http.Request) ([]byte, error) {
	return readLimited(r, maxRequestBodySize)
}

// DecodeImportBatch decodes a JSON array body into its raw elements
func DecodeImportBatch(r *http.Request) ([]json.RawMessage, error) {
	body, err := readLimited(r, maxImportBodySize)
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to decode JSON array: %w", err)
	}
	return items, nil
}

func readLimited(r *http.Request, limit int64) ([]byte, error) {
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, ErrBodyTooLarge
	}
	return body, nil
}

// GetIDParam extracts a product id parameter from the URL.
// Ids are UUIDs; the canonical lower-case form is returned.
func GetIDParam(r *http.Request, key string) (string, error) {
	param := chi.URLParam(r, key)
	if param == "" {
		return "", fmt.Errorf("missing parameter: %s", key)
	}

	id, err := uuid.Parse(param)
	if err != nil {
		return "", fmt.Errorf("invalid UUID: %w", err)
	}

	return id.String(), nil
}

// GetIntQuery extracts an integer query parameter with a default value
func GetIntQuery(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// GetPaginationParams extracts and validates pagination parameters
func GetPaginationParams(r *http.Request) (limit, offset int) {
	limit = GetIntQuery(r, "limit", 20)
	offset = GetIntQuery(r, "offset", 0)

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
