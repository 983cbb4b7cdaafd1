package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ProductInput is the untrusted product shape accepted from a queue message or request body
type ProductInput struct {
	Title       string  `json:"title" validate:"notblank,max=255"`
	Description string  `json:"description" validate:"max=5000"`
	Price       float64 `json:"price" validate:"finite,gte=0"`
	Count       *int    `json:"count,omitempty" validate:"omitempty,gte=0,max=2147483647"`
}

// rawProductInput detects absent required keys, which json.Unmarshal would zero-fill
type rawProductInput struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Count       *int     `json:"count"`
}

// ParseInput decodes a message body into a ProductInput.
// Malformed JSON and missing title or price keys yield ErrParse.
func ParseInput(raw []byte) (*ProductInput, error) {
	var in rawProductInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	var missing []string
	if in.Title == nil {
		missing = append(missing, "title")
	}
	if in.Price == nil {
		missing = append(missing, "price")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required fields: %s", ErrParse, strings.Join(missing, ", "))
	}

	input := &ProductInput{
		Title: *in.Title,
		Price: *in.Price,
		Count: in.Count,
	}
	if in.Description != nil {
		input.Description = *in.Description
	}

	return input, nil
}

// Validate checks the input against its struct tags.
// v must have the notblank and finite validations registered.
func (in *ProductInput) Validate(v *validator.Validate) error {
	if err := v.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// StockCount returns the requested stock count, defaulting to zero
func (in *ProductInput) StockCount() int {
	if in.Count == nil {
		return 0
	}
	return *in.Count
}
