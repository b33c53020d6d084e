package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"property_insights/internal/domain"
)

type buildRequest struct {
	Properties []domain.PropertyRecord `json:"properties"`
}

// DecodeProperties reads a {"properties": [...]} document. Numbers are kept
// as json.Number so large ids survive; an absent or null list is empty.
// Anything but whitespace after the document is an error.
func DecodeProperties(r io.Reader) ([]domain.PropertyRecord, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var req buildRequest
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}
	var extra json.RawMessage
	switch err := dec.Decode(&extra); {
	case errors.Is(err, io.EOF):
		return req.Properties, nil
	case err != nil:
		return nil, fmt.Errorf("decode input: trailing data: %w", err)
	default:
		return nil, errors.New("decode input: trailing data after document")
	}
}
