// Package ocr extracts the printed invoice date from an uploaded document.
package ocr

import (
	"context"
	"errors"
	"time"
)

var ErrNotConfigured = errors.New("ocr: api key or url not configured")

// Document is an uploaded invoice held in memory.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Client returns the invoice date found in doc, or nil when the document has none.
type Client interface {
	ParseInvoiceDate(ctx context.Context, doc Document) (*time.Time, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, doc Document) (*time.Time, error)

func (f ClientFunc) ParseInvoiceDate(ctx context.Context, doc Document) (*time.Time, error) {
	return f(ctx, doc)
}
