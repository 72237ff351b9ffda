package port

import (
	"context"
	"errors"
)

// ErrUnsupportedReceipt is returned for receipts that are not a PDF or image
var ErrUnsupportedReceipt = errors.New("unsupported receipt file")

// StoredReceipt describes a saved receipt file
type StoredReceipt struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Pages       int    `json:"pages,omitempty"`
}

// ReceiptStorage persists uploaded receipt files
type ReceiptStorage interface {
	Save(ctx context.Context, originalName string, content []byte) (*StoredReceipt, error)
	Open(ctx context.Context, name string) (string, error)
}
