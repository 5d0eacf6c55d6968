package registry

import (
	"context"
	"errors"
)

// ErrDocumentNotFound indicates no registry document has been persisted yet.
var ErrDocumentNotFound = errors.New("endpoint document not found")

// Document is the persisted registry shape:
// {"active_endpoint": "...", "endpoints": {"name": {...}}}.
type Document struct {
	ActiveEndpoint string              `json:"active_endpoint"`
	Endpoints      map[string]Endpoint `json:"endpoints"`
}

// Store abstracts where the registry document lives. Load returns
// ErrDocumentNotFound when nothing has been persisted yet.
type Store interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
}
