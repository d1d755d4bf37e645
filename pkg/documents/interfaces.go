// Package documents resolves reviewed documents from their backing store.
package documents

import (
	"context"
)

// Document is a resolved architecture document ready for analysis
type Document struct {
	// ID of the document
	ID string `json:"id"`

	// Version of the document
	Version string `json:"version"`

	// Title of the document
	Title string `json:"title"`

	// ContentRef points at the stored source object
	ContentRef string `json:"content_ref"`

	// Content is the extracted text of the document
	Content string `json:"content"`

	// DiagramRefs points at extracted architecture diagrams, if any
	DiagramRefs []string `json:"diagram_refs,omitempty"`
}

// Provider resolves a document id and version to its content
type Provider interface {
	// Get retrieves a document. Returns models.NotFoundError if absent.
	Get(ctx context.Context, documentID, version string) (Document, error)
}
