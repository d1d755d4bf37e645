package documents

import (
	"context"
	"sync"

	"github.com/archlens/archlens/pkg/models"
)

// MemoryProvider implements the Provider interface using in-memory storage.
// It backs tests and local development.
type MemoryProvider struct {
	// documents maps documentID -> version -> document
	documents map[string]map[string]Document
	mu        sync.RWMutex
}

// NewMemoryProvider creates a new in-memory document provider
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		documents: make(map[string]map[string]Document),
	}
}

// Put stores a document version
func (p *MemoryProvider) Put(doc Document) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.documents[doc.ID]; !ok {
		p.documents[doc.ID] = make(map[string]Document)
	}
	p.documents[doc.ID][doc.Version] = doc
}

// Get retrieves a document
func (p *MemoryProvider) Get(ctx context.Context, documentID, version string) (Document, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	versions, ok := p.documents[documentID]
	if !ok {
		return Document{}, models.NewNotFoundError("document", documentID)
	}

	doc, ok := versions[version]
	if !ok {
		return Document{}, models.NewNotFoundError("document", documentID+"@"+version)
	}

	return doc, nil
}
