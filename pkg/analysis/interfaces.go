// Package analysis contains the AI-backed analysis units a review execution
// fans out to.
package analysis

import (
	"context"
	"fmt"

	"github.com/archlens/archlens/pkg/documents"
	"github.com/archlens/archlens/pkg/models"
)

// Request carries one analysis unit invocation
type Request struct {
	// Document is the resolved document under review
	Document documents.Document

	// Config is the active (or default) configuration for the unit
	Config models.ConfigPayload

	// Instructions is optional free-text reviewer guidance
	Instructions string

	// PolicyIDs scopes the governance analysis, ignored by other units
	PolicyIDs []string
}

// Result is the structured output of one analysis unit
type Result struct {
	// Findings is the free-text analysis
	Findings string `json:"findings"`

	// Recommendations is the ordered list of suggested improvements
	Recommendations []string `json:"recommendations"`

	// Violations lists detected governance deviations
	Violations []models.Violation `json:"violations"`
}

// Analyzer evaluates a document against one configuration and returns a
// structured result or fails
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (Result, error)
}

// Registry maps dimensions to their analysis units and holds the diagram and
// governance analyzers
type Registry struct {
	dimensions map[models.Dimension]Analyzer
	vision     Analyzer
	governance Analyzer
}

// NewRegistry creates an empty analyzer registry
func NewRegistry() *Registry {
	return &Registry{
		dimensions: make(map[models.Dimension]Analyzer),
	}
}

// NewLLMRegistry creates a registry with an LLM-backed unit for every known
// dimension plus the vision and governance analyzers
func NewLLMRegistry(client LLMCompleter) *Registry {
	r := NewRegistry()
	for _, dim := range models.KnownDimensions() {
		r.Register(dim, NewLLMAnalyzer(client, dim))
	}
	r.RegisterVision(NewVisionAnalyzer(client))
	r.RegisterGovernance(NewGovernanceAnalyzer(client))
	return r
}

// Register installs the analysis unit for a dimension
func (r *Registry) Register(dimension models.Dimension, analyzer Analyzer) {
	r.dimensions[dimension] = analyzer
}

// RegisterVision installs the diagram analyzer
func (r *Registry) RegisterVision(analyzer Analyzer) {
	r.vision = analyzer
}

// RegisterGovernance installs the governance analyzer
func (r *Registry) RegisterGovernance(analyzer Analyzer) {
	r.governance = analyzer
}

// ForDimension returns the analysis unit for a dimension
func (r *Registry) ForDimension(dimension models.Dimension) (Analyzer, error) {
	analyzer, ok := r.dimensions[dimension]
	if !ok {
		return nil, fmt.Errorf("no analyzer registered for dimension %q", dimension)
	}
	return analyzer, nil
}

// Vision returns the diagram analyzer, or nil if none is registered
func (r *Registry) Vision() Analyzer {
	return r.vision
}

// Governance returns the governance analyzer, or nil if none is registered
func (r *Registry) Governance() Analyzer {
	return r.governance
}
