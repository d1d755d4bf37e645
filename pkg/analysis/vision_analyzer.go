package analysis

import (
	"context"
	"fmt"
	"strings"
)

// VisionAnalyzer runs the diagram-understanding pass over a document's
// extracted architecture diagrams
type VisionAnalyzer struct {
	client LLMCompleter
}

// NewVisionAnalyzer creates the diagram analyzer
func NewVisionAnalyzer(client LLMCompleter) *VisionAnalyzer {
	return &VisionAnalyzer{client: client}
}

// Analyze describes the document's diagrams and how they relate to the text
func (a *VisionAnalyzer) Analyze(ctx context.Context, req Request) (Result, error) {
	if len(req.Document.DiagramRefs) == 0 {
		return Result{}, fmt.Errorf("document %s has no diagrams to analyze", req.Document.ID)
	}

	prompt, err := renderPrompt(req.Config.PromptTemplate, map[string]any{
		"Title":        req.Document.Title,
		"Content":      req.Document.Content,
		"Diagrams":     strings.Join(req.Document.DiagramRefs, "\n"),
		"Instructions": req.Instructions,
	})
	if err != nil {
		return Result{}, err
	}

	return complete(ctx, a.client, req.Config, prompt)
}
