package analysis

import (
	"context"
	"strings"
)

// GovernanceAnalyzer checks a document against the organization's governance
// policies
type GovernanceAnalyzer struct {
	client LLMCompleter
}

// NewGovernanceAnalyzer creates the governance analyzer
func NewGovernanceAnalyzer(client LLMCompleter) *GovernanceAnalyzer {
	return &GovernanceAnalyzer{client: client}
}

// Analyze evaluates the document against the requested policies. An empty
// policy list means every policy the configured prompt knows about.
func (a *GovernanceAnalyzer) Analyze(ctx context.Context, req Request) (Result, error) {
	prompt, err := renderPrompt(req.Config.PromptTemplate, map[string]any{
		"Title":        req.Document.Title,
		"Content":      req.Document.Content,
		"PolicyIDs":    strings.Join(req.PolicyIDs, ", "),
		"Instructions": req.Instructions,
	})
	if err != nil {
		return Result{}, err
	}

	return complete(ctx, a.client, req.Config, prompt)
}
