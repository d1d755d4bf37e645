package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/archlens/archlens/pkg/models"
	"github.com/archlens/archlens/pkg/utils"
)

// LLMCompleter is the slice of the LLM client the analysis units depend on
type LLMCompleter interface {
	Complete(ctx context.Context, request utils.LLMRequest) (*utils.LLMResponse, error)
}

// LLMAnalyzer evaluates one dimension of a document with an LLM call
type LLMAnalyzer struct {
	client    LLMCompleter
	dimension models.Dimension
}

// NewLLMAnalyzer creates an analysis unit for a dimension
func NewLLMAnalyzer(client LLMCompleter, dimension models.Dimension) *LLMAnalyzer {
	return &LLMAnalyzer{
		client:    client,
		dimension: dimension,
	}
}

// Analyze renders the configured prompt, calls the model and parses the
// structured result
func (a *LLMAnalyzer) Analyze(ctx context.Context, req Request) (Result, error) {
	prompt, err := renderPrompt(req.Config.PromptTemplate, map[string]any{
		"Dimension":    string(a.dimension),
		"Title":        req.Document.Title,
		"Content":      req.Document.Content,
		"Instructions": req.Instructions,
	})
	if err != nil {
		return Result{}, err
	}

	return complete(ctx, a.client, req.Config, prompt)
}

// renderPrompt renders a configured prompt template with the given variables
func renderPrompt(templateStr string, variables map[string]any) (string, error) {
	tmpl, err := utils.NewPromptTemplate(templateStr)
	if err != nil {
		return "", fmt.Errorf("invalid prompt template: %w", err)
	}

	prompt, err := tmpl.Render(variables)
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}

	return prompt, nil
}

// complete runs the model call and decodes the structured payload it returns
func complete(ctx context.Context, client LLMCompleter, cfg models.ConfigPayload, prompt string) (Result, error) {
	response, err := client.Complete(ctx, utils.LLMRequest{
		Model:       cfg.Model,
		System:      cfg.SystemPrompt,
		Messages:    []utils.Message{{Role: "user", Content: prompt}},
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return Result{}, fmt.Errorf("model call failed: %w", err)
	}

	return parseResult(response.Content)
}

// resultPayload is the JSON shape analysis units ask the model to produce
type resultPayload struct {
	Findings        string   `json:"findings"`
	Recommendations []string `json:"recommendations"`
	Violations      []struct {
		PolicyID              string `json:"policy_id"`
		PolicyTitle           string `json:"policy_title"`
		Description           string `json:"description"`
		RecommendedCorrection string `json:"recommended_correction"`
		Severity              string `json:"severity"`
	} `json:"violations"`
}

// parseResult decodes a model response into a Result, validating severities at
// the boundary
func parseResult(content string) (Result, error) {
	var payload resultPayload
	if err := utils.ParseJSON(content, &payload); err != nil {
		return Result{}, fmt.Errorf("failed to parse analysis output: %w", err)
	}

	if strings.TrimSpace(payload.Findings) == "" {
		return Result{}, fmt.Errorf("analysis output has no findings")
	}

	result := Result{
		Findings:        payload.Findings,
		Recommendations: payload.Recommendations,
	}

	for _, v := range payload.Violations {
		severity, err := models.ParseSeverity(strings.ToLower(v.Severity))
		if err != nil {
			return Result{}, fmt.Errorf("analysis output has invalid violation: %w", err)
		}
		result.Violations = append(result.Violations, models.Violation{
			PolicyID:              v.PolicyID,
			PolicyTitle:           v.PolicyTitle,
			Description:           v.Description,
			RecommendedCorrection: v.RecommendedCorrection,
			Severity:              severity,
		})
	}

	return result, nil
}
