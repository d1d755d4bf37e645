package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archlens/archlens/pkg/documents"
	"github.com/archlens/archlens/pkg/models"
	"github.com/archlens/archlens/pkg/utils"
)

// stubCompleter returns a canned response or error and records the last request
type stubCompleter struct {
	content string
	err     error
	lastReq utils.LLMRequest
}

func (s *stubCompleter) Complete(_ context.Context, req utils.LLMRequest) (*utils.LLMResponse, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &utils.LLMResponse{Content: s.content}, nil
}

func testConfig() models.ConfigPayload {
	cfg, ok := DefaultConfig(string(models.DimensionSecurity))
	if !ok {
		panic("missing security default config")
	}
	return cfg
}

func TestLLMAnalyzerParsesStructuredOutput(t *testing.T) {
	stub := &stubCompleter{content: `{
		"findings": "The design exposes the database to the public subnet.",
		"recommendations": ["Move the database to a private subnet", "Enable encryption at rest"],
		"violations": [{
			"policy_id": "SEC-001",
			"policy_title": "Network isolation",
			"description": "Database reachable from the internet",
			"recommended_correction": "Restrict ingress to the application tier",
			"severity": "high"
		}]
	}`}

	analyzer := NewLLMAnalyzer(stub, models.DimensionSecurity)
	result, err := analyzer.Analyze(context.Background(), Request{
		Document: documents.Document{
			ID:      "doc-1",
			Title:   "Payments platform",
			Content: "We deploy a database in the public subnet.",
		},
		Config:       testConfig(),
		Instructions: "Focus on data residency",
	})
	require.NoError(t, err)

	assert.Contains(t, result.Findings, "public subnet")
	assert.Len(t, result.Recommendations, 2)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, models.SeverityHigh, result.Violations[0].Severity)

	// The rendered prompt carries the document and the reviewer instructions
	require.Len(t, stub.lastReq.Messages, 1)
	assert.Contains(t, stub.lastReq.Messages[0].Content, "Payments platform")
	assert.Contains(t, stub.lastReq.Messages[0].Content, "Focus on data residency")
}

func TestLLMAnalyzerToleratesCodeFences(t *testing.T) {
	stub := &stubCompleter{content: "```json\n{\"findings\": \"ok\", \"recommendations\": [], \"violations\": []}\n```"}

	analyzer := NewLLMAnalyzer(stub, models.DimensionReliability)
	result, err := analyzer.Analyze(context.Background(), Request{
		Document: documents.Document{ID: "doc-1", Title: "t", Content: "c"},
		Config:   testConfig(),
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Findings)
}

func TestLLMAnalyzerRejectsInvalidSeverity(t *testing.T) {
	stub := &stubCompleter{content: `{"findings": "x", "violations": [{"policy_id": "P1", "severity": "catastrophic"}]}`}

	analyzer := NewLLMAnalyzer(stub, models.DimensionSecurity)
	_, err := analyzer.Analyze(context.Background(), Request{
		Document: documents.Document{ID: "doc-1", Title: "t", Content: "c"},
		Config:   testConfig(),
	})
	assert.Error(t, err)
}

func TestLLMAnalyzerPropagatesModelFailure(t *testing.T) {
	stub := &stubCompleter{err: errors.New("rate limited")}

	analyzer := NewLLMAnalyzer(stub, models.DimensionSecurity)
	_, err := analyzer.Analyze(context.Background(), Request{
		Document: documents.Document{ID: "doc-1", Title: "t", Content: "c"},
		Config:   testConfig(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestVisionAnalyzerRequiresDiagrams(t *testing.T) {
	stub := &stubCompleter{content: `{"findings": "two tiers shown", "recommendations": [], "violations": []}`}
	analyzer := NewVisionAnalyzer(stub)

	cfg, ok := DefaultConfig(VisionConfigKey)
	require.True(t, ok)

	_, err := analyzer.Analyze(context.Background(), Request{
		Document: documents.Document{ID: "doc-1", Title: "t", Content: "c"},
		Config:   cfg,
	})
	assert.Error(t, err, "no diagrams should fail the vision pass")

	result, err := analyzer.Analyze(context.Background(), Request{
		Document: documents.Document{
			ID:          "doc-1",
			Title:       "t",
			Content:     "c",
			DiagramRefs: []string{"s3://bucket/doc-1/1/diagrams/overview.png"},
		},
		Config: cfg,
	})
	require.NoError(t, err)
	assert.Equal(t, "two tiers shown", result.Findings)
	assert.Contains(t, stub.lastReq.Messages[0].Content, "overview.png")
}

func TestGovernanceAnalyzerScopesPolicies(t *testing.T) {
	stub := &stubCompleter{content: `{"findings": "one deviation", "recommendations": [], "violations": []}`}
	analyzer := NewGovernanceAnalyzer(stub)

	cfg, ok := DefaultConfig(GovernanceConfigKey)
	require.True(t, ok)

	_, err := analyzer.Analyze(context.Background(), Request{
		Document:  documents.Document{ID: "doc-1", Title: "t", Content: "c"},
		Config:    cfg,
		PolicyIDs: []string{"GOV-7", "GOV-9"},
	})
	require.NoError(t, err)
	assert.Contains(t, stub.lastReq.Messages[0].Content, "GOV-7, GOV-9")
}

func TestDefaultConfigCoversAllDimensions(t *testing.T) {
	for _, dim := range models.KnownDimensions() {
		cfg, ok := DefaultConfig(string(dim))
		require.True(t, ok, "missing default for %s", dim)
		assert.NotEmpty(t, cfg.PromptTemplate)
		assert.NotEmpty(t, cfg.Model)
	}

	_, ok := DefaultConfig("unknown_key")
	assert.False(t, ok)
}
