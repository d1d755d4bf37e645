package orchestrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archlens/archlens/pkg/models"
)

func completedResult(dim models.Dimension, findings string, recs []string, violations []models.Violation) models.DimensionResult {
	return models.DimensionResult{
		DimensionID:          dim,
		Status:               models.DimensionCompleted,
		Findings:             findings,
		Recommendations:      recs,
		GovernanceViolations: violations,
	}
}

func failedResult(dim models.Dimension) models.DimensionResult {
	return models.DimensionResult{
		DimensionID: dim,
		Status:      models.DimensionFailed,
		Error:       "analysis timed out",
	}
}

func sampleInput() SummaryInput {
	return SummaryInput{
		SelectedDimensions: []models.Dimension{
			models.DimensionSecurity,
			models.DimensionReliability,
			models.DimensionPerformance,
		},
		Results: map[models.Dimension]models.DimensionResult{
			models.DimensionSecurity: completedResult(
				models.DimensionSecurity,
				"Access to the internal administration surface is protected only by network position. Secrets are checked into the deployment repository in plain text. Rotation is manual.",
				[]string{"introduce secret management", "add MFA on the admin surface", "automate credential rotation"},
				[]models.Violation{{
					PolicyID:              "SEC-4",
					PolicyTitle:           "Secrets handling",
					Description:           "Plaintext secrets in the repository",
					RecommendedCorrection: "Move secrets into a managed vault",
					Severity:              models.SeverityHigh,
				}},
			),
			models.DimensionReliability: completedResult(
				models.DimensionReliability,
				"Failover between regions is untested and the recovery procedure exists only as tribal knowledge. Ok.",
				[]string{"schedule failover drills"},
				nil,
			),
			models.DimensionPerformance: failedResult(models.DimensionPerformance),
		},
	}
}

func TestSummarizeIsDeterministic(t *testing.T) {
	input := sampleInput()

	first := Summarize(input)
	second := Summarize(input)

	assert.Equal(t, first.Overview, second.Overview, "overview must be byte-identical across runs")
	assert.Equal(t, first.Executive, second.Executive, "executive summary must be byte-identical across runs")
}

func TestSummarizeOverviewCounts(t *testing.T) {
	summary := Summarize(sampleInput())

	assert.Contains(t, summary.Overview, "evaluated 3 dimension(s): 2 completed, 1 failed")
	// Counts cover completed dimensions only: 3+1 recommendations, 1 violation
	assert.Contains(t, summary.Overview, "4 recommendation(s)")
	assert.Contains(t, summary.Overview, "1 governance violation(s)")
	assert.Contains(t, summary.Overview, "1 dimension(s) could not be evaluated")
}

func TestSummarizeFollowsSelectionOrder(t *testing.T) {
	summary := Summarize(sampleInput())

	securityIdx := strings.Index(summary.Overview, "- security:")
	reliabilityIdx := strings.Index(summary.Overview, "- reliability:")
	require.GreaterOrEqual(t, securityIdx, 0)
	require.GreaterOrEqual(t, reliabilityIdx, 0)
	assert.Less(t, securityIdx, reliabilityIdx, "findings follow the caller's dimension order")
}

func TestSummarizeExecutivePrioritizesHighSeverity(t *testing.T) {
	summary := Summarize(sampleInput())

	assert.Contains(t, summary.Executive, "Immediate action (high severity):")
	assert.Contains(t, summary.Executive, "[security] Secrets handling: Move secrets into a managed vault")

	// Two leading recommendations per completed dimension
	assert.Contains(t, summary.Executive, "security: introduce secret management")
	assert.Contains(t, summary.Executive, "security: add MFA on the admin surface")
	assert.NotContains(t, summary.Executive, "automate credential rotation")
	assert.Contains(t, summary.Executive, "reliability: schedule failover drills")

	// 4 total recommendations, 3 surfaced short-term
	assert.Contains(t, summary.Executive, "1 further recommendation(s) are deferred")
	assert.Contains(t, summary.Executive, "1 dimension(s) failed to complete")
}

func TestSummarizeExecutiveWithoutHighSeverity(t *testing.T) {
	input := sampleInput()
	result := input.Results[models.DimensionSecurity]
	result.GovernanceViolations = nil
	input.Results[models.DimensionSecurity] = result

	summary := Summarize(input)
	assert.Contains(t, summary.Executive, "No high-severity governance violations were detected.")
}

func TestSummarizeIgnoresMediumAndLowSeverity(t *testing.T) {
	input := sampleInput()
	result := input.Results[models.DimensionSecurity]
	result.GovernanceViolations = []models.Violation{
		{PolicyID: "SEC-1", PolicyTitle: "Tagging", Severity: models.SeverityMedium},
		{PolicyID: "SEC-2", PolicyTitle: "Naming", Severity: models.SeverityLow},
	}
	input.Results[models.DimensionSecurity] = result

	summary := Summarize(input)
	assert.Contains(t, summary.Executive, "No high-severity governance violations were detected.")
	assert.NotContains(t, summary.Executive, "Tagging")
}

func TestSummarizeIncludesGovernancePassViolations(t *testing.T) {
	input := sampleInput()
	input.GovernanceViolations = []models.Violation{{
		PolicyID:    "GOV-9",
		PolicyTitle: "Data residency",
		Description: "Backups leave the region",
		Severity:    models.SeverityHigh,
	}}

	summary := Summarize(input)
	// No recommended correction on the violation: the description stands in
	assert.Contains(t, summary.Executive, "[governance] Data residency: Backups leave the region")
}

func TestSummarizeAuxiliarySections(t *testing.T) {
	input := sampleInput()
	input.VisionFindings = "The deployment diagram shows a single shared database instance behind both regional stacks. No replica is drawn."
	input.GovernanceFindings = "The document references two policies that were retired last quarter and should be replaced with their successors."

	summary := Summarize(input)
	assert.Contains(t, summary.Overview, "Diagram analysis:")
	assert.Contains(t, summary.Overview, "Governance review:")

	withoutAux := Summarize(sampleInput())
	assert.NotContains(t, withoutAux.Overview, "Diagram analysis:")
	assert.NotContains(t, withoutAux.Overview, "Governance review:")
}

func TestExcerptKeepsLongSegments(t *testing.T) {
	findings := "Short. This first long segment easily clears the minimum length threshold. Tiny. This second long segment also clears the minimum length threshold fine. A third long segment that must not appear in the excerpt output at all."

	out := excerpt(findings)
	assert.Equal(t, "This first long segment easily clears the minimum length threshold. This second long segment also clears the minimum length threshold fine.", out)
}

func TestExcerptFallsBackToWholeText(t *testing.T) {
	findings := "  All segments short. Ok. Fine.  "

	out := excerpt(findings)
	assert.Equal(t, "All segments short. Ok. Fine.", out)
}

func TestExcerptCapsLength(t *testing.T) {
	findings := strings.Repeat("a", 500) + ". " + strings.Repeat("b", 500) + "."

	out := excerpt(findings)
	assert.Len(t, out, excerptMaxLength)
}

func TestSummarizeEmptySelection(t *testing.T) {
	summary := Summarize(SummaryInput{})

	assert.Contains(t, summary.Overview, "evaluated 0 dimension(s): 0 completed, 0 failed")
	assert.NotContains(t, summary.Overview, "Key findings:")
	assert.Contains(t, summary.Executive, "No high-severity governance violations were detected.")
}
