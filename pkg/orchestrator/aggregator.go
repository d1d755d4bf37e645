package orchestrator

import (
	"fmt"
	"strings"

	"github.com/archlens/archlens/pkg/models"
)

// Aggregation constants. Excerpts keep the first two findings segments longer
// than the minimum, capped at the maximum excerpt length; the executive view
// takes the first two recommendations of each completed dimension.
const (
	excerptSegmentMinLength          = 40
	excerptMaxLength                 = 280
	shortTermItemsPerDimension       = 2
	immediateActionSeverityThreshold = models.SeverityHigh
)

// SummaryInput is everything the aggregator consumes. Dimension iteration
// always follows SelectedDimensions order, never completion order, so output
// is deterministic for identical inputs.
type SummaryInput struct {
	// SelectedDimensions in the order the caller chose them
	SelectedDimensions []models.Dimension

	// Results maps dimension id to its settled result
	Results map[models.Dimension]models.DimensionResult

	// VisionFindings is the diagram analysis output, empty when the pass failed
	VisionFindings string

	// GovernanceFindings is the governance analysis output, empty when the pass failed
	GovernanceFindings string

	// GovernanceViolations are the governance pass's own detections
	GovernanceViolations []models.Violation
}

// Summary is the aggregated narrative output
type Summary struct {
	// Overview is the narrative overview of the whole review
	Overview string

	// Executive is the prioritized digest
	Executive string
}

// Summarize derives the executive summary and narrative overview from the
// settled per-dimension results. It is a pure function: identical input yields
// byte-identical output.
func Summarize(input SummaryInput) Summary {
	var completed, failed []models.DimensionResult
	for _, dim := range input.SelectedDimensions {
		result, ok := input.Results[dim]
		if !ok {
			continue
		}
		if result.Status == models.DimensionCompleted {
			completed = append(completed, result)
		} else {
			failed = append(failed, result)
		}
	}

	totalRecommendations := 0
	totalViolations := 0
	for _, result := range completed {
		totalRecommendations += len(result.Recommendations)
		totalViolations += len(result.GovernanceViolations)
	}

	return Summary{
		Overview:  buildOverview(input, completed, failed, totalRecommendations, totalViolations),
		Executive: buildExecutive(input, completed, failed, totalRecommendations),
	}
}

// buildOverview renders the narrative overview
func buildOverview(input SummaryInput, completed, failed []models.DimensionResult, totalRecommendations, totalViolations int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Architecture review evaluated %d dimension(s): %d completed, %d failed.",
		len(input.SelectedDimensions), len(completed), len(failed))
	fmt.Fprintf(&sb, " The completed analyses produced %d recommendation(s) and flagged %d governance violation(s).",
		totalRecommendations, totalViolations)

	if len(completed) > 0 {
		sb.WriteString("\n\nKey findings:")
		for _, result := range completed {
			fmt.Fprintf(&sb, "\n- %s: %s", result.DimensionID, excerpt(result.Findings))
		}
	}

	if input.VisionFindings != "" {
		fmt.Fprintf(&sb, "\n\nDiagram analysis: %s", excerpt(input.VisionFindings))
	}

	if input.GovernanceFindings != "" {
		fmt.Fprintf(&sb, "\n\nGovernance review: %s", excerpt(input.GovernanceFindings))
	}

	if len(failed) > 0 {
		fmt.Fprintf(&sb, "\n\n%d dimension(s) could not be evaluated; see the per-dimension detail for errors.", len(failed))
	}

	return sb.String()
}

// buildExecutive renders the prioritized digest
func buildExecutive(input SummaryInput, completed, failed []models.DimensionResult, totalRecommendations int) string {
	var sb strings.Builder

	immediate := immediateActionItems(completed, input.GovernanceViolations)
	if len(immediate) > 0 {
		sb.WriteString("Immediate action (high severity):")
		for _, item := range immediate {
			sb.WriteString("\n- " + item)
		}
	} else {
		sb.WriteString("No high-severity governance violations were detected.")
	}

	shortTerm := shortTermItems(completed)
	if len(shortTerm) > 0 {
		sb.WriteString("\n\nShort-term improvements:")
		for _, item := range shortTerm {
			sb.WriteString("\n- " + item)
		}
	}

	remaining := totalRecommendations - len(shortTerm)
	if remaining > 0 {
		fmt.Fprintf(&sb, "\n\n%d further recommendation(s) are deferred to the per-dimension detail.", remaining)
	}

	if len(failed) > 0 {
		fmt.Fprintf(&sb, "\n\n%d dimension(s) failed to complete and are excluded from this summary.", len(failed))
	}

	return sb.String()
}

// immediateActionItems collects high-severity violations, per-dimension order
// preserved within each dimension, dimensions in selection order, with the
// governance pass's own detections appended last
func immediateActionItems(completed []models.DimensionResult, governanceViolations []models.Violation) []string {
	var items []string

	for _, result := range completed {
		for _, violation := range result.GovernanceViolations {
			if violation.Severity != immediateActionSeverityThreshold {
				continue
			}
			items = append(items, formatViolation(string(result.DimensionID), violation))
		}
	}

	for _, violation := range governanceViolations {
		if violation.Severity != immediateActionSeverityThreshold {
			continue
		}
		items = append(items, formatViolation("governance", violation))
	}

	return items
}

// formatViolation renders one immediate-action line
func formatViolation(source string, violation models.Violation) string {
	correction := violation.RecommendedCorrection
	if correction == "" {
		correction = violation.Description
	}
	return fmt.Sprintf("[%s] %s: %s", source, violation.PolicyTitle, correction)
}

// shortTermItems takes each completed dimension's leading recommendations
func shortTermItems(completed []models.DimensionResult) []string {
	var items []string

	for _, result := range completed {
		for i, rec := range result.Recommendations {
			if i == shortTermItemsPerDimension {
				break
			}
			items = append(items, fmt.Sprintf("%s: %s", result.DimensionID, rec))
		}
	}

	return items
}

// excerpt condenses findings text: keep the first two segments longer than the
// minimum threshold, join them, cap the length. Advisory text only.
func excerpt(findings string) string {
	segments := strings.Split(findings, ".")

	var kept []string
	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if len(segment) <= excerptSegmentMinLength {
			continue
		}
		kept = append(kept, segment)
		if len(kept) == 2 {
			break
		}
	}

	var out string
	if len(kept) == 0 {
		out = strings.TrimSpace(findings)
	} else {
		out = strings.Join(kept, ". ") + "."
	}

	if len(out) > excerptMaxLength {
		out = out[:excerptMaxLength]
	}

	return out
}
