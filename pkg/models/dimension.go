package models

// Dimension identifies one independently-evaluated aspect of a reviewed document.
// The set is closed; free-form strings are rejected at the boundary.
type Dimension string

const (
	// DimensionOperationalExcellence covers operations, monitoring and change management
	DimensionOperationalExcellence Dimension = "operational_excellence"

	// DimensionSecurity covers identity, data protection and threat surface
	DimensionSecurity Dimension = "security"

	// DimensionReliability covers failure handling, recovery and availability
	DimensionReliability Dimension = "reliability"

	// DimensionPerformance covers resource selection, scaling and latency
	DimensionPerformance Dimension = "performance_efficiency"

	// DimensionCostOptimization covers spend awareness and resource efficiency
	DimensionCostOptimization Dimension = "cost_optimization"

	// DimensionSustainability covers environmental impact of the architecture
	DimensionSustainability Dimension = "sustainability"
)

// KnownDimensions lists every dimension the system can evaluate, in canonical order
func KnownDimensions() []Dimension {
	return []Dimension{
		DimensionOperationalExcellence,
		DimensionSecurity,
		DimensionReliability,
		DimensionPerformance,
		DimensionCostOptimization,
		DimensionSustainability,
	}
}

// ParseDimension validates a dimension identifier at the boundary
func ParseDimension(s string) (Dimension, error) {
	for _, d := range KnownDimensions() {
		if Dimension(s) == d {
			return d, nil
		}
	}
	return "", NewValidationError("unknown dimension: %q", s)
}
