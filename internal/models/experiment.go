package models

// ExperimentOutcome classifies feedback for experiment attribution.
type ExperimentOutcome string

// Experiment outcomes.
const (
	OutcomePositive ExperimentOutcome = "positive"
	OutcomeNegative ExperimentOutcome = "negative"
)

// VariantControl is the baseline variant. Outcomes for it are not tracked.
const VariantControl = "control"

// VariantStats holds the append-only counters for one experiment variant.
type VariantStats struct {
	VariantID string `json:"variant_id"`
	Positives int64  `json:"positives"`
	Negatives int64  `json:"negatives"`
	Clicks    int64  `json:"clicks"`
}

// AcceptanceRate is positives over total attributed outcomes, 0 when no outcomes.
func (s VariantStats) AcceptanceRate() float64 {
	total := s.Positives + s.Negatives
	if total == 0 {
		return 0
	}

	return float64(s.Positives) / float64(total)
}
