package scorer

import (
	"fmt"
	"math"

	"github.com/dmalakhov/resume-ranker/internal/criteria"
)

// totalEpsilon absorbs float formatting noise when comparing the reported
// total against the recomputed sum.
const totalEpsilon = 1e-6

// WarningKind classifies a consistency violation in a score row.
type WarningKind string

const (
	// WarningScoreOutOfRange flags a leaf score outside its tier's bounds.
	WarningScoreOutOfRange WarningKind = "score_out_of_range"
	// WarningTotalMismatch flags a reported total that differs from the sum
	// of leaf scores.
	WarningTotalMismatch WarningKind = "total_mismatch"
)

// Warning is a detected violation of the scoring contract. Violations are
// reported, never silently corrected: clamping or rewriting would hide a
// model contract breach.
type Warning struct {
	Kind      WarningKind
	Tier      criteria.Tier
	Criterion string
	Value     float64
	Expected  float64
}

func (w Warning) String() string {
	switch w.Kind {
	case WarningScoreOutOfRange:
		return fmt.Sprintf("%s: %q scored %v, outside [%v, %v]",
			w.Tier.Label(), w.Criterion, w.Value, criteria.MinScore, w.Tier.MaxScore())
	case WarningTotalMismatch:
		return fmt.Sprintf("reported total %v does not match computed sum %v", w.Value, w.Expected)
	default:
		return string(w.Kind)
	}
}

// Check verifies a score row against the scoring contract: every leaf score
// within its tier's bounds and the reported total equal to the sum of leaves.
// The row itself is left untouched.
func Check(row *Row) []Warning {
	var warnings []Warning

	for _, tier := range criteria.Tiers {
		for name, score := range row.Scores[tier] {
			if score < criteria.MinScore || score > tier.MaxScore() {
				warnings = append(warnings, Warning{
					Kind:      WarningScoreOutOfRange,
					Tier:      tier,
					Criterion: name,
					Value:     score,
				})
			}
		}
	}

	computed := row.ComputedTotal()
	if math.Abs(row.TotalScore-computed) > totalEpsilon {
		warnings = append(warnings, Warning{
			Kind:     WarningTotalMismatch,
			Value:    row.TotalScore,
			Expected: computed,
		})
	}

	return warnings
}
