package attendance

import (
	"fmt"

	"github.com/classtrack/classtrack/internal/domain/shared"
)

// DefaultThreshold is the attendance count at which a tally turns critical.
const DefaultThreshold = 10

// RiskTier is the classification of a tally against the threshold.
type RiskTier string

const (
	TierNormal   RiskTier = "normal"
	TierCritical RiskTier = "critical"
)

// IsCritical reports whether the tier is critical.
func (r RiskTier) IsCritical() bool {
	return r == TierCritical
}

// String returns the tier name.
func (r RiskTier) String() string {
	return string(r)
}

// Classification is the result of classifying one tally.
type Classification struct {
	Tier RiskTier

	// NormalizedProgress is Count/Threshold and is not clamped:
	// 15 events against 10 yields 1.5.
	NormalizedProgress float64

	Count     int
	Threshold int
}

// Classify maps a tally to a tier and normalized progress.
// Critical iff Count >= threshold.
func Classify(t SubjectTally, threshold int) (Classification, error) {
	if threshold <= 0 {
		return Classification{}, &shared.InvalidThresholdError{Threshold: threshold}
	}

	tier := TierNormal
	if t.Count >= threshold {
		tier = TierCritical
	}

	return Classification{
		Tier:               tier,
		NormalizedProgress: float64(t.Count) / float64(threshold),
		Count:              t.Count,
		Threshold:          threshold,
	}, nil
}

// ClassifyDefault classifies against DefaultThreshold.
func ClassifyDefault(t SubjectTally) Classification {
	c, _ := Classify(t, DefaultThreshold)
	return c
}

// ClampedProgress returns NormalizedProgress bounded to [0, 1] for renderers
// that cannot draw past full.
func (c Classification) ClampedProgress() float64 {
	switch {
	case c.NormalizedProgress < 0:
		return 0
	case c.NormalizedProgress > 1:
		return 1
	default:
		return c.NormalizedProgress
	}
}

// Label renders "count/threshold".
func (c Classification) Label() string {
	return fmt.Sprintf("%d/%d", c.Count, c.Threshold)
}
