// Package features contains the behavioral feature vector passed between
// layers and the aggregation that produces it from per-frame signals.
package features

// VectorSize is the fixed input width of the scoring model.
const VectorSize = 7

// Feature names in model input order. The order is part of the model
// contract and must never change without retraining.
const (
	NameEyeContactFrequency     = "eye_contact_frequency"
	NameMovementVariance        = "movement_variance"
	NameRepetitiveMotionScore   = "repetitive_motion_score"
	NameSocialEngagement        = "social_engagement"
	NameFacialExpressionChanges = "facial_expression_changes"
	NameBodyMovementPatterns    = "body_movement_patterns"
	NameDurationSeconds         = "duration_seconds"
)

// Autocorrelation parameters for the repetitive motion score.
const (
	// autocorrMinSamples is the minimum number of motion samples before the
	// score is meaningful; below it the score is defined as 0.
	autocorrMinSamples = 10
	// autocorrMaxLag bounds the scanned lag window.
	autocorrMaxLag = 20
)

// FeatureSet is the aggregated description of one clip.
type FeatureSet struct {
	// EyeContactFrequency is the fraction of sampled frames with at least
	// one detected face. Always within [0,1].
	EyeContactFrequency float64

	// MovementVariance is the population variance of per-pair mean optical
	// flow magnitudes.
	MovementVariance float64

	// RepetitiveMotionScore is the normalized autocorrelation peak of the
	// motion series over lags 1..19.
	RepetitiveMotionScore float64

	// SocialEngagement combines eye contact and motion repetitiveness.
	// Deliberately unclamped: a repetitive score above 1 drives it negative,
	// and the model consumes the raw value.
	SocialEngagement float64

	// FacialExpressionChanges is reserved; expression tracking never shipped
	// but the model was trained with the slot present. Always 0.
	FacialExpressionChanges float64

	// BodyMovementPatterns is the mean flow magnitude across the clip.
	BodyMovementPatterns float64

	// DurationSeconds is frame count over FPS, or 0 when FPS is unknown.
	DurationSeconds float64
}

// Vector returns the features in model input order.
func (f FeatureSet) Vector() []float64 {
	return []float64{
		f.EyeContactFrequency,
		f.MovementVariance,
		f.RepetitiveMotionScore,
		f.SocialEngagement,
		f.FacialExpressionChanges,
		f.BodyMovementPatterns,
		f.DurationSeconds,
	}
}

// Map returns the features keyed by their canonical names.
func (f FeatureSet) Map() map[string]float64 {
	return map[string]float64{
		NameEyeContactFrequency:     f.EyeContactFrequency,
		NameMovementVariance:        f.MovementVariance,
		NameRepetitiveMotionScore:   f.RepetitiveMotionScore,
		NameSocialEngagement:        f.SocialEngagement,
		NameFacialExpressionChanges: f.FacialExpressionChanges,
		NameBodyMovementPatterns:    f.BodyMovementPatterns,
		NameDurationSeconds:         f.DurationSeconds,
	}
}

// Aggregate folds per-frame signals into a FeatureSet. faceCounts holds the
// number of faces detected in each sampled frame; motion holds the mean flow
// magnitude for each consecutive sampled-frame pair (one fewer entry than
// frames). Aggregation is pure: the same signals always produce the same set.
func Aggregate(faceCounts []int, motion []float64, durationSeconds float64) FeatureSet {
	eyeContact := faceFraction(faceCounts)
	repetitive := repetitiveScore(motion)

	return FeatureSet{
		EyeContactFrequency:     eyeContact,
		MovementVariance:        variance(motion),
		RepetitiveMotionScore:   repetitive,
		SocialEngagement:        eyeContact * (1 - repetitive),
		FacialExpressionChanges: 0,
		BodyMovementPatterns:    mean(motion),
		DurationSeconds:         durationSeconds,
	}
}

// faceFraction returns the fraction of frames with at least one face.
func faceFraction(faceCounts []int) float64 {
	if len(faceCounts) == 0 {
		return 0
	}
	withFace := 0
	for _, n := range faceCounts {
		if n > 0 {
			withFace++
		}
	}
	return float64(withFace) / float64(len(faceCounts))
}

// mean returns the arithmetic mean, or 0 for an empty series.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// variance returns the population variance, or 0 for an empty series.
func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}

// repetitiveScore computes the peak raw autocorrelation of the motion series
// over lags 1..autocorrMaxLag-1, normalized by the lag-0 energy. Series of
// autocorrMinSamples or fewer score 0, as does a series with zero energy.
func repetitiveScore(motion []float64) float64 {
	n := len(motion)
	if n <= autocorrMinSamples {
		return 0
	}

	energy := autocorrelate(motion, 0)
	if energy == 0 {
		return 0
	}

	maxLag := n
	if maxLag > autocorrMaxLag {
		maxLag = autocorrMaxLag
	}

	best := 0.0
	for lag := 1; lag < maxLag; lag++ {
		if ac := autocorrelate(motion, lag); ac > best {
			best = ac
		}
	}
	return best / energy
}

// autocorrelate returns the raw (unnormalized) autocorrelation at the given
// non-negative lag.
func autocorrelate(values []float64, lag int) float64 {
	sum := 0.0
	for i := 0; i+lag < len(values); i++ {
		sum += values[i] * values[i+lag]
	}
	return sum
}
