package usecase

import "math"

// normalizeScore maps a native relevance signal onto [0,1] regardless of
// the producing metric's scale:
//   - a similarity already in (0,1] passes through unchanged;
//   - a distance semantic (> 1, larger = less similar) maps via 1/(1+d);
//   - a signed or zero raw score maps via 1/(1+|s|).
//
// Idempotent on already-normalized positive inputs.
func normalizeScore(score float64) float64 {
	switch {
	case score > 1:
		return 1 / (1 + score)
	case score > 0:
		return score
	default:
		return 1 / (1 + math.Abs(score))
	}
}

// sigmoid maps a cross-encoder logit to a probability.
func sigmoid(logit float64) float64 {
	return 1 / (1 + math.Exp(-logit))
}
