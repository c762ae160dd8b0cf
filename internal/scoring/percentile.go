// Package scoring turns a fund's NAV history plus its peer group into a
// composite percentile-based score, quartile, and recommendation.
package scoring

// Polarity declares which direction of a metric is favorable.
type Polarity int

const (
	// HigherIsBetter ranks larger metric values above smaller ones.
	HigherIsBetter Polarity = iota
	// LowerIsBetter ranks smaller metric values above larger ones.
	LowerIsBetter
)

// defaultBandFraction is the points fraction awarded when no peer population
// exists for a sub-metric. It equals the 50th-percentile band so a fund with
// no comparison population lands mid-pack instead of failing or zeroing.
const defaultBandFraction = 0.6

// ScoreMetric maps a metric value against a peer distribution to a point
// score. The percentile is the fraction of peers strictly worse than the
// value under the given polarity; fixed bands then translate the percentile
// into a share of maxPoints. The bands are a design constant and must remain
// stable across runs for score comparability.
func ScoreMetric(value float64, peerValues []float64, polarity Polarity, maxPoints float64) float64 {
	if len(peerValues) == 0 {
		return maxPoints * defaultBandFraction
	}

	worse := 0
	for _, peer := range peerValues {
		switch polarity {
		case HigherIsBetter:
			if peer < value {
				worse++
			}
		case LowerIsBetter:
			if peer > value {
				worse++
			}
		}
	}

	percentile := float64(worse) / float64(len(peerValues)) * 100
	return maxPoints * bandFraction(percentile)
}

// DefaultScore returns the points awarded for a sub-metric with no usable
// comparison data, the documented "no data available" policy.
func DefaultScore(maxPoints float64) float64 {
	return maxPoints * defaultBandFraction
}

func bandFraction(percentile float64) float64 {
	switch {
	case percentile >= 90:
		return 1.0
	case percentile >= 75:
		return 0.8
	case percentile >= 50:
		return 0.6
	case percentile >= 25:
		return 0.4
	default:
		return 0.2
	}
}
