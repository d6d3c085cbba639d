package hrmerge

// Merge methods recorded in provenance.
const (
	MethodMetadataAlign     = "metadata_align"
	MethodLinearInterpolate = "linear_interpolate"
)

// DecisionAuto marks a method chosen by the match-ratio threshold.
const DecisionAuto = "auto"

const maxExactTolerance = 0.2

// ExactTolerance is the distance within which a shifted primary point
// counts as an exact match: a fifth of the match tolerance, capped at 0.2 s.
func ExactTolerance(c Criteria) float64 {
	if c.MatchToleranceSec <= 0 {
		return 0
	}
	return min(maxExactTolerance, c.MatchToleranceSec/5)
}

// MatchStats summarizes how well the shifted primary timeline lines up
// with the CSV samples.
type MatchStats struct {
	Total int
	// Near counts points with a sample within the full match tolerance.
	Near int
	// Exact counts points with a sample within ExactTolerance.
	Exact int
}

// Ratio is Exact/Total, or 0 without valid points.
func (m MatchStats) Ratio() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Exact) / float64(m.Total)
}

// Match evaluates every valid primary point shifted by offset.
func Match(points []Point, csvTimes []float64, offset float64, c Criteria) MatchStats {
	exactTol := ExactTolerance(c)
	var m MatchStats
	for _, p := range points {
		if !p.Valid {
			continue
		}
		m.Total++
		target := p.Offset + offset
		if hasMatchWithin(csvTimes, target, c.MatchToleranceSec) {
			m.Near++
		}
		if exactTol > 0 && hasMatchWithin(csvTimes, target, exactTol) {
			m.Exact++
		}
	}
	return m
}

// SelectMethod picks direct correspondence when the exact match ratio
// reaches the configured minimum, and interpolation otherwise.
func SelectMethod(m MatchStats, c Criteria) string {
	if m.Total > 0 && m.Ratio() >= c.MinMatchRatio {
		return MethodMetadataAlign
	}
	return MethodLinearInterpolate
}
