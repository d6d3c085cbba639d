package hrmerge

import (
	"math"

	"github.com/ttu-dot/fitanalysis"
)

// Point is one primary-timeline entry. Valid is false when the record has
// neither a timestamp nor an elapsed time.
type Point struct {
	Offset float64
	Valid  bool
}

// BaseTimestamp returns the session start time, or the first record
// timestamp when the session has none.
func BaseTimestamp(a *fitanalysis.Activity) (fitanalysis.Timestamp, error) {
	if a.Session.StartTime != nil {
		return *a.Session.StartTime, nil
	}
	for _, rec := range a.Records {
		if rec.Timestamp != nil {
			return *rec.Timestamp, nil
		}
	}
	return fitanalysis.Timestamp{}, ErrNoBaseTimestamp
}

// PrimaryTimeline maps every record of a to seconds relative to base.
// Records without a timestamp fall back to base plus their elapsed time.
func PrimaryTimeline(a *fitanalysis.Activity, base fitanalysis.Timestamp, r Reconciler) []Point {
	points := make([]Point, len(a.Records))
	for i, rec := range a.Records {
		var dt fitanalysis.Timestamp
		switch {
		case rec.Timestamp != nil:
			dt = *rec.Timestamp
		case rec.ElapsedTime != nil && !math.IsNaN(*rec.ElapsedTime):
			dt = base.Add(secondsToDuration(*rec.ElapsedTime))
		default:
			continue
		}
		points[i] = Point{Offset: r.Offset(dt, base), Valid: true}
	}
	return points
}

// SecondaryTimeline returns the sample offsets in seconds relative to base
// and their values, in sample order.
func SecondaryTimeline(samples []Sample, base fitanalysis.Timestamp, r Reconciler) ([]float64, []int) {
	times := make([]float64, len(samples))
	values := make([]int, len(samples))
	for i, s := range samples {
		times[i] = r.Offset(s.T, base)
		values[i] = s.BPM
	}
	return times, values
}

// validOffsets returns the offsets of valid points among the first limit
// entries; limit <= 0 means all.
func validOffsets(points []Point, limit int) []float64 {
	if limit <= 0 || limit > len(points) {
		limit = len(points)
	}
	out := make([]float64, 0, limit)
	for _, p := range points[:limit] {
		if p.Valid {
			out = append(out, p.Offset)
		}
	}
	return out
}
