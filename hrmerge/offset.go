package hrmerge

import (
	"math"
	"sort"
)

// offsetSampleLimit bounds how many primary points feed the offset histogram.
const offsetSampleLimit = 800

// nearestIndex returns the index of the sample closest to t, comparing the
// insertion point with its left neighbour. Ties go to the insertion point.
// ok is false when times is empty.
func nearestIndex(times []float64, t float64) (int, bool) {
	if len(times) == 0 {
		return 0, false
	}
	i := sort.SearchFloat64s(times, t)
	switch {
	case i >= len(times):
		return i - 1, true
	case i == 0:
		return 0, true
	}
	if math.Abs(times[i-1]-t) < math.Abs(times[i]-t) {
		return i - 1, true
	}
	return i, true
}

// hasMatchWithin reports whether a sample lies within tol of t.
func hasMatchWithin(times []float64, t, tol float64) bool {
	i := sort.SearchFloat64s(times, t)
	if i < len(times) && math.Abs(times[i]-t) <= tol {
		return true
	}
	return i > 0 && math.Abs(times[i-1]-t) <= tol
}

type offsetBin struct {
	value float64
	count int
}

// EstimateOffset returns the most frequent 0.1 s bin of nearest-neighbour
// deltas (secondary minus primary) over the first 800 valid primary
// points. Deltas beyond maxShift are ignored; when several bins share the
// highest count the one seen first wins. No usable delta yields 0.
func EstimateOffset(points []Point, csvTimes []float64, c Criteria) float64 {
	maxShift := c.MaxShiftSec
	window := maxShift + c.MatchToleranceSec

	var bins []offsetBin
	index := make(map[float64]int)
	for _, t := range validOffsets(points, offsetSampleLimit) {
		i, ok := nearestIndex(csvTimes, t)
		if !ok {
			break
		}
		delta := csvTimes[i] - t
		if math.Abs(delta) > window || math.Abs(delta) > maxShift {
			continue
		}
		binned := math.RoundToEven(delta*10) / 10
		if pos, seen := index[binned]; seen {
			bins[pos].count++
			continue
		}
		index[binned] = len(bins)
		bins = append(bins, offsetBin{value: binned, count: 1})
	}

	best := offsetBin{}
	for _, b := range bins {
		if b.count > best.count {
			best = b
		}
	}
	if best.value == 0 {
		return 0 // normalize -0
	}
	return best.value
}
