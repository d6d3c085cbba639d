package hrmerge

import (
	"math"
	"sort"
)

// resolver produces one value per primary point under a fixed method.
type resolver struct {
	times    []float64
	values   []int
	method   string
	exactTol float64
	maxGap   float64
	extrap   bool
}

func newResolver(times []float64, values []int, method string, c Criteria) resolver {
	return resolver{
		times:    times,
		values:   values,
		method:   method,
		exactTol: ExactTolerance(c),
		maxGap:   c.InterpolateMaxGapSec,
		extrap:   c.AllowExtrapolation,
	}
}

func (r resolver) resolve(target float64) (int, bool) {
	if r.method == MethodMetadataAlign {
		return r.nearest(target)
	}
	return r.interpolate(target)
}

// nearest accepts the closest sample only when it is within the exact
// tolerance.
func (r resolver) nearest(target float64) (int, bool) {
	i, ok := nearestIndex(r.times, target)
	if !ok || math.Abs(r.times[i]-target) > r.exactTol {
		return 0, false
	}
	return r.values[i], true
}

// interpolate linearly blends the samples bracketing target. Outside the
// sample range the edge value is used only when extrapolation is allowed;
// brackets wider than the max gap yield nothing.
func (r resolver) interpolate(target float64) (int, bool) {
	n := len(r.times)
	if n == 0 {
		return 0, false
	}
	i := sort.SearchFloat64s(r.times, target)
	if i < n && r.times[i] == target {
		return r.values[i], true
	}

	left, right := i-1, i
	if left < 0 {
		return r.values[0], r.extrap
	}
	if right >= n {
		return r.values[n-1], r.extrap
	}

	t0, t1 := r.times[left], r.times[right]
	if t1 <= t0 {
		return r.values[left], true
	}
	if t1-t0 > r.maxGap {
		return 0, false
	}
	v0, v1 := float64(r.values[left]), float64(r.values[right])
	alpha := (target - t0) / (t1 - t0)
	return int(math.RoundToEven((1-alpha)*v0 + alpha*v1)), true
}
