package hrmerge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttu-dot/fitanalysis"
)

func TestReconcilerCoerce(t *testing.T) {
	shanghai := time.FixedZone("UTC+8", 8*3600)
	r := Reconciler{Local: shanghai}
	wall := time.Date(2025, 12, 15, 20, 18, 18, 0, time.UTC)

	naiveBase := fitanalysis.NaiveTime(wall)
	got := r.Coerce(fitanalysis.NaiveTime(wall.Add(time.Second)), naiveBase)
	assert.True(t, got.Naive)
	assert.Equal(t, 1.0, got.Sub(naiveBase.Time).Seconds())

	zoned := fitanalysis.Zoned(time.Date(2025, 12, 15, 21, 18, 18, 0, time.FixedZone("UTC+1", 3600)))
	got = r.Coerce(zoned, naiveBase)
	assert.True(t, got.Naive)
	assert.Equal(t, wall, got.Time)

	zonedBase := fitanalysis.Zoned(wall.In(shanghai))
	got = r.Coerce(zoned, zonedBase)
	assert.False(t, got.Naive)
	assert.Equal(t, shanghai, got.Location())
	assert.True(t, got.Equal(wall))

	// naive within six hours of a zoned base is read in the base zone
	utcBase := fitanalysis.Zoned(wall)
	got = r.Coerce(fitanalysis.NaiveTime(wall.Add(2*time.Hour)), utcBase)
	assert.Equal(t, 2*time.Hour, got.Sub(wall))

	// beyond six hours it is re-read as local time
	got = r.Coerce(fitanalysis.NaiveTime(wall.Add(8*time.Hour)), utcBase)
	assert.Equal(t, time.Duration(0), got.Sub(wall))
	assert.Equal(t, time.UTC, got.Location())
}

func TestBaseTimestampFallsBackToFirstRecord(t *testing.T) {
	first := fitanalysis.NaiveTime(testStart)
	a := &fitanalysis.Activity{Records: []fitanalysis.Record{{}, {Timestamp: first.Ptr()}}}

	base, err := BaseTimestamp(a)
	require.NoError(t, err)
	assert.Equal(t, first, base)

	_, err = BaseTimestamp(&fitanalysis.Activity{})
	assert.ErrorIs(t, err, ErrNoBaseTimestamp)
}

func TestPrimaryTimeline(t *testing.T) {
	base := fitanalysis.Zoned(testStart)
	elapsed := 7.5
	ts := fitanalysis.Zoned(testStart.Add(3 * time.Second))
	a := &fitanalysis.Activity{Records: []fitanalysis.Record{
		{Timestamp: &ts},
		{ElapsedTime: &elapsed},
		{},
	}}

	points := PrimaryTimeline(a, base, Reconciler{})
	require.Len(t, points, 3)
	assert.Equal(t, Point{Offset: 3, Valid: true}, points[0])
	assert.Equal(t, Point{Offset: 7.5, Valid: true}, points[1])
	assert.False(t, points[2].Valid)
}

func TestEstimateOffsetRoundTrip(t *testing.T) {
	for _, shift := range []float64{0, 0.3, -0.4, 0.2} {
		points := make([]Point, 120)
		csvTimes := make([]float64, 120)
		for i := range points {
			points[i] = Point{Offset: float64(i), Valid: true}
			csvTimes[i] = float64(i) + shift
		}
		c := DefaultCriteria()
		offset := EstimateOffset(points, csvTimes, c)
		assert.InDelta(t, shift, offset, 0.1, "shift %v", shift)

		m := Match(points, csvTimes, offset, c)
		assert.Equal(t, 1.0, m.Ratio(), "shift %v", shift)
		assert.Equal(t, MethodMetadataAlign, SelectMethod(m, c))
	}
}

func TestEstimateOffsetIgnoresLargeShifts(t *testing.T) {
	points := []Point{{Offset: 0, Valid: true}, {Offset: 1, Valid: true}}
	csvTimes := []float64{100, 101}
	assert.Equal(t, 0.0, EstimateOffset(points, csvTimes, DefaultCriteria()))
	assert.Equal(t, 0.0, EstimateOffset(points, nil, DefaultCriteria()))
}

func TestEstimateOffsetFirstBinWinsTies(t *testing.T) {
	points := []Point{{Offset: 0, Valid: true}, {Offset: 10, Valid: true}}
	csvTimes := []float64{2, 7}
	// deltas +2 then -3, one each
	assert.Equal(t, 2.0, EstimateOffset(points, csvTimes, DefaultCriteria()))
}

func TestEstimateOffsetUsesFirst800Points(t *testing.T) {
	points := make([]Point, 1000)
	csvTimes := make([]float64, 0, 1000)
	for i := range points {
		points[i] = Point{Offset: float64(i), Valid: true}
		if i < 800 {
			csvTimes = append(csvTimes, float64(i)+0.5)
		}
	}
	for i := 800; i < 1000; i++ {
		csvTimes = append(csvTimes, float64(i)+0.3)
	}
	assert.Equal(t, 0.5, EstimateOffset(points, csvTimes, DefaultCriteria()))
}

func TestExactTolerance(t *testing.T) {
	c := DefaultCriteria()
	assert.Equal(t, 0.2, ExactTolerance(c))
	c.MatchToleranceSec = 0.5
	assert.InDelta(t, 0.1, ExactTolerance(c), 1e-12)
	c.MatchToleranceSec = 0
	assert.Equal(t, 0.0, ExactTolerance(c))
}

func TestMatchWithoutToleranceSelectsInterpolation(t *testing.T) {
	c := DefaultCriteria()
	c.MatchToleranceSec = 0
	points := []Point{{Offset: 0, Valid: true}, {Offset: 1, Valid: true}}
	m := Match(points, []float64{0, 1}, 0, c)
	assert.Equal(t, 0, m.Exact)
	assert.Equal(t, MethodLinearInterpolate, SelectMethod(m, c))
	assert.Equal(t, MethodLinearInterpolate, SelectMethod(MatchStats{}, DefaultCriteria()))
}

func TestResolverInterpolate(t *testing.T) {
	c := DefaultCriteria()
	r := newResolver([]float64{0, 2, 2, 10}, []int{100, 110, 111, 150}, MethodLinearInterpolate, c)

	v, ok := r.resolve(1)
	require.True(t, ok)
	assert.Equal(t, 105, v)

	v, ok = r.resolve(2)
	require.True(t, ok)
	assert.Equal(t, 110, v, "exact sample uses the first equal time")

	_, ok = r.resolve(6)
	assert.False(t, ok, "bracket wider than the max gap")

	_, ok = r.resolve(-1)
	assert.False(t, ok)
	_, ok = r.resolve(11)
	assert.False(t, ok)

	// banker's rounding of the blended value
	r = newResolver([]float64{0, 4}, []int{100, 101}, MethodLinearInterpolate, c)
	v, _ = r.resolve(2)
	assert.Equal(t, 100, v)
}

func TestResolverNearest(t *testing.T) {
	r := newResolver([]float64{0, 1, 2}, []int{120, 121, 122}, MethodMetadataAlign, DefaultCriteria())

	v, ok := r.resolve(1.15)
	require.True(t, ok)
	assert.Equal(t, 121, v)

	_, ok = r.resolve(1.5)
	assert.False(t, ok)
}

func TestOptionsResolveAndParse(t *testing.T) {
	form := map[string]string{
		"auto_align_max_shift_sec":   "12",
		"auto_align_min_match_ratio": " 0.5 ",
		"allow_extrapolation":        "true",
	}
	opts, err := ParseOptions(func(k string) string { return form[k] })
	require.NoError(t, err)

	c := opts.Resolve(DefaultCriteria())
	assert.Equal(t, 12.0, c.MaxShiftSec)
	assert.Equal(t, 0.5, c.MinMatchRatio)
	assert.True(t, c.AllowExtrapolation)
	assert.Equal(t, 1.0, c.MatchToleranceSec)
	assert.Equal(t, 5.0, c.InterpolateMaxGapSec)

	var nilOpts *Options
	assert.Equal(t, DefaultCriteria(), nilOpts.Resolve(DefaultCriteria()))

	_, err = ParseOptions(func(k string) string {
		if k == "interpolate_max_gap_sec" {
			return "wide"
		}
		return ""
	})
	assert.Error(t, err)
}
