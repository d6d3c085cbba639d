package hrmerge

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttu-dot/fitanalysis"
)

var testStart = time.Date(2025, 12, 15, 20, 18, 18, 0, time.UTC)

func newActivity(start fitanalysis.Timestamp, n int) *fitanalysis.Activity {
	a := &fitanalysis.Activity{
		ID:      "a1",
		Session: fitanalysis.Session{Sport: "running", StartTime: start.Ptr()},
	}
	for i := 0; i < n; i++ {
		elapsed := float64(i)
		a.Records = append(a.Records, fitanalysis.Record{
			Timestamp:   start.Add(time.Duration(i) * time.Second).Ptr(),
			ElapsedTime: &elapsed,
			IQFields:    map[string]float64{},
		})
	}
	return a
}

// hrCSV builds a CSV with a summary block and one data row per value,
// starting at first and stepping step seconds.
func hrCSV(first time.Time, step int, values ...int) []byte {
	var b strings.Builder
	b.WriteString("Name,Sport,Date,Start time,Duration\n")
	fmt.Fprintf(&b, "ttu,Running,%s,%s,00:10:00\n", first.Format("2006-01-02"), first.Format("15:04:05"))
	b.WriteString("\n")
	b.WriteString("Time,Second,HR (bpm)\n")
	for i, v := range values {
		t := first.Add(time.Duration(i*step) * time.Second)
		fmt.Fprintf(&b, "%s,%d,%d\n", t.Format("15:04:05"), i*step, v)
	}
	return []byte(b.String())
}

func hrValue(t *testing.T, a *fitanalysis.Activity, i int, key string) (float64, bool) {
	t.Helper()
	v, ok := a.Records[i].IQFields[key]
	return v, ok
}

func TestMergeMetadataAlignAtOneHertz(t *testing.T) {
	a := newActivity(fitanalysis.NaiveTime(testStart), 11)
	values := make([]int, 11)
	for i := range values {
		values[i] = 120 + i
	}

	res, err := New(Config{}).Merge(a, hrCSV(testStart, 1, values...), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, MethodMetadataAlign, res.Method)
	assert.Equal(t, "imported_default_hr", res.FieldName)
	assert.Equal(t, 1.0, res.MatchRatio)
	assert.Equal(t, 0.0, res.OffsetSec)

	v, ok := hrValue(t, a, 0, "imported_default_hr")
	require.True(t, ok)
	assert.Equal(t, 120.0, v)
	v, ok = hrValue(t, a, 10, "imported_default_hr")
	require.True(t, ok)
	assert.Equal(t, 130.0, v)

	assert.Contains(t, a.AvailableIQFields, "imported_default_hr")
	require.NotNil(t, a.MergeProvenance)
	assert.Equal(t, "1", a.MergeProvenance.Version)
	assert.Equal(t, DecisionAuto, a.MergeProvenance.Decision)
	require.NotNil(t, a.MergeProvenance.Stats.DroppedRatio)
	assert.Equal(t, 0.0, *a.MergeProvenance.Stats.DroppedRatio)
	assert.Equal(t, 0.0, *a.MergeProvenance.Stats.InterpRatio)
}

func TestMergeInterpolatesSparseSamples(t *testing.T) {
	a := newActivity(fitanalysis.NaiveTime(testStart), 5)

	res, err := New(Config{}).Merge(a, hrCSV(testStart, 2, 100, 110, 120), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, MethodLinearInterpolate, res.Method)
	assert.Equal(t, 0.0, res.OffsetSec)
	assert.InDelta(t, 0.6, res.MatchRatio, 1e-9)

	want := []float64{100, 105, 110, 115, 120}
	for i, w := range want {
		v, ok := hrValue(t, a, i, "imported_default_hr")
		require.True(t, ok, "record %d has no value", i)
		assert.Equal(t, w, v, "record %d", i)
	}
	assert.Equal(t, 1.0, *a.MergeProvenance.Stats.InterpRatio)
	assert.Equal(t, 0.0, *a.MergeProvenance.Stats.DroppedRatio)
}

func TestMergeZonedActivityWithNaiveCSV(t *testing.T) {
	a := newActivity(fitanalysis.Zoned(testStart), 5)

	_, err := New(Config{}).Merge(a, hrCSV(testStart, 1, 140, 141, 142, 143, 144), nil, nil)
	require.NoError(t, err)

	v, ok := hrValue(t, a, 0, "imported_default_hr")
	require.True(t, ok)
	assert.Equal(t, 140.0, v)
}

func TestMergeRecoversLocalClockDrift(t *testing.T) {
	utcStart := time.Date(2025, 12, 15, 12, 18, 18, 0, time.UTC)
	a := newActivity(fitanalysis.Zoned(utcStart), 5)
	localWall := time.Date(2025, 12, 15, 20, 18, 18, 0, time.UTC)

	engine := New(Config{Local: time.FixedZone("UTC+8", 8*3600)})
	_, err := engine.Merge(a, hrCSV(localWall, 1, 140, 141, 142, 143, 144), nil, nil)
	require.NoError(t, err)

	v, ok := hrValue(t, a, 0, "imported_default_hr")
	require.True(t, ok)
	assert.Equal(t, 140.0, v)
	require.NotNil(t, a.MergeProvenance.Stats.DroppedRatio)
	assert.Less(t, *a.MergeProvenance.Stats.DroppedRatio, 1.0)
}

func TestMergeUsesDeviceNameColumn(t *testing.T) {
	a := newActivity(fitanalysis.NaiveTime(testStart), 3)
	data := []byte("Name,Sport,Date,Start time,Duration,Device Name\n" +
		"ttu,Running,2025-12-15,20:18:18,00:00:02,Polar H10\n" +
		"Time,Second,HR (bpm)\n" +
		"20:18:18,0,140\n" +
		"20:18:19,1,141\n" +
		"20:18:20,2,142\n")
	name := "polar.csv"

	res, err := New(Config{}).Merge(a, data, &name, nil)
	require.NoError(t, err)

	assert.Equal(t, "polar_h10", res.DeviceKey)
	assert.Equal(t, "imported_polar_h10_hr", res.FieldName)
	v, ok := hrValue(t, a, 2, "imported_polar_h10_hr")
	require.True(t, ok)
	assert.Equal(t, 142.0, v)

	src := a.MergeProvenance.Sources
	require.Len(t, src, 1)
	require.NotNil(t, src[0].DeviceName)
	assert.Equal(t, "Polar H10", *src[0].DeviceName)
	require.NotNil(t, src[0].FileName)
	assert.Equal(t, "polar.csv", *src[0].FileName)
}

func TestMergeFormatErrors(t *testing.T) {
	a := newActivity(fitanalysis.NaiveTime(testStart), 3)

	_, err := New(Config{}).Merge(a, []byte("a,b,c\n1,2,3\n"), nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingHeader))
	assert.True(t, errors.Is(err, ErrFormat))
	assert.Contains(t, err.Error(), "Time,Second,HR")

	_, err = New(Config{}).Merge(a, []byte("Time,Second,HR (bpm)\nnot-a-time,x,y\n"), nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSamples))
	assert.True(t, errors.Is(err, ErrFormat))

	assert.Nil(t, a.MergeProvenance)
	assert.Empty(t, a.AvailableIQFields)
}

func TestMergeTimeOnlyWithoutDateIsEmpty(t *testing.T) {
	a := newActivity(fitanalysis.NaiveTime(testStart), 3)
	data := []byte("Time,Second,HR (bpm)\n20:18:18,0,140\n20:18:19,1,141\n")

	_, err := New(Config{}).Merge(a, data, nil, nil)
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestMergeRequiresBaseTimestamp(t *testing.T) {
	a := &fitanalysis.Activity{Records: []fitanalysis.Record{{}, {}}}

	_, err := New(Config{}).Merge(a, hrCSV(testStart, 1, 140, 141), nil, nil)
	assert.ErrorIs(t, err, ErrNoBaseTimestamp)
}

func TestMergeRecoversKnownShift(t *testing.T) {
	// The activity clock runs 300 ms ahead of the CSV clock.
	a := newActivity(fitanalysis.NaiveTime(testStart.Add(300*time.Millisecond)), 60)
	values := make([]int, 60)
	for i := range values {
		values[i] = 100 + i%40
	}

	res, err := New(Config{}).Merge(a, hrCSV(testStart, 1, values...), nil, nil)
	require.NoError(t, err)

	assert.InDelta(t, -0.3, res.OffsetSec, 0.1)
	assert.Equal(t, MethodMetadataAlign, res.Method)
	assert.Equal(t, 1.0, res.MatchRatio)
	for _, i := range []int{0, 17, 59} {
		v, ok := hrValue(t, a, i, "imported_default_hr")
		require.True(t, ok, "record %d has no value", i)
		assert.Equal(t, float64(values[i]), v)
	}
}

func TestMergeGapPolicy(t *testing.T) {
	csv := hrCSV(testStart, 10, 100, 200)

	a := newActivity(fitanalysis.NaiveTime(testStart), 11)
	res, err := New(Config{}).Merge(a, csv, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, MethodLinearInterpolate, res.Method)
	for i := 1; i < 10; i++ {
		_, ok := hrValue(t, a, i, "imported_default_hr")
		assert.False(t, ok, "record %d should be dropped across a wide gap", i)
	}
	assert.Equal(t, 9, res.Dropped)
	assert.InDelta(t, 9.0/11.0, *a.MergeProvenance.Stats.DroppedRatio, 1e-9)

	wide := 20.0
	b := newActivity(fitanalysis.NaiveTime(testStart), 11)
	_, err = New(Config{}).Merge(b, csv, nil, &Options{InterpolateMaxGapSec: &wide})
	require.NoError(t, err)
	v, ok := hrValue(t, b, 5, "imported_default_hr")
	require.True(t, ok)
	assert.Equal(t, 150.0, v)
	assert.Equal(t, 20.0, b.MergeProvenance.Criteria.InterpolateMaxGapSec)
}

func TestMergeExtrapolation(t *testing.T) {
	csv := hrCSV(testStart.Add(time.Second), 1, 130, 131, 132)

	a := newActivity(fitanalysis.NaiveTime(testStart), 5)
	res, err := New(Config{}).Merge(a, csv, nil, nil)
	require.NoError(t, err)
	require.Equal(t, MethodLinearInterpolate, res.Method)
	_, ok := hrValue(t, a, 0, "imported_default_hr")
	assert.False(t, ok)
	_, ok = hrValue(t, a, 4, "imported_default_hr")
	assert.False(t, ok)

	allow := true
	b := newActivity(fitanalysis.NaiveTime(testStart), 5)
	_, err = New(Config{}).Merge(b, csv, nil, &Options{AllowExtrapolation: &allow})
	require.NoError(t, err)
	v, _ := hrValue(t, b, 0, "imported_default_hr")
	assert.Equal(t, 130.0, v)
	v, _ = hrValue(t, b, 4, "imported_default_hr")
	assert.Equal(t, 132.0, v)
}

func TestMergeUnresolvableRecordsAreDropped(t *testing.T) {
	a := newActivity(fitanalysis.NaiveTime(testStart), 4)
	a.Records[1].Timestamp = nil
	a.Records[2].Timestamp = nil
	a.Records[2].ElapsedTime = nil

	res, err := New(Config{}).Merge(a, hrCSV(testStart, 1, 140, 141, 142, 143), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Resolvable)
	assert.Equal(t, 1, res.Dropped)
	v, ok := hrValue(t, a, 1, "imported_default_hr")
	require.True(t, ok, "elapsed time should place the record")
	assert.Equal(t, 141.0, v)
	_, ok = hrValue(t, a, 2, "imported_default_hr")
	assert.False(t, ok)
}

func TestMergeIsDeterministic(t *testing.T) {
	src := newActivity(fitanalysis.NaiveTime(testStart), 30)
	csv := hrCSV(testStart.Add(time.Second), 2, 120, 124, 128, 131, 133, 135, 137, 140, 141, 143, 145, 146, 148, 150, 151)

	a, b := src.Clone(), src.Clone()
	_, err := New(Config{}).Merge(a, csv, nil, nil)
	require.NoError(t, err)
	_, err = New(Config{}).Merge(b, csv, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, a.MergeProvenance, b.MergeProvenance)
	assert.Equal(t, a.Records, b.Records)
	assert.Nil(t, src.MergeProvenance)
	assert.Empty(t, src.Records[0].IQFields)
}

func TestMergeKeepsAvailableFieldsSorted(t *testing.T) {
	a := newActivity(fitanalysis.NaiveTime(testStart), 3)
	a.AvailableIQFields = []string{"dr_gct", "z_field"}

	_, err := New(Config{}).Merge(a, hrCSV(testStart, 1, 140, 141, 142), nil, nil)
	require.NoError(t, err)
	_, err = New(Config{}).Merge(a, hrCSV(testStart, 1, 140, 141, 142), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"dr_gct", "imported_default_hr", "z_field"}, a.AvailableIQFields)
}

func TestMergeOfflineHeartRateCSVReturnsActivity(t *testing.T) {
	a := newActivity(fitanalysis.NaiveTime(testStart), 3)
	got, err := MergeOfflineHeartRateCSV(a, hrCSV(testStart, 1, 140, 141, 142), nil, nil)
	require.NoError(t, err)
	assert.Same(t, a, got)
	assert.Equal(t, DefaultCriteria(), got.MergeProvenance.Criteria)
}
