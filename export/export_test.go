package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttu-dot/fitanalysis"
)

func ptr[T any](v T) *T { return &v }

func testActivity() *fitanalysis.Activity {
	start := time.Date(2025, 12, 15, 12, 0, 0, 0, time.UTC)
	a := &fitanalysis.Activity{
		ID:   "a1",
		Name: "Run",
		Session: fitanalysis.Session{
			Sport:            "running",
			SubSport:         ptr("track"),
			StartTime:        fitanalysis.Zoned(start).Ptr(),
			TotalElapsedTime: ptr(3723.0),
			TotalDistance:    ptr(10004.0),
			AvgSpeed:         ptr(2.5),
			AvgHeartRate:     ptr(150),
			IQFields:         map[string]float64{"dr_gct": 241},
		},
		Laps: []fitanalysis.Lap{
			{LapNumber: 1, TotalElapsedTime: ptr(400.0), TotalDistance: ptr(1000.0), AvgSpeed: ptr(2.5)},
			{LapNumber: 2, TotalElapsedTime: ptr(0.0), TotalDistance: ptr(0.0)},
		},
	}
	for i := range 3 {
		ts := fitanalysis.Zoned(start.Add(time.Duration(i) * time.Second))
		rec := fitanalysis.Record{
			Timestamp:   &ts,
			ElapsedTime: ptr(float64(i)),
			Distance:    ptr(float64(i) * 2.5),
			Speed:       ptr(2.5),
			HeartRate:   ptr(140 + i),
			IQFields:    map[string]float64{},
		}
		if i > 0 {
			rec.IQFields["imported_polar_h10_hr"] = float64(150 + i)
		}
		a.Records = append(a.Records, rec)
	}
	return a
}

func readTable(t *testing.T, data []byte) []map[string]string {
	t.Helper()
	lines, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, lines)
	out := make([]map[string]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		m := map[string]string{}
		for i, col := range lines[0] {
			m[col] = line[i]
		}
		out = append(out, m)
	}
	return out
}

func TestRecordsCSV(t *testing.T) {
	data, err := RecordsCSV(testActivity(), nil)
	require.NoError(t, err)

	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	require.NoError(t, err)
	assert.IsIncreasing(t, header)
	assert.Contains(t, header, "iq_imported_polar_h10_hr")

	rows := readTable(t, data)
	require.Len(t, rows, 3)
	assert.Equal(t, "2025-12-15 12:00:00", rows[0]["timestamp"])
	assert.Equal(t, "0:00", rows[0]["elapsed_time_formatted"])
	assert.Equal(t, "0", rows[0]["distance_km"])
	assert.Equal(t, "6:40", rows[0]["pace_min_km"])
	assert.Equal(t, "", rows[0]["iq_imported_polar_h10_hr"])
	assert.Equal(t, "152", rows[2]["iq_imported_polar_h10_hr"])
	assert.Equal(t, "", rows[2]["power_w"])
}

func TestRecordsCSVIncludeKeepsTimeColumns(t *testing.T) {
	data, err := RecordsCSV(testActivity(), []string{"heart_rate_bpm", "iq_imported_polar_h10_hr"})
	require.NoError(t, err)

	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"elapsed_time", "heart_rate_bpm", "iq_imported_polar_h10_hr", "timestamp"}, header)
}

func TestRecordsCSVEmpty(t *testing.T) {
	data, err := RecordsCSV(&fitanalysis.Activity{}, nil)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestLapsAndSessionCSV(t *testing.T) {
	data, err := LapsCSV(testActivity())
	require.NoError(t, err)
	laps := readTable(t, data)
	require.Len(t, laps, 2)
	assert.Equal(t, "1", laps[0]["lap_number"])
	assert.Equal(t, "6:40", laps[0]["total_elapsed_time_formatted"])
	assert.Equal(t, "1", laps[0]["total_distance_km"])
	assert.Equal(t, "", laps[1]["total_elapsed_time_formatted"])
	assert.Equal(t, "", laps[1]["total_distance_km"])
	assert.Equal(t, "", laps[1]["avg_pace_min_km"])

	data, err = SessionCSV(testActivity())
	require.NoError(t, err)
	session := readTable(t, data)
	require.Len(t, session, 1)
	assert.Equal(t, "track", session[0]["sub_sport"])
	assert.Equal(t, "1:02:03", session[0]["total_elapsed_time_formatted"])
	assert.Equal(t, "10.004", session[0]["total_distance_km"])
	assert.Equal(t, "241", session[0]["iq_dr_gct"])
}

func TestCategorizedZIP(t *testing.T) {
	data, err := CategorizedZIP(testActivity())
	require.NoError(t, err)

	again, err := CategorizedZIP(testActivity())
	require.NoError(t, err)
	assert.Equal(t, data, again, "archive should be deterministic")

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		assert.Equal(t, zip.Deflate, f.Method)
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.NotEmpty(t, body)
	}
	assert.Equal(t, []string{"laps.csv", "records.csv", "session.csv"}, names)
}

func TestWithBOM(t *testing.T) {
	out := WithBOM([]byte("a,b\n"))
	assert.Equal(t, []byte("\xEF\xBB\xBFa,b\n"), out)
	assert.Equal(t, out, WithBOM(out))
}
