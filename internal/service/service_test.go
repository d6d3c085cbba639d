package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttu-dot/fitanalysis"
	"github.com/ttu-dot/fitanalysis/internal/fittest"
	"github.com/ttu-dot/fitanalysis/store"
)

func TestImportThenMergeKeepsOriginal(t *testing.T) {
	st, err := store.Open(":memory:", nil)
	require.NoError(t, err)
	defer st.Close()

	start := time.Date(2025, 12, 15, 7, 30, 0, 0, time.UTC)
	svc := New(Config{Store: st})

	data, err := fittest.RunActivity(start, 10)
	require.NoError(t, err)
	a, meta, err := svc.Import(t.Context(), data, "track.fit", "Track session")
	require.NoError(t, err)
	assert.Equal(t, "Track session", a.Name)
	assert.Equal(t, a.ID, meta.ID)
	assert.NotEmpty(t, a.ID)

	_, _, err = svc.MergeHRCSV(t.Context(), a.ID, []byte("no,header\n"), "hr.csv", nil)
	require.Error(t, err)

	_, _, err = svc.MergeHRCSV(t.Context(), "missing", nil, "", nil)
	assert.True(t, errors.Is(err, store.ErrActivityNotFound))

	stored, err := st.Get(t.Context(), a.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.MergeProvenance)
}

func TestMergeNamesCopy(t *testing.T) {
	st, err := store.Open(":memory:", nil)
	require.NoError(t, err)
	defer st.Close()

	start := fitanalysis.NaiveTime(time.Date(2025, 12, 15, 7, 30, 0, 0, time.UTC))
	hr := 140
	src := &fitanalysis.Activity{
		ID:      "orig",
		Name:    "Intervals",
		Session: fitanalysis.Session{Sport: "running", StartTime: start.Ptr()},
	}
	for i := range 3 {
		elapsed := float64(i)
		src.Records = append(src.Records, fitanalysis.Record{
			Timestamp:   start.Add(time.Duration(i) * time.Second).Ptr(),
			ElapsedTime: &elapsed,
			HeartRate:   &hr,
		})
	}
	_, err = st.Save(t.Context(), src)
	require.NoError(t, err)

	csv := "Time,Second,HR (bpm)\n2025-12-15 07:30:00,0,150\n2025-12-15 07:30:01,1,151\n2025-12-15 07:30:02,2,152\n"
	svc := New(Config{Store: st, NewID: func() string { return "copy" }})
	merged, res, err := svc.MergeHRCSV(t.Context(), "orig", []byte(csv), "", nil)
	require.NoError(t, err)

	assert.Equal(t, "copy", merged.ID)
	assert.Equal(t, MergeNamePrefix+"Intervals", merged.Name)
	assert.Equal(t, 3, res.Written)
	assert.Equal(t, 152.0, merged.Records[2].IQFields["imported_default_hr"])
}
