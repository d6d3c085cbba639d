package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttu-dot/fitanalysis/internal/fittest"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestImportListMergeExport(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	t.Setenv("FITANALYSIS_LOG_LEVEL", "error")

	fitBytes, err := fittest.RunActivity(time.Date(2025, 12, 15, 7, 0, 0, 0, time.UTC), 60)
	require.NoError(t, err)
	fitPath := filepath.Join(dir, "run.fit")
	require.NoError(t, os.WriteFile(fitPath, fitBytes, 0o644))

	out, err := execute(t, "import", "--data-dir", data, "--name", "Morning Run", fitPath)
	require.NoError(t, err)
	id := strings.Fields(out)[0]
	assert.Contains(t, out, "Morning Run")

	out, err = execute(t, "list", "--data-dir", data)
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "1 of 1 activities")

	var csv strings.Builder
	csv.WriteString("Name,Sport,Date,Start time,Duration,Device Name\n")
	csv.WriteString("ttu,Running,2025-12-15,07:00:00,00:01:00,Polar H10\n")
	csv.WriteString("\nTime,Second,HR (bpm)\n")
	for i := 0; i < 60; i++ {
		ts := time.Date(2025, 12, 15, 7, 0, i, 0, time.UTC)
		fmt.Fprintf(&csv, "%s,%d,150\n", ts.Format("15:04:05"), i)
	}
	csvPath := filepath.Join(dir, "hr.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(csv.String()), 0o644))

	out, err = execute(t, "merge", "--data-dir", data, id, csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "[HR merge] Morning Run")
	assert.Contains(t, out, "imported_polar_h10_hr")

	csvOut := filepath.Join(dir, "records.csv")
	_, err = execute(t, "export", "--data-dir", data, "--format", "records", "-o", csvOut, id)
	require.NoError(t, err)
	got, err := os.ReadFile(csvOut)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(got, []byte("\ufeff")))
	assert.Contains(t, string(got), "heart_rate_bpm")
}

func TestDeleteArgs(t *testing.T) {
	t.Setenv("FITANALYSIS_LOG_LEVEL", "error")
	_, err := execute(t, "delete", "--data-dir", t.TempDir())
	require.Error(t, err)
	var coded *exitCodeError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, 2, coded.code)
}

func TestUnknownSortKey(t *testing.T) {
	_, err := execute(t, "list", "--data-dir", t.TempDir(), "--sort", "bogus")
	var coded *exitCodeError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, 2, coded.code)
}
