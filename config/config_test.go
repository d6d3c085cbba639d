package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttu-dot/fitanalysis/hrmerge"
)

func TestDefaultMatchesMergeDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, hrmerge.DefaultCriteria(), cfg.HRMerge.Criteria())
	assert.Equal(t, "1.8.0", cfg.Version)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Server, cfg.Server)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  addr: ":9090"
storage:
  data_dir: /tmp/acts
hr_merge:
  auto_align_max_shift_sec: 12
  allow_extrapolation: true
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("FITANALYSIS_HR_MIN_MATCH_RATIO", "0.9")
	t.Setenv("FITANALYSIS_ADDR", ":7070")
	t.Setenv("FITANALYSIS_HR_MATCH_TOLERANCE_SEC", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "/tmp/acts", cfg.Storage.DataDir)
	assert.Equal(t, 100, cfg.Server.MaxPageSize, "unset keys keep defaults")

	c := cfg.HRMerge.Criteria()
	assert.Equal(t, 12.0, c.MaxShiftSec)
	assert.Equal(t, 0.9, c.MinMatchRatio)
	assert.Equal(t, 1.0, c.MatchToleranceSec)
	assert.True(t, c.AllowExtrapolation)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hr_merge:\n  auto_align_min_match_ratio: 2\nlog:\n  format: xml\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auto_align_min_match_ratio")
	assert.Contains(t, err.Error(), "log.format")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	log, err := LogConfig{Level: "debug", Format: "console"}.NewLogger()
	require.NoError(t, err)
	assert.NotNil(t, log)

	_, err = LogConfig{Level: "loud", Format: "json"}.NewLogger()
	assert.Error(t, err)
}
