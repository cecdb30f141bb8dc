package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/grit/internal/planner"
	"github.com/abhisek/grit/internal/spacedrep"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// isolate keeps the developer's environment out of Load.
func isolate(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GRIT_CONFIG", "GRIT_DB", "GRIT_LOG_LEVEL", "GRIT_LOG_FORMAT", "GRIT_SKIP_MODE"} {
		t.Setenv(k, "")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, spacedrep.DefaultPolicy(), cfg.SchedulePolicy())
	assert.Equal(t, planner.DefaultPolicy(), cfg.PlannerPolicy())
	assert.Equal(t, spacedrep.ModelLevel, cfg.DefaultModel())
}

func TestDefault_DoesNotAliasTables(t *testing.T) {
	cfg := Default()
	cfg.Schedule.Intervals[0] = 99
	assert.Equal(t, 1, spacedrep.LevelIntervals[0])
}

func TestLoad_MissingDefaultFileUsesDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
schedule:
  intervals: [1, 3, 8, 20]
  mastery_level: 2
planner:
  skip_mode: recovery
  cost_increment: 3
reminder:
  interval: 30m
log:
  level: info
`)
	t.Setenv("GRIT_SKIP_MODE", "in_place")
	t.Setenv("GRIT_DB", "/tmp/other.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 8, 20}, cfg.Schedule.Intervals)
	assert.Equal(t, 2, cfg.Schedule.MasteryLevel)
	assert.Equal(t, spacedrep.MissedPenalty, cfg.Schedule.MissedPenalty, "unset keys keep defaults")
	assert.Equal(t, planner.SkipInPlace, cfg.PlannerPolicy().Mode)
	assert.Equal(t, 3, cfg.PlannerPolicy().CostIncrement)
	assert.Equal(t, "/tmp/other.db", cfg.DBPath)

	every, err := cfg.Reminder.Every()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, every)
}

func TestLoad_GritConfigEnv(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "backup:\n  keep: 3\n")
	t.Setenv("GRIT_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Backup.Keep)
}

func TestLoad_DotEnv(t *testing.T) {
	isolate(t)
	os.Unsetenv("GRIT_LOG_FORMAT")
	require.NoError(t, os.WriteFile(".env", []byte("GRIT_LOG_FORMAT=json\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("GRIT_LOG_FORMAT") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFile_BadYAML(t *testing.T) {
	_, err := LoadFile(writeConfig(t, "schedule: [oops"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty intervals", func(c *Config) { c.Schedule.Intervals = nil }},
		{"descending intervals", func(c *Config) { c.Schedule.Intervals = []int{5, 2} }},
		{"zero interval", func(c *Config) { c.Schedule.Intervals = []int{0, 2} }},
		{"mastery past table", func(c *Config) { c.Schedule.MasteryLevel = 9 }},
		{"negative penalty", func(c *Config) { c.Schedule.MissedPenalty = -1 }},
		{"unknown model", func(c *Config) { c.Schedule.DefaultModel = "sm2" }},
		{"empty confidence table", func(c *Config) { c.Schedule.ConfidenceIntervals = []int{} }},
		{"unknown skip mode", func(c *Config) { c.Planner.SkipMode = "ignore" }},
		{"zero increment", func(c *Config) { c.Planner.CostIncrement = 0 }},
		{"shrinking multiplier", func(c *Config) { c.Planner.TimeMultiplier = 0.5 }},
		{"bad interval", func(c *Config) { c.Reminder.Interval = "soon" }},
		{"tiny interval", func(c *Config) { c.Reminder.Interval = "5s" }},
		{"bad hour", func(c *Config) { c.Reminder.EndHour = 24 }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
		{"keep zero", func(c *Config) { c.Backup.Keep = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "debug"
	cfg.Log.Format = "json"

	var buf bytes.Buffer
	logger, err := cfg.NewLogger(&buf)
	require.NoError(t, err)
	logger.Debug("hello", "k", 1)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "DEBUG", line["level"])
}

func TestNewLogger_FiltersBelowLevel(t *testing.T) {
	cfg := Default()
	var buf bytes.Buffer
	logger, err := cfg.NewLogger(&buf)
	require.NoError(t, err)
	logger.Info("quiet")
	assert.Empty(t, buf.String())
	logger.Warn("loud")
	assert.Contains(t, buf.String(), "loud")
}
