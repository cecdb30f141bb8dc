// Package config loads grit settings.
//
// Settings come from an optional YAML file, then from the environment. A
// .env file in the working directory is loaded first so its values count
// as environment. The file is found via --config, GRIT_CONFIG, or
// $XDG_CONFIG_HOME/grit/config.yaml; a missing default file means defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/grit/internal/planner"
	"github.com/abhisek/grit/internal/spacedrep"
)

// Config is the complete grit configuration.
type Config struct {
	// DBPath overrides the default database location when set.
	DBPath string `yaml:"db_path"`

	Schedule ScheduleConfig `yaml:"schedule"`
	Planner  PlannerConfig  `yaml:"planner"`
	Reminder ReminderConfig `yaml:"reminder"`
	Log      LogConfig      `yaml:"log"`
	Backup   BackupConfig   `yaml:"backup"`
}

// ScheduleConfig tunes the spaced-repetition scheduler.
type ScheduleConfig struct {
	// Intervals maps a level to its review interval in days.
	Intervals []int `yaml:"intervals"`

	// MasteryLevel is the level at which a topic counts as mastered.
	MasteryLevel int `yaml:"mastery_level"`

	// MissedPenalty is subtracted from integrity per missed revision.
	MissedPenalty int `yaml:"missed_penalty"`

	// DefaultModel is "level" or "confidence".
	DefaultModel string `yaml:"default_model"`

	// ConfidenceIntervals maps a review count to its base interval in days.
	ConfidenceIntervals []int `yaml:"confidence_intervals"`
}

// PlannerConfig tunes skip handling.
type PlannerConfig struct {
	// SkipMode is "recovery" or "in_place".
	SkipMode       string  `yaml:"skip_mode"`
	CostIncrement  int     `yaml:"cost_increment"`
	TimeMultiplier float64 `yaml:"time_multiplier"`
}

// ReminderConfig configures the reminder loop.
type ReminderConfig struct {
	// Interval between checks, as a Go duration. Default: 1h.
	Interval string `yaml:"interval"`

	// StartHour and EndHour bound the active window, inclusive, in local time.
	StartHour int `yaml:"start_hour"`
	EndHour   int `yaml:"end_hour"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// BackupConfig configures in-database snapshots.
type BackupConfig struct {
	// Keep is how many snapshots prune leaves behind.
	Keep int `yaml:"keep"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Schedule: ScheduleConfig{
			Intervals:           append([]int(nil), spacedrep.LevelIntervals...),
			MasteryLevel:        spacedrep.MasteryLevel,
			MissedPenalty:       spacedrep.MissedPenalty,
			DefaultModel:        string(spacedrep.ModelLevel),
			ConfidenceIntervals: append([]int(nil), spacedrep.ReviewCountIntervals...),
		},
		Planner: PlannerConfig{
			SkipMode:       string(planner.SkipRecovery),
			CostIncrement:  2,
			TimeMultiplier: 1.25,
		},
		Reminder: ReminderConfig{
			Interval:  "1h",
			StartHour: 8,
			EndHour:   22,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Backup: BackupConfig{
			Keep: 10,
		},
	}
}

// Load resolves the config file from path, GRIT_CONFIG or the XDG default,
// applies environment overrides and validates the result. An explicit path
// that does not exist is an error; a missing default file is not.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	explicit := true
	if path == "" {
		path = os.Getenv("GRIT_CONFIG")
	}
	if path == "" {
		explicit = false
		path = DefaultPath()
	}

	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("load config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads one YAML file over the defaults, without environment
// overrides.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPath returns $XDG_CONFIG_HOME/grit/config.yaml, falling back to
// ~/.config. It returns "" when no home directory is known.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "grit", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "grit", "config.yaml")
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GRIT_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("GRIT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("GRIT_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("GRIT_SKIP_MODE"); v != "" {
		c.Planner.SkipMode = v
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	s := c.Schedule
	if len(s.Intervals) == 0 || !spacedrep.Table(s.Intervals).IsAscending() {
		return fmt.Errorf("schedule.intervals must be a non-empty ascending list of positive days")
	}
	if s.MasteryLevel < 0 || s.MasteryLevel >= len(s.Intervals) {
		return fmt.Errorf("schedule.mastery_level %d is outside 0..%d", s.MasteryLevel, len(s.Intervals)-1)
	}
	if s.MissedPenalty < 0 || s.MissedPenalty > spacedrep.FullIntegrity {
		return fmt.Errorf("schedule.missed_penalty %d is outside 0..%d", s.MissedPenalty, spacedrep.FullIntegrity)
	}
	if !spacedrep.Model(s.DefaultModel).IsValid() {
		return fmt.Errorf("unknown schedule.default_model: %q", s.DefaultModel)
	}
	if len(s.ConfidenceIntervals) == 0 || !spacedrep.Table(s.ConfidenceIntervals).IsAscending() {
		return fmt.Errorf("schedule.confidence_intervals must be a non-empty ascending list of positive days")
	}

	p := c.Planner
	if !planner.SkipMode(p.SkipMode).IsValid() {
		return fmt.Errorf("unknown planner.skip_mode: %q", p.SkipMode)
	}
	if p.CostIncrement < 1 {
		return fmt.Errorf("planner.cost_increment must be at least 1")
	}
	if p.TimeMultiplier < 1 {
		return fmt.Errorf("planner.time_multiplier must be at least 1")
	}

	r := c.Reminder
	if _, err := r.Every(); err != nil {
		return err
	}
	if r.StartHour < 0 || r.StartHour > 23 || r.EndHour < 0 || r.EndHour > 23 {
		return fmt.Errorf("reminder hours must be between 0 and 23")
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("unknown log.format: %q", c.Log.Format)
	}

	if c.Backup.Keep < 1 {
		return fmt.Errorf("backup.keep must be at least 1")
	}
	return nil
}

// Every parses the reminder interval.
func (r ReminderConfig) Every() (time.Duration, error) {
	d, err := time.ParseDuration(r.Interval)
	if err != nil {
		return 0, fmt.Errorf("reminder.interval: %w", err)
	}
	if d < time.Minute {
		return 0, fmt.Errorf("reminder.interval must be at least 1m, got %s", d)
	}
	return d, nil
}

// SchedulePolicy converts the schedule section for the scheduler.
func (c *Config) SchedulePolicy() spacedrep.Policy {
	return spacedrep.Policy{
		Intervals:           spacedrep.Table(c.Schedule.Intervals),
		MasteryLevel:        c.Schedule.MasteryLevel,
		MissedPenalty:       c.Schedule.MissedPenalty,
		ConfidenceIntervals: spacedrep.Table(c.Schedule.ConfidenceIntervals),
	}
}

// DefaultModel returns the model new topics follow.
func (c *Config) DefaultModel() spacedrep.Model {
	return spacedrep.Model(c.Schedule.DefaultModel)
}

// PlannerPolicy converts the planner section for the task engine.
func (c *Config) PlannerPolicy() planner.Policy {
	p := planner.DefaultPolicy()
	p.Mode = planner.SkipMode(c.Planner.SkipMode)
	p.CostIncrement = c.Planner.CostIncrement
	p.TimeMultiplier = c.Planner.TimeMultiplier
	return p
}
