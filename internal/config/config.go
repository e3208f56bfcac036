// Package config provides configuration management for aclguard.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aclguard/backend/pkg/models"
)

// DefaultServerPort is the default HTTP port for the worker service.
const DefaultServerPort = 8090

// Config holds the full application configuration. Every weight,
// threshold and cutoff the engine recognizes is an explicit field here
// or in one of the nested structs.
type Config struct {
	Server          Server            `yaml:"server"`
	Database        Database          `yaml:"database"`
	Models          Models            `yaml:"models"`
	Risk            models.RiskConfig `yaml:"risk"`
	Features        Features          `yaml:"features"`
	Training        Training          `yaml:"training"`
	Recommendations Recommendations   `yaml:"recommendations"`
	Logging         Logging           `yaml:"logging"`
}

// Server holds HTTP worker settings.
type Server struct {
	Port         int   `yaml:"port"`
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// Database selects and configures the backing store.
type Database struct {
	// Driver is "sqlite" (embedded, default) or "postgres".
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"` // sqlite file path
	DSN      string `yaml:"dsn"`  // postgres DSN
	MaxConns int    `yaml:"max_conns"`
}

// Models configures the trained-model artifact store.
type Models struct {
	// Dir is the directory holding published model bundles.
	Dir string `yaml:"dir"`
	// Watch enables hot reload of bundles published by other processes.
	Watch bool `yaml:"watch"`
}

// Features holds every normalization band used by the feature extractor.
type Features struct {
	// WindowDays is the metric window requested per scoring call.
	WindowDays int `yaml:"window_days"`
	// MinWindowDays is the day count below which the load index is
	// computed from a partial average and flagged in missing_data.
	MinWindowDays int `yaml:"min_window_days"`

	// Load index: mean daily steps mapped over [StepsFloor, StepsCeiling].
	StepsFloor   float64 `yaml:"steps_floor"`
	StepsCeiling float64 `yaml:"steps_ceiling"`

	// Intensity index: mean daily peak minutes over PeakMinutesCeiling.
	PeakMinutesCeiling float64 `yaml:"peak_minutes_ceiling"`

	// Fatigue index sub-weights (rescaled over present halves).
	HRSubWeight    float64 `yaml:"hr_sub_weight"`
	SleepSubWeight float64 `yaml:"sleep_sub_weight"`
	// HR elevation above baseline saturating at HRElevationRangeBPM.
	HRElevationRangeBPM float64 `yaml:"hr_elevation_range_bpm"`
	// Sleep deficit versus SleepTargetHours saturating over SleepDeficitRangeHours.
	SleepTargetHours       float64 `yaml:"sleep_target_hours"`
	SleepDeficitRangeHours float64 `yaml:"sleep_deficit_range_hours"`
	// BaselineMinDays is the HR-day count required to trust the user's
	// own trailing baseline over the population default.
	BaselineMinDays int `yaml:"baseline_min_days"`

	// BMI index: distance from the [BMIOptimalLow, BMIOptimalHigh] band,
	// saturating over BMIPenaltyRange.
	BMIOptimalLow   float64 `yaml:"bmi_optimal_low"`
	BMIOptimalHigh  float64 `yaml:"bmi_optimal_high"`
	BMIPenaltyRange float64 `yaml:"bmi_penalty_range"`

	// History index: decays from 1.0 toward InjuryIndexFloor over
	// InjuryDecayYears after a dated injury.
	InjuryDecayYears float64 `yaml:"injury_decay_years"`
	InjuryIndexFloor float64 `yaml:"injury_index_floor"`
}

// Training configures the retraining pipeline and its scheduler.
type Training struct {
	// MinFeedbackCount is the positive-feedback corpus size required
	// before a training run fits a model.
	MinFeedbackCount int `yaml:"min_feedback_count"`
	// TestFraction is the held-out share of the corpus.
	TestFraction float64 `yaml:"test_fraction"`
	// Seed makes the train/test split and forest fitting deterministic.
	Seed int64 `yaml:"seed"`

	// Forest hyperparameters.
	NumTrees        int `yaml:"num_trees"`
	MaxDepth        int `yaml:"max_depth"`
	MinSamplesSplit int `yaml:"min_samples_split"`
	MinSamplesLeaf  int `yaml:"min_samples_leaf"`

	// Timeout bounds a single training run; an overrun is a failed run.
	Timeout time.Duration `yaml:"timeout"`

	// Daily trigger, local time.
	ScheduleHour   int `yaml:"schedule_hour"`
	ScheduleMinute int `yaml:"schedule_minute"`

	// BootstrapSamples is the synthetic corpus size for bootstrap
	// (synthetic-prior) training.
	BootstrapSamples int `yaml:"bootstrap_samples"`
}

// Recommendations configures the recommendation generator.
type Recommendations struct {
	// ElevatedThresholds maps feature names to the component index above
	// which a mitigation suggestion is produced.
	ElevatedThresholds map[string]float64 `yaml:"elevated_thresholds"`
	// Max caps the number of recommendations returned.
	Max int `yaml:"max"`
}

// Logging holds log output settings.
type Logging struct {
	Level string `yaml:"level"`
}

// DataDir returns the default data directory (~/.aclguard).
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".aclguard")
}

// DefaultElevatedThresholds are the per-component indices above which
// the recommendation generator produces advice.
var DefaultElevatedThresholds = map[string]float64{
	models.FeatureLoad:      0.50,
	models.FeatureFatigue:   0.60,
	models.FeatureIntensity: 0.70,
	models.FeatureBMI:       0.60,
	models.FeatureHistory:   0.30,
	models.FeaturePain:      0.30,
}

// Default returns a Config with documented defaults.
func Default() *Config {
	return &Config{
		Server: Server{
			Port:         DefaultServerPort,
			MaxBodyBytes: 1 << 20, // 1 MiB
		},
		Database: Database{
			Driver:   "sqlite",
			Path:     filepath.Join(DataDir(), "aclguard.db"),
			MaxConns: 4,
		},
		Models: Models{
			Dir:   filepath.Join(DataDir(), "models"),
			Watch: true,
		},
		Risk: models.DefaultRiskConfig(),
		Features: Features{
			WindowDays:             7,
			MinWindowDays:          3,
			StepsFloor:             5000,
			StepsCeiling:           20000,
			PeakMinutesCeiling:     60,
			HRSubWeight:            0.6,
			SleepSubWeight:         0.4,
			HRElevationRangeBPM:    8,
			SleepTargetHours:       7,
			SleepDeficitRangeHours: 4,
			BaselineMinDays:        3,
			BMIOptimalLow:          22,
			BMIOptimalHigh:         27,
			BMIPenaltyRange:        8,
			InjuryDecayYears:       3,
			InjuryIndexFloor:       0.3,
		},
		Training: Training{
			MinFeedbackCount: 100,
			TestFraction:     0.2,
			Seed:             42,
			NumTrees:         100,
			MaxDepth:         10,
			MinSamplesSplit:  5,
			MinSamplesLeaf:   2,
			Timeout:          10 * time.Minute,
			ScheduleHour:     2,
			ScheduleMinute:   30,
			BootstrapSamples: 1000,
		},
		Recommendations: Recommendations{
			ElevatedThresholds: cloneThresholds(DefaultElevatedThresholds),
			Max:                5,
		},
		Logging: Logging{Level: "info"},
	}
}

// Load reads a YAML config file and merges it over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// LoadOrDefault loads the given path when set, otherwise returns defaults.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

func parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if sum := c.Risk.Weights.Sum(); sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("config: risk weights sum to %.4f, want 1.0", sum)
	}
	if c.Risk.ModerateThreshold <= 0 || c.Risk.HighThreshold <= c.Risk.ModerateThreshold {
		return fmt.Errorf("config: risk thresholds must satisfy 0 < moderate < high")
	}
	if c.Training.TestFraction <= 0 || c.Training.TestFraction >= 1 {
		return fmt.Errorf("config: test_fraction %.2f outside (0,1)", c.Training.TestFraction)
	}
	if c.Training.MinFeedbackCount < 2 {
		return fmt.Errorf("config: min_feedback_count must be at least 2")
	}
	if c.Features.WindowDays <= 0 {
		return fmt.Errorf("config: window_days must be positive")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	return nil
}

func cloneThresholds(src map[string]float64) map[string]float64 {
	dst := make(map[string]float64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
