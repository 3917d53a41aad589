package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server    ServerConfig    `koanf:"server"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Engine    EngineConfig    `koanf:"engine"`
	Analysis  AnalysisConfig  `koanf:"analysis"`
	Sampling  SamplingConfig  `koanf:"sampling"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `koanf:"requests_per_second"`
	BurstSize         int `koanf:"burst_size"`
}

type TelemetryConfig struct {
	Enabled       bool          `koanf:"enabled"`
	OTLPEndpoint  string        `koanf:"otlp_endpoint"`
	SamplingRate  float64       `koanf:"sampling_rate"`
	ExportTimeout time.Duration `koanf:"export_timeout"`
	BatchTimeout  time.Duration `koanf:"batch_timeout"`
}

type EngineConfig struct {
	TimeBudget  time.Duration `koanf:"time_budget"`
	Parallelism int           `koanf:"parallelism"`
}

// AnalysisConfig carries the analyzer defaults; every member maps to a
// per-call override through engine.Options.
type AnalysisConfig struct {
	Benford  BenfordConfig  `koanf:"benford"`
	Entropy  EntropyConfig  `koanf:"entropy"`
	Sequence SequenceConfig `koanf:"sequence"`
	Forest   ForestConfig   `koanf:"forest"`
	Actor    ActorConfig    `koanf:"actor"`
}

type BenfordConfig struct {
	MinSampleSize int `koanf:"min_sample_size"`
}

type EntropyConfig struct {
	RarityThreshold float64 `koanf:"rarity_threshold"`
}

type SequenceConfig struct {
	LowMax             int64 `koanf:"low_max"`
	MediumMax          int64 `koanf:"medium_max"`
	MissingIDSampleCap int   `koanf:"missing_id_sample_cap"`
}

type ForestConfig struct {
	Trees         int     `koanf:"trees"`
	SubsampleSize int     `koanf:"subsample_size"`
	Threshold     float64 `koanf:"threshold"`
	Seed          int64   `koanf:"seed"`
}

type ActorConfig struct {
	OffHoursStart      int     `koanf:"off_hours_start"`
	OffHoursEnd        int     `koanf:"off_hours_end"`
	RoundAmountUnit    float64 `koanf:"round_amount_unit"`
	HighValueThreshold float64 `koanf:"high_value_threshold"`
	SuspiciousCutoff   float64 `koanf:"suspicious_cutoff"`
	MediumScore        float64 `koanf:"medium_score"`
	HighScore          float64 `koanf:"high_score"`

	Weights ActorWeights `koanf:"weights"`
}

type ActorWeights struct {
	Weekend        float64 `koanf:"weekend"`
	OffHours       float64 `koanf:"off_hours"`
	RoundAmount    float64 `koanf:"round_amount"`
	DuplicateAmt   float64 `koanf:"duplicate_amount"`
	HighValue      float64 `koanf:"high_value"`
	ConsecutiveRun float64 `koanf:"consecutive_run"`
}

type SamplingConfig struct {
	ConfidenceLevel float64 `koanf:"confidence_level"`
	Selection       string  `koanf:"selection"`
	CapFraction     float64 `koanf:"cap_fraction"`
	CapSize         int     `koanf:"cap_size"`
	Seed            int64   `koanf:"seed"`
}

func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 50,
				BurstSize:         100,
			},
		},
		Telemetry: TelemetryConfig{
			Enabled:       false,
			OTLPEndpoint:  "localhost:4317",
			SamplingRate:  1.0,
			ExportTimeout: 30 * time.Second,
			BatchTimeout:  5 * time.Second,
		},
		Engine: EngineConfig{
			TimeBudget:  30 * time.Second,
			Parallelism: 4,
		},
		Analysis: AnalysisConfig{
			Benford: BenfordConfig{MinSampleSize: 30},
			Entropy: EntropyConfig{RarityThreshold: 0.02},
			Sequence: SequenceConfig{
				LowMax:             1,
				MediumMax:          5,
				MissingIDSampleCap: 50,
			},
			Forest: ForestConfig{
				Trees:         100,
				SubsampleSize: 256,
				Threshold:     0.6,
				Seed:          1,
			},
			Actor: ActorConfig{
				OffHoursStart:      22,
				OffHoursEnd:        6,
				RoundAmountUnit:    100,
				HighValueThreshold: 10000,
				SuspiciousCutoff:   70,
				MediumScore:        40,
				HighScore:          70,
				Weights: ActorWeights{
					Weekend:        20,
					OffHours:       20,
					RoundAmount:    15,
					DuplicateAmt:   15,
					HighValue:      15,
					ConsecutiveRun: 15,
				},
			},
		},
		Sampling: SamplingConfig{
			ConfidenceLevel: 0.95,
			Selection:       "random",
			CapFraction:     0.8,
			CapSize:         2000,
			Seed:            1,
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Config file is optional
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", configPath, err)
		}
	} else {
		_ = k.Load(file.Provider("configs/config.yaml"), yaml.Parser())
	}

	// Override with environment variables
	if err := k.Load(env.Provider("AUDIT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "AUDIT_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
