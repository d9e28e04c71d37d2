package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/metroline-simulator/core"
	"github.com/signalsfoundry/metroline-simulator/internal/observability"
)

// Config is the metrosim YAML configuration. Every field has a default so
// a missing file or an empty document is fully usable.
type Config struct {
	Scenario string        `yaml:"scenario"`
	Tick     time.Duration `yaml:"tick"`
	Duration time.Duration `yaml:"duration"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Metrics struct {
		Addr string `yaml:"addr"` // empty disables the /metrics listener
	} `yaml:"metrics"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		Exporter    string  `yaml:"exporter"`
		Endpoint    string  `yaml:"endpoint"`
		SampleRatio float64 `yaml:"sample_ratio"`
	} `yaml:"tracing"`

	Physics struct {
		Velocity          *float64 `yaml:"velocity"`
		Friction          *float64 `yaml:"friction"`
		TransferLoss      *float64 `yaml:"transfer_loss"`
		Complexity        *float64 `yaml:"complexity"`
		Uncertainty       *float64 `yaml:"uncertainty"`
		TransferShock     *float64 `yaml:"transfer_shock"`
		CriticalThreshold *float64 `yaml:"critical_threshold"`
	} `yaml:"physics"`

	Features struct {
		MaxEntities    *int  `yaml:"max_entities"`
		Collisions     *bool `yaml:"collisions"`
		AutoReroute    *bool `yaml:"auto_reroute"`
		StableLoops    *bool `yaml:"stable_loops"`
		ExternalShocks *bool `yaml:"external_shocks"`
	} `yaml:"features"`

	Mission struct {
		Name  string `yaml:"name"`
		Start string `yaml:"start"`
		End   string `yaml:"end"`
	} `yaml:"mission"`
}

// LoadConfig reads the YAML config at path. A missing file is not an
// error: it returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return cfg, nil
}

func defaultConfig() Config {
	var cfg Config
	cfg.Scenario = "configs/metro_scenario.json"
	cfg.Tick = time.Second
	cfg.Duration = time.Minute
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Tracing.Exporter = "stdout"
	cfg.Tracing.SampleRatio = 1.0
	return cfg
}

// PhysicsConfig folds the YAML overrides into the kernel defaults.
func (c Config) PhysicsConfig() core.PhysicsConfig {
	p := core.DefaultPhysicsConfig()
	setF := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setF(&p.Velocity, c.Physics.Velocity)
	setF(&p.Friction, c.Physics.Friction)
	setF(&p.TransferLoss, c.Physics.TransferLoss)
	setF(&p.Complexity, c.Physics.Complexity)
	setF(&p.Uncertainty, c.Physics.Uncertainty)
	setF(&p.TransferShock, c.Physics.TransferShock)
	setF(&p.CriticalThreshold, c.Physics.CriticalThreshold)
	return p
}

// FeatureFlags folds the YAML overrides into the feature defaults.
func (c Config) FeatureFlags() core.Features {
	f := core.DefaultFeatures()
	if c.Features.MaxEntities != nil {
		f.MaxEntities = *c.Features.MaxEntities
	}
	if c.Features.Collisions != nil {
		f.Collisions = *c.Features.Collisions
	}
	if c.Features.AutoReroute != nil {
		f.AutoReroute = *c.Features.AutoReroute
	}
	if c.Features.StableLoops != nil {
		f.StableLoops = *c.Features.StableLoops
	}
	if c.Features.ExternalShocks != nil {
		f.ExternalShocks = *c.Features.ExternalShocks
	}
	return f
}

// TracingConfig converts the YAML section into the observability config.
func (c Config) TracingConfig() observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:     c.Tracing.Enabled,
		ServiceName: "metrosim",
		Exporter:    c.Tracing.Exporter,
		Endpoint:    c.Tracing.Endpoint,
		SampleRatio: c.Tracing.SampleRatio,
	}
}
