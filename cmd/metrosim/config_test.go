package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if cfg.Scenario != "configs/metro_scenario.json" {
		t.Fatalf("default scenario = %q", cfg.Scenario)
	}
	if cfg.Tick != time.Second || cfg.Duration != time.Minute {
		t.Fatalf("default timing = %v / %v", cfg.Tick, cfg.Duration)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Fatalf("default logging = %+v", cfg.Log)
	}
	if cfg.Tracing.Enabled || cfg.Tracing.SampleRatio != 1.0 {
		t.Fatalf("default tracing = %+v", cfg.Tracing)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	doc := `
scenario: maps/city.json
tick: 250ms
duration: 2m
log:
  level: debug
  format: json
metrics:
  addr: ":9101"
physics:
  friction: 0.02
  critical_threshold: 0.9
features:
  collisions: false
  max_entities: 5
mission:
  name: rush-hour
  start: harbor
  end: summit
`
	path := filepath.Join(t.TempDir(), "metrosim.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Scenario != "maps/city.json" || cfg.Tick != 250*time.Millisecond || cfg.Duration != 2*time.Minute {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Metrics.Addr != ":9101" {
		t.Fatalf("metrics addr = %q", cfg.Metrics.Addr)
	}
	if cfg.Mission.Name != "rush-hour" || cfg.Mission.Start != "harbor" || cfg.Mission.End != "summit" {
		t.Fatalf("mission section = %+v", cfg.Mission)
	}

	p := cfg.PhysicsConfig()
	if p.Friction != 0.02 || p.CriticalThreshold != 0.9 {
		t.Fatalf("physics overrides not folded: %+v", p)
	}
	// Untouched fields keep the kernel defaults.
	if p.Velocity != 1.0 || p.TransferLoss != 0.10 {
		t.Fatalf("physics defaults lost: %+v", p)
	}

	f := cfg.FeatureFlags()
	if f.Collisions || f.MaxEntities != 5 {
		t.Fatalf("feature overrides not folded: %+v", f)
	}
	if !f.AutoReroute || !f.StableLoops || !f.ExternalShocks {
		t.Fatalf("feature defaults lost: %+v", f)
	}
}

func TestLoadConfigRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrosim.yaml")
	if err := os.WriteFile(path, []byte("tick: [not a duration"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("malformed YAML accepted")
	}
}
