package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{Policy: "eth*"}
	ApplyDefaults(&cfg)

	if cfg.ReadInterval != DefaultReadInterval || cfg.SleepTime != DefaultSleepTime {
		t.Fatalf("interval defaults not set: %+v", cfg)
	}
	if cfg.Lifetime != DefaultLifetime {
		t.Fatalf("lifetime=%d", cfg.Lifetime)
	}
	if cfg.OnlyRunning == nil || !*cfg.OnlyRunning {
		t.Fatalf("only_running default not true")
	}
	if cfg.GraphHeight != DefaultGraphHeight || cfg.FgChar != "*" || cfg.BgChar != "." || cfg.NoiseChar != ":" {
		t.Fatalf("graph defaults not set: %+v", cfg)
	}
	if cfg.Policy != "eth*" {
		t.Fatalf("policy overwritten: %q", cfg.Policy)
	}
}

func TestLoad_KeepsExplicitFalse(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bwmon.yaml")
	data := "read_interval: 0.5\nonly_running: false\ny_unit: k\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ReadInterval != 0.5 {
		t.Fatalf("read_interval=%v", cfg.ReadInterval)
	}
	if cfg.Running() {
		t.Fatalf("only_running=false was overwritten")
	}
	if cfg.YUnit != "k" || cfg.XUnit != DefaultXUnit {
		t.Fatalf("units=%q/%q", cfg.XUnit, cfg.YUnit)
	}
}

func TestLoadOptional_MissingFile(t *testing.T) {
	t.Parallel()

	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if cfg.ReadInterval != DefaultReadInterval {
		t.Fatalf("read_interval=%v", cfg.ReadInterval)
	}
}

func TestLoad_Malformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("read_interval: [1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestSave_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sub", "bwmon.yaml")
	if err := Save(path, Config{Policy: "eth*,!lo", Lifetime: 3}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Policy != "eth*,!lo" || cfg.Lifetime != 3 {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"negative interval", func(c *Config) { c.ReadInterval = -1 }, false},
		{"negative sleep", func(c *Config) { c.SleepTime = -0.1 }, false},
		{"zero lifetime", func(c *Config) { c.Lifetime = -2 }, false},
		{"long fg char", func(c *Config) { c.FgChar = "##" }, false},
		{"unicode bg char", func(c *Config) { c.BgChar = "·" }, true},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, false},
	}

	for _, tc := range cases {
		cfg := Default()
		tc.mutate(&cfg)
		err := Validate(cfg)
		if (err == nil) != tc.ok {
			t.Fatalf("%s: err=%v", tc.name, err)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("BWMON_READ_INTERVAL", "0.25")
	t.Setenv("BWMON_LIFETIME", "abc")
	t.Setenv("BWMON_POLICY", "wlan*")
	t.Setenv("BWMON_OUTPUT", "ascii:quitafter=1")

	cfg := Default()
	ApplyEnv(&cfg)

	if cfg.ReadInterval != 0.25 {
		t.Fatalf("read_interval=%v", cfg.ReadInterval)
	}
	if cfg.Lifetime != DefaultLifetime {
		t.Fatalf("malformed lifetime applied: %d", cfg.Lifetime)
	}
	if cfg.Policy != "wlan*" || cfg.Output != "ascii:quitafter=1" {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestSanitize_FallsBackToDefaults(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.ReadInterval = -5
	cfg.GraphHeight = -2
	cfg.LogFormat = "xml"
	cfg.Policy = "eth*"

	fixed := Sanitize(&cfg)
	if len(fixed) != 3 {
		t.Fatalf("fixed=%v", fixed)
	}
	if cfg.ReadInterval != DefaultReadInterval || cfg.GraphHeight != DefaultGraphHeight || cfg.LogFormat != DefaultLogFormat {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.Policy != "eth*" {
		t.Fatalf("policy=%q", cfg.Policy)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate after Sanitize: %v", err)
	}
}

func TestLoad_NegativeIntervalSanitized(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bwmon.yaml")
	if err := os.WriteFile(path, []byte("read_interval: -1\nlifetime: -3\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	Sanitize(&cfg)
	if cfg.ReadInterval != 1.0 || cfg.Lifetime != DefaultLifetime {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestSave_RejectsInvalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bwmon.yaml")
	if err := Save(path, Config{ReadInterval: -1}); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("file written: %v", err)
	}
}
