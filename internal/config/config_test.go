package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := cfg.TimerDuration(); got != DefaultTimerDuration {
		t.Fatalf("TimerDuration = %v, want %v", got, DefaultTimerDuration)
	}
	if got := cfg.CooldownDuration(); got != DefaultCooldownDuration {
		t.Fatalf("CooldownDuration = %v, want %v", got, DefaultCooldownDuration)
	}
	if got := cfg.TickInterval(); got != DefaultTickInterval {
		t.Fatalf("TickInterval = %v, want %v", got, DefaultTickInterval)
	}
	if got := cfg.PetCacheTimeout(); got != DefaultPetCacheTimeout {
		t.Fatalf("PetCacheTimeout = %v, want %v", got, DefaultPetCacheTimeout)
	}
}

func TestLoadYamlFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
game:
  timer_duration_sec: 7200
  cooldown_hours: 2
  tick_interval_sec: 5
pets:
  cache_timeout_sec: 600
nats:
  url: nats://bus:4222
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := cfg.TimerDuration(); got != 2*time.Hour {
		t.Fatalf("TimerDuration = %v, want 2h", got)
	}
	if got := cfg.CooldownDuration(); got != 2*time.Hour {
		t.Fatalf("CooldownDuration = %v, want 2h", got)
	}
	if got := cfg.TickInterval(); got != 5*time.Second {
		t.Fatalf("TickInterval = %v, want 5s", got)
	}
	if got := cfg.PetCacheTimeout(); got != 10*time.Minute {
		t.Fatalf("PetCacheTimeout = %v, want 10m", got)
	}
	// Unset fields still fall back.
	if got := cfg.GameStaleness(); got != DefaultGameStaleness {
		t.Fatalf("GameStaleness = %v, want default", got)
	}
	if cfg.NATS.URL != "nats://bus:4222" {
		t.Fatalf("NATS.URL = %q", cfg.NATS.URL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TIMER_DURATION_SEC", "600")
	t.Setenv("COOLDOWN_HOURS", "1")
	t.Setenv("NATS_URL", "nats://env:4222")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := cfg.TimerDuration(); got != 10*time.Minute {
		t.Fatalf("TimerDuration = %v, want 10m", got)
	}
	if got := cfg.CooldownDuration(); got != time.Hour {
		t.Fatalf("CooldownDuration = %v, want 1h", got)
	}
	if cfg.NATS.URL != "nats://env:4222" {
		t.Fatalf("NATS.URL = %q", cfg.NATS.URL)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("game: ["), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted malformed yaml")
	}
}
