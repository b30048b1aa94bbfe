// Package config loads the game tunables consumed by the engines. Values
// come from a yaml file with environment overrides for deployment knobs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for every tunable; a missing file yields a working config.
const (
	DefaultTimerDuration    = 43200 * time.Second // 12h
	DefaultCooldownDuration = 6 * time.Hour
	DefaultTickInterval     = 10 * time.Second
	DefaultGameStaleness    = 15 * time.Minute
	DefaultPetCacheTimeout  = time.Hour
	DefaultPetSweepInterval = 15 * time.Minute
	DefaultHandlerTimeout   = 5 * time.Second
)

// Config holds the tunables for both minigames.
type Config struct {
	Game GameConfig `yaml:"game"`
	Pets PetConfig  `yaml:"pets"`
	NATS NATSConfig `yaml:"nats"`
}

// GameConfig covers the button game.
type GameConfig struct {
	TimerDurationSec  int `yaml:"timer_duration_sec"`
	CooldownHours     int `yaml:"cooldown_hours"`
	TickIntervalSec   int `yaml:"tick_interval_sec"`
	CacheStalenessSec int `yaml:"cache_staleness_sec"`
	HandlerTimeoutSec int `yaml:"handler_timeout_sec"`
}

// PetConfig covers the pet simulation.
type PetConfig struct {
	CacheTimeoutSec  int `yaml:"cache_timeout_sec"`
	SweepIntervalSec int `yaml:"sweep_interval_sec"`
}

// NATSConfig points at the event bus.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// Load reads the yaml file at path, falling back to defaults when the file
// is absent, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.Game.TimerDurationSec = overrideInt("TIMER_DURATION_SEC", cfg.Game.TimerDurationSec)
	cfg.Game.CooldownHours = overrideInt("COOLDOWN_HOURS", cfg.Game.CooldownHours)
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = os.Getenv("NATS_URL")
	}
	return cfg, nil
}

// TimerDuration returns the configured game duration.
func (c *Config) TimerDuration() time.Duration {
	return orDefault(time.Duration(c.Game.TimerDurationSec)*time.Second, DefaultTimerDuration)
}

// CooldownDuration returns the per-user click cooldown.
func (c *Config) CooldownDuration() time.Duration {
	return orDefault(time.Duration(c.Game.CooldownHours)*time.Hour, DefaultCooldownDuration)
}

// TickInterval returns the timer broadcast interval.
func (c *Config) TickInterval() time.Duration {
	return orDefault(time.Duration(c.Game.TickIntervalSec)*time.Second, DefaultTickInterval)
}

// GameStaleness returns the game cache staleness window.
func (c *Config) GameStaleness() time.Duration {
	return orDefault(time.Duration(c.Game.CacheStalenessSec)*time.Second, DefaultGameStaleness)
}

// HandlerTimeout bounds each inbound interaction.
func (c *Config) HandlerTimeout() time.Duration {
	return orDefault(time.Duration(c.Game.HandlerTimeoutSec)*time.Second, DefaultHandlerTimeout)
}

// PetCacheTimeout returns the pet cache eviction age.
func (c *Config) PetCacheTimeout() time.Duration {
	return orDefault(time.Duration(c.Pets.CacheTimeoutSec)*time.Second, DefaultPetCacheTimeout)
}

// PetSweepInterval returns the pet update/eviction sweep interval.
func (c *Config) PetSweepInterval() time.Duration {
	return orDefault(time.Duration(c.Pets.SweepIntervalSec)*time.Second, DefaultPetSweepInterval)
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func overrideInt(key string, current int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return current
}
