// Package config loads and validates the engine's YAML configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EngineConfig is the top-level configuration file for the blackboard
// engine, holding the recognised options of spec.md §6.
type EngineConfig struct {
	MaxTriggersPerCase      *int     `yaml:"max_triggers_per_case,omitempty"`
	DefaultCooldownSeconds  *float64 `yaml:"default_cooldown_seconds,omitempty"`
	HandlerTimeoutSeconds   *float64 `yaml:"handler_timeout_seconds,omitempty"`
	FanoutSendTimeoutSecond *float64 `yaml:"fanout_send_timeout_seconds,omitempty"`
	WorkerConcurrency       *int     `yaml:"worker_concurrency,omitempty"`
}

const (
	defaultMaxTriggersPerCase    = 10
	defaultCooldownSeconds       = 2.0
	defaultHandlerTimeoutSeconds = 30.0
	defaultFanoutSendTimeoutSecs = 1.0
	defaultWorkerConcurrency     = 1
)

// Load reads and parses an EngineConfig from path, then applies defaults and
// validates it.
func Load(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg EngineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaultsAndValidate fills in any unset options with their defaults
// and then validates the result. Used when no config file was given at all.
func (c *EngineConfig) ApplyDefaultsAndValidate() error {
	c.applyDefaults()
	return c.Validate()
}

func (c *EngineConfig) applyDefaults() {
	if c.MaxTriggersPerCase == nil {
		v := defaultMaxTriggersPerCase
		c.MaxTriggersPerCase = &v
	}
	if c.DefaultCooldownSeconds == nil {
		v := defaultCooldownSeconds
		c.DefaultCooldownSeconds = &v
	}
	if c.HandlerTimeoutSeconds == nil {
		v := defaultHandlerTimeoutSeconds
		c.HandlerTimeoutSeconds = &v
	}
	if c.FanoutSendTimeoutSecond == nil {
		v := defaultFanoutSendTimeoutSecs
		c.FanoutSendTimeoutSecond = &v
	}
	if c.WorkerConcurrency == nil {
		v := defaultWorkerConcurrency
		c.WorkerConcurrency = &v
	}
}

// Validate refuses to start the engine on a nonsensical configuration
// (spec.md §7 "configuration-invalid").
func (c *EngineConfig) Validate() error {
	if *c.MaxTriggersPerCase <= 0 {
		return fmt.Errorf("config: max_triggers_per_case must be > 0, got %d", *c.MaxTriggersPerCase)
	}
	if *c.DefaultCooldownSeconds < 0 {
		return fmt.Errorf("config: default_cooldown_seconds must be >= 0, got %f", *c.DefaultCooldownSeconds)
	}
	if *c.HandlerTimeoutSeconds <= 0 {
		return fmt.Errorf("config: handler_timeout_seconds must be > 0, got %f", *c.HandlerTimeoutSeconds)
	}
	if *c.FanoutSendTimeoutSecond <= 0 {
		return fmt.Errorf("config: fanout_send_timeout_seconds must be > 0, got %f", *c.FanoutSendTimeoutSecond)
	}
	if *c.WorkerConcurrency <= 0 {
		return fmt.Errorf("config: worker_concurrency must be > 0, got %d", *c.WorkerConcurrency)
	}
	return nil
}
