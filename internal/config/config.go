// Package config loads the hub's process-wide configuration: a YAML file
// layered under environment-variable overrides into a typed struct, then
// validated.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces environment overrides, e.g.
// SIGNALHUB_HUB_MAX_FRAME_BYTES -> hub.max_frame_bytes.
const envPrefix = "SIGNALHUB_"

// Config is the process's top-level configuration shape.
type Config struct {
	Service ServiceConfig `koanf:"service"`
	Hub     HubConfig     `koanf:"hub"`
}

type ServiceConfig struct {
	Listen                 string `koanf:"listen"`
	SignalingPath          string `koanf:"signaling_path"`
	LogLevel               string `koanf:"log_level"`
	ShutdownTimeoutSeconds int    `koanf:"shutdown_timeout_seconds"`
}

type HubConfig struct {
	MaxFrameBytes      int      `koanf:"max_frame_bytes"`
	MaxNameLength      int      `koanf:"max_name_length"`
	OutboundQueueDepth int      `koanf:"outbound_queue_depth"`
	WriteTimeoutMs     int      `koanf:"write_timeout_ms"`
	ReadIdleTimeoutMs  int      `koanf:"read_idle_timeout_ms"`
	AllowedOrigins     []string `koanf:"allowed_origins"`
}

// WriteTimeout renders WriteTimeoutMs as a time.Duration for callers.
func (h HubConfig) WriteTimeout() time.Duration {
	return time.Duration(h.WriteTimeoutMs) * time.Millisecond
}

// ReadIdleTimeout renders ReadIdleTimeoutMs as a time.Duration; zero disables
// the idle timeout.
func (h HubConfig) ReadIdleTimeout() time.Duration {
	return time.Duration(h.ReadIdleTimeoutMs) * time.Millisecond
}

func defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Listen:                 ":8080",
			SignalingPath:          "/api/signaling",
			LogLevel:               "info",
			ShutdownTimeoutSeconds: 10,
		},
		Hub: HubConfig{
			MaxFrameBytes:      65536,
			MaxNameLength:      40,
			OutboundQueueDepth: 32,
			WriteTimeoutMs:     5000,
			ReadIdleTimeoutMs:  0,
		},
	}
}

// Load reads path (if non-empty) as YAML, overlays SIGNALHUB_-prefixed
// environment variables, and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: loading file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		// The first underscore separates the top-level section
		// (service/hub) from its field name; everything after that is
		// the field's own snake_case name, e.g. HUB_MAX_FRAME_BYTES ->
		// hub.max_frame_bytes.
		section, field, found := strings.Cut(s, "_")
		if !found {
			return s
		}
		return section + "." + field
	}), nil); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	cfg := defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}

	if len(cfg.Hub.AllowedOrigins) == 1 && strings.Contains(cfg.Hub.AllowedOrigins[0], ",") {
		cfg.Hub.AllowedOrigins = strings.Split(cfg.Hub.AllowedOrigins[0], ",")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every field holds a usable value.
func (c *Config) Validate() error {
	if c.Service.Listen == "" {
		return fmt.Errorf("config: service.listen is required")
	}
	if !strings.HasPrefix(c.Service.SignalingPath, "/") {
		return fmt.Errorf("config: service.signaling_path must start with /")
	}
	if c.Service.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("config: service.shutdown_timeout_seconds must be > 0 (got %d)", c.Service.ShutdownTimeoutSeconds)
	}
	if c.Hub.MaxFrameBytes <= 0 {
		return fmt.Errorf("config: hub.max_frame_bytes must be > 0 (got %d)", c.Hub.MaxFrameBytes)
	}
	if c.Hub.MaxNameLength <= 0 {
		return fmt.Errorf("config: hub.max_name_length must be > 0 (got %d)", c.Hub.MaxNameLength)
	}
	if c.Hub.OutboundQueueDepth <= 0 {
		return fmt.Errorf("config: hub.outbound_queue_depth must be > 0 (got %d)", c.Hub.OutboundQueueDepth)
	}
	if c.Hub.WriteTimeoutMs <= 0 {
		return fmt.Errorf("config: hub.write_timeout_ms must be > 0 (got %d)", c.Hub.WriteTimeoutMs)
	}
	if c.Hub.ReadIdleTimeoutMs < 0 {
		return fmt.Errorf("config: hub.read_idle_timeout_ms must be >= 0 (got %d)", c.Hub.ReadIdleTimeoutMs)
	}
	return nil
}
