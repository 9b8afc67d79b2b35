// Package config loads engine and server configuration: documented
// defaults, overlaid by an optional YAML file, overlaid by FLUPS_*
// environment variables, then validated fail-fast.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	Engine EngineConfig `yaml:"engine"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Bus    BusConfig    `yaml:"bus"`
}

// EngineConfig controls the engine core.
type EngineConfig struct {
	MaxNodes         int  `yaml:"max_nodes" validate:"min=1,max=1000000"`
	MaxPatches       int  `yaml:"max_patches" validate:"min=1,max=1000000"`
	EnableMirroring  bool `yaml:"enable_mirroring"`
	EnablePhiMapping bool `yaml:"enable_phi_mapping"`
	AuditCap         int  `yaml:"audit_cap" validate:"min=1,max=10000000"`
	DebugMode        bool `yaml:"debug_mode"`
}

// ServerConfig controls the HTTP/WS surface.
type ServerConfig struct {
	Addr               string        `yaml:"addr" validate:"required"`
	ReadTimeout        time.Duration `yaml:"read_timeout" validate:"min=1s"`
	WriteTimeout       time.Duration `yaml:"write_timeout" validate:"min=1s"`
	IdleTimeout        time.Duration `yaml:"idle_timeout" validate:"min=1s"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout" validate:"min=1s"`
	StatusPushInterval time.Duration `yaml:"status_push_interval" validate:"min=100ms"`
	CORSOrigins        []string      `yaml:"cors_origins"`

	// AuthSecret signs clearance tokens. Empty disables auth entirely;
	// when set it must be at least 32 bytes.
	AuthSecret string `yaml:"auth_secret" validate:"omitempty,min=32"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// BusConfig controls the optional NNG event bridge.
type BusConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url" validate:"required_if=Enabled true"`
}

// Default returns the documented defaults: mirroring and φ-mapping on,
// 1000 nodes, 500 patches, audit cap 10000, debug off.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxNodes:         1000,
			MaxPatches:       500,
			EnableMirroring:  true,
			EnablePhiMapping: true,
			AuditCap:         10000,
			DebugMode:        false,
		},
		Server: ServerConfig{
			Addr:               ":8080",
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       15 * time.Second,
			IdleTimeout:        60 * time.Second,
			ShutdownTimeout:    10 * time.Second,
			StatusPushInterval: 5 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Bus: BusConfig{
			Enabled: false,
			URL:     "tcp://127.0.0.1:7780",
		},
	}
}

// Load reads a YAML file over the defaults, applies environment
// overrides, and validates. An empty path skips the file step.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a config from defaults plus environment overrides.
func FromEnv() (*Config, error) {
	return Load("")
}

// applyEnv overlays FLUPS_* environment variables onto the config.
func applyEnv(cfg *Config) {
	envInt("FLUPS_MAX_NODES", &cfg.Engine.MaxNodes)
	envInt("FLUPS_MAX_PATCHES", &cfg.Engine.MaxPatches)
	envInt("FLUPS_AUDIT_CAP", &cfg.Engine.AuditCap)
	envBool("FLUPS_ENABLE_MIRRORING", &cfg.Engine.EnableMirroring)
	envBool("FLUPS_ENABLE_PHI_MAPPING", &cfg.Engine.EnablePhiMapping)
	envBool("FLUPS_DEBUG", &cfg.Engine.DebugMode)

	envString("FLUPS_ADDR", &cfg.Server.Addr)
	envDuration("FLUPS_STATUS_PUSH_INTERVAL", &cfg.Server.StatusPushInterval)
	envString("FLUPS_AUTH_SECRET", &cfg.Server.AuthSecret)
	if origins := os.Getenv("FLUPS_CORS_ORIGINS"); origins != "" {
		parts := strings.Split(origins, ",")
		for i, p := range parts {
			parts[i] = strings.TrimSpace(p)
		}
		cfg.Server.CORSOrigins = parts
	}

	envString("FLUPS_LOG_LEVEL", &cfg.Log.Level)

	envBool("FLUPS_BUS_ENABLED", &cfg.Bus.Enabled)
	envString("FLUPS_BUS_URL", &cfg.Bus.URL)
}

func envString(key string, target *string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

func envInt(key string, target *int) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func envBool(key string, target *bool) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func envDuration(key string, target *time.Duration) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			*target = parsed
		}
	}
}
