package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Hue    HueConfig    `yaml:"hue"`
	Geo    GeoConfig    `yaml:"geo"`
	Engine EngineConfig `yaml:"engine"`
	Health HealthConfig `yaml:"health"`
	Log    LogConfig    `yaml:"log"`
}

// HueConfig contains Hue bridge connection settings
type HueConfig struct {
	Bridge  string   `yaml:"bridge"`
	Token   string   `yaml:"token"`
	Timeout Duration `yaml:"timeout"` // HTTP timeout for Hue API requests
}

// GeoConfig contains the home location for solar calculations
type GeoConfig struct {
	Lat      float64 `yaml:"lat"`
	Lon      float64 `yaml:"lon"`
	Timezone string  `yaml:"timezone"`
}

// EngineConfig contains poll loop settings
type EngineConfig struct {
	PingInterval       Duration `yaml:"ping_interval"`       // Time between poll ticks
	ReachabilityWindow Duration `yaml:"reachability_window"` // Max spread for clustered reachable transitions
	TickTimeout        Duration `yaml:"tick_timeout"`        // Upper bound for one tick's bridge calls
}

// HealthConfig contains health check server settings
type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	Colors  bool   `yaml:"colors"`
	UseJSON bool   `yaml:"json"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads, expands and parses the configuration file, applies defaults
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Geo.Timezone == "" {
		cfg.Geo.Timezone = "UTC"
	}
	if cfg.Hue.Timeout == 0 {
		cfg.Hue.Timeout = Duration(10 * time.Second)
	}
	if cfg.Engine.PingInterval == 0 {
		cfg.Engine.PingInterval = Duration(5 * time.Second)
	}
	if cfg.Engine.ReachabilityWindow == 0 {
		cfg.Engine.ReachabilityWindow = Duration(3 * time.Second)
	}
	if cfg.Engine.TickTimeout == 0 {
		cfg.Engine.TickTimeout = Duration(30 * time.Second)
	}
	if cfg.Health.Port == 0 {
		cfg.Health.Port = 9090
	}
	if cfg.Health.Host == "" {
		cfg.Health.Host = "0.0.0.0"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the engine cannot run with. These are the
// only fatal errors in the process; everything past startup is recoverable.
func (c *Config) Validate() error {
	if c.Hue.Bridge == "" {
		return fmt.Errorf("hue.bridge is required")
	}
	if c.Hue.Token == "" {
		return fmt.Errorf("hue.token is required")
	}
	if c.Hue.Timeout.Duration() <= 0 {
		return fmt.Errorf("hue.timeout must be positive, got %s", c.Hue.Timeout.Duration())
	}
	if c.Engine.PingInterval.Duration() <= 0 {
		return fmt.Errorf("engine.ping_interval must be positive, got %s", c.Engine.PingInterval.Duration())
	}
	if c.Engine.ReachabilityWindow.Duration() <= 0 {
		return fmt.Errorf("engine.reachability_window must be positive, got %s", c.Engine.ReachabilityWindow.Duration())
	}
	if c.Engine.TickTimeout.Duration() <= 0 {
		return fmt.Errorf("engine.tick_timeout must be positive, got %s", c.Engine.TickTimeout.Duration())
	}
	if c.Geo.Lat < -90 || c.Geo.Lat > 90 {
		return fmt.Errorf("geo.lat out of range: %f", c.Geo.Lat)
	}
	if c.Geo.Lon < -180 || c.Geo.Lon > 180 {
		return fmt.Errorf("geo.lon out of range: %f", c.Geo.Lon)
	}
	if _, err := time.LoadLocation(c.Geo.Timezone); err != nil {
		return fmt.Errorf("geo.timezone invalid: %w", err)
	}
	return nil
}

// Location returns the configured timezone.
func (c *Config) Location() *time.Location {
	tz, err := time.LoadLocation(c.Geo.Timezone)
	if err != nil {
		return time.UTC
	}
	return tz
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
