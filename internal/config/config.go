// Package config loads chronoview settings from a YAML file.
//
// The file is optional: without one, Default is used. A path may be given by
// the --config flag or the CHRONOVIEW_CONFIG environment variable. Keys left
// out of the file keep their default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aNThiCu/AirsoftChronograph/internal/session"
	"github.com/aNThiCu/AirsoftChronograph/internal/transport"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "CHRONOVIEW_CONFIG"

// Config is the complete chronoview configuration.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Chart     ChartConfig     `yaml:"chart"`
	Log       LogConfig       `yaml:"log"`
}

// DeviceConfig configures the connection to the chronograph.
type DeviceConfig struct {
	// Endpoint is a ws://, wss:// or tcp:// URL.
	Endpoint string `yaml:"endpoint"`

	// Variant is "push" (device streams readings) or "poll" (client asks
	// with sendValues).
	Variant session.Variant `yaml:"variant"`

	ReconnectDelay Duration `yaml:"reconnectDelay"`
	PollInterval   Duration `yaml:"pollInterval"`
	PollLimit      int      `yaml:"pollLimit"`

	// Keepalive is the WebSocket ping period. Zero disables it.
	Keepalive Duration `yaml:"keepalive"`
}

// DashboardConfig configures the local web dashboard.
type DashboardConfig struct {
	// Listen is the dashboard address. Empty disables the dashboard.
	Listen string `yaml:"listen"`
}

// ChartConfig sets the chart viewport in pixels.
type ChartConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
	// File receives log output instead of stderr when set.
	File string `yaml:"file"`
}

// Duration is a time.Duration that reads from YAML either as a Go duration
// string ("2s") or as a bare number of milliseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return errors.New("duration must be a scalar")
	}
	if ms, err := strconv.ParseInt(value.Value, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	v, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Endpoint:       "ws://192.168.4.1/ws",
			Variant:        session.VariantPush,
			ReconnectDelay: Duration(session.DefaultReconnectDelay),
			PollInterval:   Duration(session.DefaultPollInterval),
			PollLimit:      session.DefaultPollLimit,
		},
		Dashboard: DashboardConfig{
			Listen: "127.0.0.1:8080",
		},
		Chart: ChartConfig{
			Width:  600,
			Height: 300,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at path over the defaults. An empty path falls
// back to $CHRONOVIEW_CONFIG, and to plain defaults when that is unset too.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	if err := transport.ValidateEndpoint(c.Device.Endpoint); err != nil {
		errs = append(errs, fmt.Errorf("device.endpoint: %w", err))
	}
	switch c.Device.Variant {
	case session.VariantPush, session.VariantPoll:
	default:
		errs = append(errs, fmt.Errorf("device.variant: must be %q or %q, got %q",
			session.VariantPush, session.VariantPoll, c.Device.Variant))
	}
	if c.Device.ReconnectDelay <= 0 {
		errs = append(errs, errors.New("device.reconnectDelay: must be positive"))
	}
	if c.Device.PollInterval <= 0 {
		errs = append(errs, errors.New("device.pollInterval: must be positive"))
	}
	if c.Device.PollLimit < 0 {
		errs = append(errs, errors.New("device.pollLimit: must not be negative"))
	}
	if c.Device.Keepalive < 0 {
		errs = append(errs, errors.New("device.keepalive: must not be negative"))
	}
	if c.Chart.Width <= 0 || c.Chart.Height <= 0 {
		errs = append(errs, errors.New("chart: width and height must be positive"))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}

	return errors.Join(errs...)
}
