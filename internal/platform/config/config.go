// Package config assembles the runtime configuration from defaults, an
// optional YAML file, and environment overrides, in that order. Only
// startup validation failures are fatal.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	dErrors "dronewatch/pkg/domain-errors"
)

// EnvFile names the environment variable pointing at an optional YAML
// configuration file.
const EnvFile = "DRONEWATCH_CONFIG"

// Defaults mirror the sensor deployment the monitor was built against.
const (
	DefaultAddr         = ":8080"
	DefaultLogLevel     = "info"
	DefaultSnapshotURL  = "https://assignments.reaktor.com/birdnest/drones"
	DefaultPilotBaseURL = "https://assignments.reaktor.com/birdnest/pilots/"
	DefaultNestX        = 250000.0
	DefaultNestY        = 250000.0
	DefaultRadiusMM     = 100000.0
	DefaultRetention    = 10 * time.Minute
	DefaultPollInterval = 2 * time.Second
)

// Config captures everything main needs to wire the monitor.
type Config struct {
	Addr         string
	LogLevel     string
	SnapshotURL  string
	PilotBaseURL string
	NestX        float64
	NestY        float64
	RadiusMM     float64
	Retention    time.Duration
	PollInterval time.Duration
}

// fileConfig is the YAML shape. Durations are strings in Go duration
// syntax; absent fields keep their prior value.
type fileConfig struct {
	Addr         *string  `yaml:"addr"`
	LogLevel     *string  `yaml:"logLevel"`
	SnapshotURL  *string  `yaml:"snapshotURL"`
	PilotBaseURL *string  `yaml:"pilotBaseURL"`
	NestX        *float64 `yaml:"nestX"`
	NestY        *float64 `yaml:"nestY"`
	RadiusMM     *float64 `yaml:"radiusMM"`
	Retention    *string  `yaml:"retention"`
	PollInterval *string  `yaml:"pollInterval"`
}

// Load builds the configuration: defaults, then the YAML file named by
// DRONEWATCH_CONFIG when set, then environment overrides. The result is
// validated before use.
func Load() (Config, error) {
	cfg := Config{
		Addr:         DefaultAddr,
		LogLevel:     DefaultLogLevel,
		SnapshotURL:  DefaultSnapshotURL,
		PilotBaseURL: DefaultPilotBaseURL,
		NestX:        DefaultNestX,
		NestY:        DefaultNestY,
		RadiusMM:     DefaultRadiusMM,
		Retention:    DefaultRetention,
		PollInterval: DefaultPollInterval,
	}

	if path := os.Getenv(EnvFile); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("reading config file %s", path))
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("parsing config file %s", path))
	}

	if fc.Addr != nil {
		c.Addr = *fc.Addr
	}
	if fc.LogLevel != nil {
		c.LogLevel = *fc.LogLevel
	}
	if fc.SnapshotURL != nil {
		c.SnapshotURL = *fc.SnapshotURL
	}
	if fc.PilotBaseURL != nil {
		c.PilotBaseURL = *fc.PilotBaseURL
	}
	if fc.NestX != nil {
		c.NestX = *fc.NestX
	}
	if fc.NestY != nil {
		c.NestY = *fc.NestY
	}
	if fc.RadiusMM != nil {
		c.RadiusMM = *fc.RadiusMM
	}
	for name, pair := range map[string]struct {
		raw *string
		dst *time.Duration
	}{
		"retention":    {fc.Retention, &c.Retention},
		"pollInterval": {fc.PollInterval, &c.PollInterval},
	} {
		if pair.raw == nil {
			continue
		}
		d, err := time.ParseDuration(*pair.raw)
		if err != nil {
			return dErrors.Newf(dErrors.CodeValidation, "%s: %q is not a duration", name, *pair.raw)
		}
		*pair.dst = d
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DRONEWATCH_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("DRONEWATCH_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("DRONEWATCH_SNAPSHOT_URL"); v != "" {
		c.SnapshotURL = v
	}
	if v := os.Getenv("DRONEWATCH_PILOT_URL"); v != "" {
		c.PilotBaseURL = v
	}
	for name, dst := range map[string]*float64{
		"DRONEWATCH_NEST_X":    &c.NestX,
		"DRONEWATCH_NEST_Y":    &c.NestY,
		"DRONEWATCH_RADIUS_MM": &c.RadiusMM,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return dErrors.Newf(dErrors.CodeValidation, "%s: %q is not a number", name, v)
		}
		*dst = f
	}
	for name, dst := range map[string]*time.Duration{
		"DRONEWATCH_RETENTION":     &c.Retention,
		"DRONEWATCH_POLL_INTERVAL": &c.PollInterval,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return dErrors.Newf(dErrors.CodeValidation, "%s: %q is not a duration", name, v)
		}
		*dst = d
	}
	return nil
}

// Validate rejects configurations that cannot run.
func (c Config) Validate() error {
	if c.Addr == "" {
		return dErrors.New(dErrors.CodeValidation, "listen address must not be empty")
	}
	for name, raw := range map[string]string{
		"snapshot URL": c.SnapshotURL,
		"pilot URL":    c.PilotBaseURL,
	} {
		u, err := url.Parse(raw)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("invalid %s", name))
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return dErrors.Newf(dErrors.CodeValidation, "%s must be http or https, got %q", name, raw)
		}
	}
	if c.RadiusMM <= 0 {
		return dErrors.Newf(dErrors.CodeValidation, "exclusion radius must be positive, got %v", c.RadiusMM)
	}
	if c.Retention <= 0 {
		return dErrors.Newf(dErrors.CodeValidation, "retention must be positive, got %v", c.Retention)
	}
	if c.PollInterval <= 0 {
		return dErrors.Newf(dErrors.CodeValidation, "poll interval must be positive, got %v", c.PollInterval)
	}
	return nil
}
