// Package config loads thumbnailer settings with priority
// defaults < YAML file < environment < CLI flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"asset-thumbnailer/internal/bmd"
	"asset-thumbnailer/internal/crypto"
	"asset-thumbnailer/internal/encode"
	"asset-thumbnailer/internal/pipeline"
)

// EnvMapURLEnv names the environment variable holding the environment map URI.
const EnvMapURLEnv = "ENV_MAP_URL"

// DefaultFileName is looked up in the working directory when no config
// path is given.
const DefaultFileName = "thumbnail.yaml"

// Config holds every setting of a render or batch run.
type Config struct {
	OutputDir        string        `yaml:"output_dir"`
	OutputFormat     string        `yaml:"output_format"`
	FrameDelayMS     int           `yaml:"frame_delay_ms"`
	Supersample      int           `yaml:"supersample"`
	ReadinessTimeout time.Duration `yaml:"readiness_timeout"`
	Sampling         string        `yaml:"sampling"`
	ClipPolicy       string        `yaml:"clip_policy"`
	ClipName         string        `yaml:"clip_name,omitempty"`
	Framing          string        `yaml:"framing"`
	EnvMapURL        string        `yaml:"env_map_url,omitempty"`
	Workers          int           `yaml:"workers"`

	BMD     BMDConfig     `yaml:"bmd"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// BMDConfig holds hex-encoded decryption keys for legacy models.
type BMDConfig struct {
	XORKey      string `yaml:"xor_key,omitempty"`
	LEAKey      string `yaml:"lea_key,omitempty"`
	SkipEffects bool   `yaml:"skip_effects"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// MetricsConfig holds the optional textfile collector output.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		OutputDir:        ".",
		OutputFormat:     "webp",
		FrameDelayMS:     int(encode.DefaultFrameDelay / time.Millisecond),
		Supersample:      2,
		ReadinessTimeout: pipeline.DefaultReadinessTimeout,
		Sampling:         pipeline.SamplingFreeRunning.String(),
		ClipPolicy:       "all",
		Framing:          pipeline.FramingCentered.String(),
		Workers:          runtime.NumCPU(),
		Logging:          LoggingConfig{Level: "info"},
	}
}

// Load returns defaults overlaid with the YAML file at path. An empty path
// tries DefaultFileName and silently skips it when absent.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvMapURLEnv); v != "" {
		c.EnvMapURL = v
	}
}

// Flags holds CLI flag values. Zero values leave the setting untouched.
type Flags struct {
	OutputDir    string
	OutputFormat string
	Sampling     string
	ClipPolicy   string
	ClipName     string
	Framing      string
	EnvMapURL    string
	LogLevel     string
	Workers      int
	Supersample  int
}

// Resolve applies flags, fills unset values with defaults and validates.
func (c *Config) Resolve(flags Flags) error {
	overlay := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	overlay(&c.OutputDir, flags.OutputDir)
	overlay(&c.OutputFormat, flags.OutputFormat)
	overlay(&c.Sampling, flags.Sampling)
	overlay(&c.ClipPolicy, flags.ClipPolicy)
	overlay(&c.ClipName, flags.ClipName)
	overlay(&c.Framing, flags.Framing)
	overlay(&c.EnvMapURL, flags.EnvMapURL)
	overlay(&c.Logging.Level, flags.LogLevel)
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.Supersample > 0 {
		c.Supersample = flags.Supersample
	}

	def := Default()
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}
	if c.OutputFormat == "" {
		c.OutputFormat = def.OutputFormat
	}
	c.OutputFormat = strings.ToLower(c.OutputFormat)
	if c.FrameDelayMS <= 0 {
		c.FrameDelayMS = def.FrameDelayMS
	}
	if c.Supersample <= 0 {
		c.Supersample = def.Supersample
	}
	if c.ReadinessTimeout <= 0 {
		c.ReadinessTimeout = def.ReadinessTimeout
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}

	if _, err := encode.NewWriter(c.OutputFormat); err != nil {
		return fmt.Errorf("config: output_format: %w", err)
	}
	if c.FrameDelay() > encode.MaxFrameDelay {
		return fmt.Errorf("config: frame_delay_ms %d exceeds %d", c.FrameDelayMS, encode.MaxFrameDelay/time.Millisecond)
	}
	if _, err := c.PipelineOptions(); err != nil {
		return err
	}
	if _, err := c.BMDKeys(); err != nil {
		return err
	}
	return nil
}

// FrameDelay returns the per-frame display time of animated output.
func (c *Config) FrameDelay() time.Duration {
	return time.Duration(c.FrameDelayMS) * time.Millisecond
}

// PipelineOptions converts the render settings into pipeline options.
func (c *Config) PipelineOptions() (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()
	var err error
	if opts.Sampling, err = pipeline.ParseSamplingMode(c.Sampling); err != nil {
		return opts, fmt.Errorf("config: sampling: %w", err)
	}
	if opts.Clips, err = pipeline.ParseClipPolicy(c.ClipPolicy, c.ClipName); err != nil {
		return opts, fmt.Errorf("config: clip_policy: %w", err)
	}
	if opts.Framing, err = pipeline.ParseFraming(c.Framing); err != nil {
		return opts, fmt.Errorf("config: framing: %w", err)
	}
	if c.ReadinessTimeout > 0 {
		opts.ReadinessTimeout = c.ReadinessTimeout
	}
	opts.EnvMapURL = c.EnvMapURL
	return opts, nil
}

// BMDKeys decodes the configured keys, keeping the built-in XOR key when
// none is set.
func (c *Config) BMDKeys() (bmd.Keys, error) {
	keys := bmd.DefaultKeys()
	if c.BMD.XORKey != "" {
		b, err := crypto.ParseKey(c.BMD.XORKey, len(keys.XOR))
		if err != nil {
			return keys, fmt.Errorf("config: bmd.xor_key: %w", err)
		}
		copy(keys.XOR[:], b)
	}
	if c.BMD.LEAKey != "" {
		b, err := crypto.ParseKey(c.BMD.LEAKey, 32)
		if err != nil {
			return keys, fmt.Errorf("config: bmd.lea_key: %w", err)
		}
		keys.LEA = (*[32]byte)(b)
	}
	return keys, nil
}
