package acousticsync

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML form of a session configuration.
type FileConfig struct {
	Live      LiveConfig      `yaml:"live"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
	Manual    ManualConfig    `yaml:"manual"`
	Delay     DelayConfig     `yaml:"delay"`
	TempDir   string          `yaml:"temp_dir"`
	Logging   LoggingConfig   `yaml:"logging"`
	HTTP      HTTPConfig      `yaml:"http"`
}

// LiveConfig covers real-time tracking.
type LiveConfig struct {
	SampleRate       int     `yaml:"sample_rate"`
	TickInterval     float64 `yaml:"tick_interval"` // seconds
	PeakThreshold    float64 `yaml:"peak_threshold"`
	PeakWidth        float64 `yaml:"peak_width"` // seconds
	Smoothing        float64 `yaml:"smoothing"`
	InvertRemoteSync *bool   `yaml:"invert_remote_sync"`
}

type BootstrapConfig struct {
	Duration       float64 `yaml:"duration"`        // seconds
	RetryIncrement float64 `yaml:"retry_increment"` // seconds
	MaxFailures    int     `yaml:"max_failures"`
}

type ManualConfig struct {
	Duration      float64 `yaml:"duration"` // seconds
	PeakThreshold float64 `yaml:"peak_threshold"`
	PeakWidth     float64 `yaml:"peak_width"` // seconds
}

type DelayConfig struct {
	Initial    *float64 `yaml:"initial"`
	AutoAdjust *bool    `yaml:"auto_adjust"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

// LoadConfigFile reads, defaults and validates a YAML configuration.
func LoadConfigFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*FileConfig, error) {
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fc.applyDefaults()
	if err := fc.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &fc, nil
}

func (c *FileConfig) applyDefaults() {
	d := defaultConfig()
	if c.Live.SampleRate == 0 {
		c.Live.SampleRate = d.SampleRate
	}
	if c.Live.TickInterval == 0 {
		c.Live.TickInterval = d.TickInterval.Seconds()
	}
	if c.Live.PeakThreshold == 0 {
		c.Live.PeakThreshold = d.PeakThreshold
	}
	if c.Live.PeakWidth == 0 {
		c.Live.PeakWidth = d.PeakWidth
	}
	if c.Live.Smoothing == 0 {
		c.Live.Smoothing = d.Smoothing
	}
	if c.Bootstrap.Duration == 0 {
		c.Bootstrap.Duration = d.BootstrapDuration.Seconds()
	}
	if c.Bootstrap.RetryIncrement == 0 {
		c.Bootstrap.RetryIncrement = d.RetryIncrement.Seconds()
	}
	if c.Bootstrap.MaxFailures == 0 {
		c.Bootstrap.MaxFailures = d.MaxFailures
	}
	if c.Manual.Duration == 0 {
		c.Manual.Duration = d.ManualDuration.Seconds()
	}
	if c.Manual.PeakThreshold == 0 {
		c.Manual.PeakThreshold = d.ManualPeakThreshold
	}
	if c.Manual.PeakWidth == 0 {
		c.Manual.PeakWidth = d.ManualPeakWidth
	}
	if c.TempDir == "" {
		c.TempDir = d.TempDir
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
}

// Validate performs validation of the configuration
func (c *FileConfig) Validate() error {
	if c.Live.SampleRate < 8000 || c.Live.SampleRate > 192000 {
		return fmt.Errorf("live.sample_rate must be between 8000 and 192000, got %d", c.Live.SampleRate)
	}
	if c.Live.TickInterval < 0.1 {
		return fmt.Errorf("live.tick_interval must be at least 0.1s, got %v", c.Live.TickInterval)
	}
	if c.Live.PeakThreshold <= 0 || c.Live.PeakThreshold >= 1 {
		return fmt.Errorf("live.peak_threshold must be between 0 and 1, got %v", c.Live.PeakThreshold)
	}
	if c.Live.PeakWidth < 0 {
		return fmt.Errorf("live.peak_width must not be negative, got %v", c.Live.PeakWidth)
	}
	if c.Live.Smoothing <= 0 || c.Live.Smoothing > 1 {
		return fmt.Errorf("live.smoothing must be in (0, 1], got %v", c.Live.Smoothing)
	}
	if c.Bootstrap.Duration <= 0 || c.Manual.Duration <= 0 {
		return fmt.Errorf("recording durations must be positive")
	}
	if c.Bootstrap.RetryIncrement < 0 {
		return fmt.Errorf("bootstrap.retry_increment must not be negative, got %v", c.Bootstrap.RetryIncrement)
	}
	if c.Bootstrap.MaxFailures < 1 {
		return fmt.Errorf("bootstrap.max_failures must be at least 1, got %d", c.Bootstrap.MaxFailures)
	}
	if c.Manual.PeakThreshold <= 0 || c.Manual.PeakThreshold >= 1 {
		return fmt.Errorf("manual.peak_threshold must be between 0 and 1, got %v", c.Manual.PeakThreshold)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// Options converts the file into session options.
func (c *FileConfig) Options() []Option {
	opts := []Option{
		WithSampleRate(c.Live.SampleRate),
		WithTickInterval(seconds(c.Live.TickInterval)),
		WithPeakAnalysis(c.Live.PeakThreshold, c.Live.PeakWidth),
		WithSmoothing(c.Live.Smoothing),
		WithBootstrapDuration(seconds(c.Bootstrap.Duration)),
		WithRetryIncrement(seconds(c.Bootstrap.RetryIncrement)),
		WithMaxFailures(c.Bootstrap.MaxFailures),
		WithManualDuration(seconds(c.Manual.Duration)),
		WithTempDir(c.TempDir),
		func(cfg *Config) {
			cfg.ManualPeakThreshold = c.Manual.PeakThreshold
			cfg.ManualPeakWidth = c.Manual.PeakWidth
		},
	}
	if c.Live.InvertRemoteSync != nil {
		opts = append(opts, WithInvertRemoteSync(*c.Live.InvertRemoteSync))
	}
	if c.Delay.Initial != nil {
		opts = append(opts, WithInitialDelay(*c.Delay.Initial))
	}
	if c.Delay.AutoAdjust != nil {
		opts = append(opts, WithAutoAdjust(*c.Delay.AutoAdjust))
	}
	return opts
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
