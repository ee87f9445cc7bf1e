package acousticsync

import (
	"os"
	"time"

	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/synchronizer"
)

type Config struct {
	// SampleRate is the rate of the live frames passed to the Process methods.
	SampleRate int

	TickInterval      time.Duration
	BootstrapDuration time.Duration
	ManualDuration    time.Duration
	RetryIncrement    time.Duration
	MaxFailures       int

	// Live tracking analysis. PeakWidth is in seconds.
	PeakThreshold float64
	PeakWidth     float64
	Smoothing     float64

	// Manual long alignment analysis. ManualPeakWidth is in seconds.
	ManualPeakThreshold float64
	ManualPeakWidth     float64

	InitialDelay     float64
	AutoAdjust       bool
	InvertRemoteSync bool

	// TempDir receives artifacts of BufferSource and FileSource sources
	// that leave Dir empty.
	TempDir  string
	Logger   Logger
	Observer synchronizer.Observer
}

type Option func(*Config)

func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

func WithTickInterval(d time.Duration) Option {
	return func(c *Config) {
		c.TickInterval = d
	}
}

func WithBootstrapDuration(d time.Duration) Option {
	return func(c *Config) {
		c.BootstrapDuration = d
	}
}

func WithManualDuration(d time.Duration) Option {
	return func(c *Config) {
		c.ManualDuration = d
	}
}

func WithRetryIncrement(d time.Duration) Option {
	return func(c *Config) {
		c.RetryIncrement = d
	}
}

func WithMaxFailures(n int) Option {
	return func(c *Config) {
		c.MaxFailures = n
	}
}

// WithPeakAnalysis sets the live tracking threshold and peak width in seconds.
func WithPeakAnalysis(threshold, width float64) Option {
	return func(c *Config) {
		c.PeakThreshold = threshold
		c.PeakWidth = width
	}
}

func WithSmoothing(weight float64) Option {
	return func(c *Config) {
		c.Smoothing = weight
	}
}

func WithInitialDelay(seconds float64) Option {
	return func(c *Config) {
		c.InitialDelay = seconds
	}
}

func WithAutoAdjust(on bool) Option {
	return func(c *Config) {
		c.AutoAdjust = on
	}
}

func WithInvertRemoteSync(on bool) Option {
	return func(c *Config) {
		c.InvertRemoteSync = on
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithObserver(o synchronizer.Observer) Option {
	return func(c *Config) {
		c.Observer = o
	}
}

func defaultConfig() *Config {
	return &Config{
		SampleRate:          48000,
		TickInterval:        3 * time.Second,
		BootstrapDuration:   4100 * time.Millisecond,
		ManualDuration:      6 * time.Second,
		RetryIncrement:      time.Second,
		MaxFailures:         5,
		PeakThreshold:       0.8,
		PeakWidth:           0.003,
		Smoothing:           0.1,
		ManualPeakThreshold: 0.8,
		ManualPeakWidth:     0.0002,
		InitialDelay:        -0.1,
		AutoAdjust:          true,
		InvertRemoteSync:    true,
		TempDir:             os.TempDir(),
	}
}
