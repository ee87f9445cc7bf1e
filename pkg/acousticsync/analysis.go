package acousticsync

import (
	"fmt"

	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/align"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/audio"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/correlation"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/errs"
)

func analyseManual(st align.State, cfg *Config) (correlation.Analysis, error) {
	if st.Correlation == nil {
		return correlation.Analysis{}, fmt.Errorf("no correlation trace: %w", errs.ErrInvalidInput)
	}
	width := cfg.ManualPeakWidth * audio.AlignmentSampleRate
	return correlation.NewAnalyzer().Analyse(st.Correlation.Trace, st.Correlation.PeakIndex, cfg.ManualPeakThreshold, width)
}

func validateConfig(cfg *Config) error {
	switch {
	case cfg.SampleRate <= 0:
		return fmt.Errorf("sample rate must be positive, got %d: %w", cfg.SampleRate, errs.ErrInvalidInput)
	case cfg.TickInterval <= 0:
		return fmt.Errorf("tick interval must be positive: %w", errs.ErrInvalidInput)
	case cfg.BootstrapDuration <= 0 || cfg.ManualDuration <= 0:
		return fmt.Errorf("recording durations must be positive: %w", errs.ErrInvalidInput)
	case cfg.MaxFailures < 1:
		return fmt.Errorf("max failures must be at least 1: %w", errs.ErrInvalidInput)
	case !(cfg.PeakThreshold > 0 && cfg.PeakThreshold < 1), !(cfg.ManualPeakThreshold > 0 && cfg.ManualPeakThreshold < 1):
		return fmt.Errorf("peak thresholds must be in (0, 1): %w", errs.ErrInvalidInput)
	case cfg.PeakWidth < 0 || cfg.ManualPeakWidth < 0:
		return fmt.Errorf("peak widths must not be negative: %w", errs.ErrInvalidInput)
	case !(cfg.Smoothing > 0 && cfg.Smoothing <= 1):
		return fmt.Errorf("smoothing must be in (0, 1]: %w", errs.ErrInvalidInput)
	}
	return nil
}
