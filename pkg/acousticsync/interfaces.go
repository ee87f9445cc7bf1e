package acousticsync

import (
	"context"
	"time"

	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/align"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/synchronizer"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/tracker"
)

// Synchronizer is the surface a real-time host drives.
type Synchronizer interface {
	Start(ctx context.Context)
	ProcessSyncFrames(local, remote []float64, now time.Time) (tracker.Report, error)
	ProcessPayloadFrames(local, remote []float64, now time.Time) (tracker.Report, error)
	Status() Status
	Retry()
	Align(ctx context.Context, ch synchronizer.Channel, onProgress func(align.State)) ManualAlignment
	ApplyOffset(ch synchronizer.Channel, seconds float64)
	CenterVisiblePeak(now time.Time) bool
	ToggleAutoAdjust()
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
