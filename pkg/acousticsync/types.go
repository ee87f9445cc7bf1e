package acousticsync

import (
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/align"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/audio"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/correlation"
)

// Sources are the four recorders a session needs: local and remote capture of
// the sync signal channel and of the payload channel.
type Sources struct {
	SyncLocal     audio.Source
	SyncRemote    audio.Source
	PayloadLocal  audio.Source
	PayloadRemote audio.Source
}

// Status is a snapshot of a session for hosts and the HTTP API.
type Status struct {
	SessionID string `json:"session_id"`
	Phase     string `json:"phase"`
	Tracking  string `json:"tracking"`
	Message   string `json:"message"`

	TotalDelay  float64 `json:"total_delay"`
	DelayCoarse float64 `json:"delay_coarse"`
	DelayFine   float64 `json:"delay_fine"`
	SyncOffset  float64 `json:"sync_offset"`
	AutoAdjust  bool    `json:"auto_adjust"`

	Valid    bool    `json:"valid"`
	Peak     float64 `json:"peak"`
	Stable   bool    `json:"stable"`
	Failures int     `json:"failures"`
	Disabled bool    `json:"disabled"`
}

// ManualAlignment is a one-shot long alignment with its peak check.
type ManualAlignment struct {
	align.State
	Analysis correlation.Analysis
}

// Valid reports whether the alignment finished with an isolated peak.
func (m ManualAlignment) Valid() bool {
	return m.Phase == align.Ready && m.Analysis.IsValidPeak
}

// inDir returns src with its artifact directory defaulted to dir. Sources
// that already name a directory, and other Source types, are returned as is.
func inDir(src audio.Source, dir string) audio.Source {
	switch v := src.(type) {
	case *audio.BufferSource:
		if v.Dir == "" {
			c := *v
			c.Dir = dir
			return &c
		}
	case *audio.FileSource:
		if v.Dir == "" {
			c := *v
			c.Dir = dir
			return &c
		}
	}
	return src
}

func (s Sources) inDir(dir string) Sources {
	return Sources{
		SyncLocal:     inDir(s.SyncLocal, dir),
		SyncRemote:    inDir(s.SyncRemote, dir),
		PayloadLocal:  inDir(s.PayloadLocal, dir),
		PayloadRemote: inDir(s.PayloadRemote, dir),
	}
}
