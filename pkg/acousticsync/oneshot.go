package acousticsync

import (
	"context"

	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/align"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/audio"
	"github.com/himanishpuri/AcousticSync/pkg/logger"
)

// AlignSources runs a single manual alignment of two sources without a
// session. Only the manual duration and analysis options apply.
func AlignSources(ctx context.Context, a, b audio.Source, onProgress func(align.State), opts ...Option) (ManualAlignment, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := validateConfig(cfg); err != nil {
		return ManualAlignment{}, err
	}
	log := cfg.Logger
	if log == nil {
		log = logger.GetLogger().WithPrefix("align")
	}
	p := align.NewPipeline(align.WithLogger(log))
	return manualAlign(ctx, p, cfg, log, inDir(a, cfg.TempDir), inDir(b, cfg.TempDir), onProgress), nil
}

func manualAlign(ctx context.Context, p *align.Pipeline, cfg *Config, log Logger, a, b audio.Source, onProgress func(align.State)) ManualAlignment {
	st := p.Run(ctx, cfg.ManualDuration, a, b, onProgress)
	m := ManualAlignment{State: st}
	if st.Phase == align.Ready {
		an, err := analyseManual(st, cfg)
		if err != nil {
			log.Warnf("manual alignment analysis failed: %v", err)
		}
		m.Analysis = an
	}
	return m
}
