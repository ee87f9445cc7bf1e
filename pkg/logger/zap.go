package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Zap adapts a zap SugaredLogger to Interface.
type Zap struct {
	s *zap.SugaredLogger
}

// NewZap builds a JSON production logger at the given level.
func NewZap(level LogLevel) (*Zap, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(level))
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Zap{s: l.Sugar()}, nil
}

// NewZapFrom wraps an existing zap logger.
func NewZapFrom(l *zap.Logger) *Zap {
	return &Zap{s: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (z *Zap) Named(name string) *Zap {
	return &Zap{s: z.s.Named(name)}
}

func (z *Zap) Debugf(format string, args ...any) { z.s.Debugf(format, args...) }
func (z *Zap) Infof(format string, args ...any)  { z.s.Infof(format, args...) }
func (z *Zap) Warnf(format string, args ...any)  { z.s.Warnf(format, args...) }
func (z *Zap) Errorf(format string, args ...any) { z.s.Errorf(format, args...) }

func (z *Zap) Sync() error { return z.s.Sync() }

func zapLevel(l LogLevel) zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	case FATAL:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
