package libreg

import (
	"go.uber.org/zap"
)

type zapLogger struct {
	l *zap.SugaredLogger
}

// NewZapLogger adapts a zap sugared logger to Logger.
func NewZapLogger(l *zap.SugaredLogger) Logger {
	return zapLogger{l: l}
}

func (z zapLogger) WithField(key string, value any) Logger {
	return zapLogger{l: z.l.With(key, value)}
}

func (z zapLogger) Debug(args ...any)                 { z.l.Debug(args...) }
func (z zapLogger) Debugf(format string, args ...any) { z.l.Debugf(format, args...) }
func (z zapLogger) Debugln(args ...any)               { z.l.Debugln(args...) }
func (z zapLogger) Info(args ...any)                  { z.l.Info(args...) }
func (z zapLogger) Infof(format string, args ...any)  { z.l.Infof(format, args...) }
func (z zapLogger) Infoln(args ...any)                { z.l.Infoln(args...) }
func (z zapLogger) Warn(args ...any)                  { z.l.Warn(args...) }
func (z zapLogger) Warnf(format string, args ...any)  { z.l.Warnf(format, args...) }
func (z zapLogger) Warnln(args ...any)                { z.l.Warnln(args...) }
func (z zapLogger) Error(args ...any)                 { z.l.Error(args...) }
func (z zapLogger) Errorf(format string, args ...any) { z.l.Errorf(format, args...) }
func (z zapLogger) Errorln(args ...any)               { z.l.Errorln(args...) }
