package libreg

// Logger is the logging contract used across the module. Adapters for zap and zerolog are provided,
// as well as a plain io.Writer implementation.
type Logger interface {
	WithField(key string, value any) Logger
	Debug(args ...any)
	Debugf(format string, args ...any)
	Debugln(args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Infoln(args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Warnln(args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
	Errorln(args ...any)
}

type noopLogger struct{}

// NewNoopLogger returns a Logger that discards everything.
func NewNoopLogger() Logger { return noopLogger{} }

func (l noopLogger) WithField(string, any) Logger { return l }
func (noopLogger) Debug(...any)                  {}
func (noopLogger) Debugf(string, ...any)         {}
func (noopLogger) Debugln(...any)                {}
func (noopLogger) Info(...any)                   {}
func (noopLogger) Infof(string, ...any)          {}
func (noopLogger) Infoln(...any)                 {}
func (noopLogger) Warn(...any)                   {}
func (noopLogger) Warnf(string, ...any)          {}
func (noopLogger) Warnln(...any)                 {}
func (noopLogger) Error(...any)                  {}
func (noopLogger) Errorf(string, ...any)         {}
func (noopLogger) Errorln(...any)                {}
