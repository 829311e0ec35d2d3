package core

import "go.uber.org/zap"

type zapLogger struct {
	s *zap.SugaredLogger
}

// NewZapLogger adapts a zap logger to the Logger interface. A nil logger
// yields a no-op Logger.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		return noopLogger{}
	}
	return zapLogger{s: l.Sugar()}
}

func (z zapLogger) Debug(msg string, args ...any) { z.s.Debugw(msg, args...) }
func (z zapLogger) Info(msg string, args ...any)  { z.s.Infow(msg, args...) }
func (z zapLogger) Warn(msg string, args ...any)  { z.s.Warnw(msg, args...) }
func (z zapLogger) Error(msg string, args ...any) { z.s.Errorw(msg, args...) }
