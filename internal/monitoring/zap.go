package monitoring

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewZapLogger builds a zap logger. level is one of debug, info, warn or
// error (default info); format is "console" or "json" (default console).
// Output goes to outputs, or stderr when none are given.
func NewZapLogger(level, format, service string, outputs ...string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil || level == "" {
		zapLevel = zapcore.InfoLevel
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}
	cfg.OutputPaths = outputs
	cfg.ErrorOutputPaths = outputs

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if service != "" {
		logger = logger.With(zap.String("service", service))
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		logger = logger.With(zap.String("hostname", hostname))
	}
	return logger, nil
}

// UseZap routes Logf, Debugf and the standard library logger through l. The
// returned function restores the standard log output.
func UseZap(l *zap.Logger) (restore func()) {
	sugar := l.WithOptions(zap.AddCallerSkip(1)).Sugar()
	SetLogger(sugar.Infof)
	SetDebugLogger(sugar.Debugf)
	return zap.RedirectStdLog(l)
}
