package logx

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// L is the process logger. It is a no-op until Init is called.
var L = zap.NewNop()

// New builds a zap logger. env "prod" selects the JSON production config,
// anything else the console development config.
func New(env, level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()

	// Local dev readability
	if env != "prod" {
		cfg = zap.NewDevelopmentConfig()
	}

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	return cfg.Build()
}

// Init builds the logger and installs it as L.
func Init(env, level string) error {
	logger, err := New(env, level)
	if err != nil {
		return err
	}
	L = logger
	return nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
