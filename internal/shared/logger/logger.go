package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	mu     sync.Mutex
)

// Init builds the shared logger for the given env ("production" uses the json
// encoder, anything else the development console one). Packages keep the
// pointer returned by GetLogger at init time, so the configured logger is
// copied into that same instance.
func Init(level, env string) error {
	l, err := build(level, env)
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = l
	} else {
		*logger = *l
	}
	return err
}

func build(level, env string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	var levelErr error
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			levelErr = err
			lvl = zapcore.InfoLevel
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	l, err := cfg.Build()
	if err != nil {
		panic("failed logger setup : " + err.Error())
	}
	return l, levelErr
}

// GetLogger returns zap.Logger instance, but using singleton pattern creates only one reusable instace
// development config by default
func GetLogger() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger, _ = build("", "development")
	}
	return logger
}
