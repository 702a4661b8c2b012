package logging

import (
	"go.uber.org/zap"
)

// Logger is the process logger. It discards everything until InitLogger
// runs, so packages may log from tests without setup.
var Logger = zap.NewNop()

// InitLogger builds the process logger: development output when debug is
// set, warnings and above otherwise.
func InitLogger(debug bool) *zap.Logger {
	logger, err := New(debug)
	if err != nil {
		panic("failed to initialise logger: " + err.Error())
	}
	Logger = logger
	return logger
}

// New builds a logger without touching the process logger.
func New(debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	cfg.Encoding = "console"
	return cfg.Build()
}

// Sync flushes the process logger. Errors from syncing a terminal are
// expected and ignored.
func Sync() {
	_ = Logger.Sync()
}
