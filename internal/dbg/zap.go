package dbg

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a logger from the config file's logging section. Format
// "console" gets the development preset, anything else the production one.
// An empty or unparseable level keeps the preset's default.
func NewLogger(level, format string) *zap.Logger {
	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	if parsed, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(parsed)
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableCaller = true

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

// NewDevLogger is the bootstrap logger used before configuration is loaded.
func NewDevLogger() *zap.Logger {
	return NewLogger("debug", "console")
}

// NewProdLogger is the bootstrap logger for deployed binaries.
func NewProdLogger() *zap.Logger {
	return NewLogger("info", "json")
}
