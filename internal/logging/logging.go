// Package logging builds the process zap logger.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the encoder preset and minimum level.
type Config struct {
	// Env is "production" for JSON output; anything else uses the
	// development console encoder.
	Env string
	// Level is a zap level name; empty picks info in production and debug
	// otherwise.
	Level string
}

// IsProduction reports whether the production preset applies.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// New builds a logger for cfg.
func New(cfg Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	if cfg.Level != "" {
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
