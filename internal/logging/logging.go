// Package logging builds the zap logger used by the rtti tool
package logging

import (
	"fmt"

	"github.com/conduit-lang/rtti/internal/cli/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger from the log configuration. If the logger cannot be
// built it falls back to a no-op logger and returns the error.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return zap.NewNop(), fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	// CLI output goes to stdout; logs stay on stderr
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return zap.NewNop(), fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
