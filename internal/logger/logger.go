package logger

import (
	"fmt"

	"github.com/laundry-marketplace/internal/config"
	"go.uber.org/zap"
)

// New builds the process logger. Development mode uses the console encoder.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level

	return zc.Build()
}
