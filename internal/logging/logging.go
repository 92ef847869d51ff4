// Package logging собирает zap логгер из секции logger конфига.
package logging

import (
	"fmt"

	"github.com/untibullet/scouting-reports/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Форматы вывода логов
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// New создает логгер: json для продакшена, console с цветными уровнями для разработки
func New(cfg config.LoggerConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zapConfig zap.Config
	switch cfg.Format {
	case FormatJSON:
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.TimeKey = "ts"
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case FormatConsole:
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q, expected %s or %s", cfg.Format, FormatJSON, FormatConsole)
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger.With(zap.String("service", "scouting-reports")), nil
}
