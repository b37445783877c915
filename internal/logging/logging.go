package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"product-detector/internal/config"
)

// New builds the application logger.
// LOG_LEVEL in the environment wins over the configured level.
func New(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	}

	logger.SetLevel(resolveLevel(cfg.Level))

	if cfg.File != "" {
		logger.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename: cfg.File,
			MaxSize:  cfg.MaxSizeMB,
			MaxAge:   cfg.MaxAgeDays,
			Compress: true,
		}))
	}

	return logger
}

// SetVerbose lowers the level to debug unless LOG_LEVEL pins it
func SetVerbose(logger *logrus.Logger) {
	if os.Getenv("LOG_LEVEL") == "" {
		logger.SetLevel(logrus.DebugLevel)
	}
}

func resolveLevel(configured string) logrus.Level {
	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if level, err := logrus.ParseLevel(levelStr); err == nil {
			return level
		}
	}
	if level, err := logrus.ParseLevel(strings.TrimSpace(configured)); err == nil {
		return level
	}
	return logrus.InfoLevel
}
