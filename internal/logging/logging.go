// Package logging configures the process-wide logrus logger and the
// adapters that route Fiber and GORM output through it.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm/logger"

	"github.com/localnerve/gamestore/internal/config"
)

// Setup applies level, format and output from cfg to the standard logrus logger.
// It returns the writer in use so callers can close a rotating file on exit.
func Setup(cfg *config.Config) io.Writer {
	var w io.Writer = os.Stderr
	if strings.TrimSpace(cfg.LogFile) != "" {
		w = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   cfg.LogCompress,
		}
	}
	log.SetOutput(w)
	log.SetLevel(ParseLevel(cfg.LogLevel))

	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}
	return w
}

// Close closes w when Setup opened a rotating file. Standard streams stay open.
func Close(w io.Writer) error {
	if lj, ok := w.(*lumberjack.Logger); ok {
		return lj.Close()
	}
	return nil
}

// ParseLevel maps debug|info|warn|error onto logrus levels, defaulting to info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	}
	return log.InfoLevel
}

// GormLogger returns a gorm logger that writes through logrus.
// Statements are only logged when logrus is at debug level.
func GormLogger() logger.Interface {
	level := logger.Warn
	if log.IsLevelEnabled(log.DebugLevel) {
		level = logger.Info
	}
	return logger.New(log.StandardLogger(), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
