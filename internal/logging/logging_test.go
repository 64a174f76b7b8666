package logging

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/localnerve/gamestore/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]log.Level{
		"debug":   log.DebugLevel,
		"WARN":    log.WarnLevel,
		"warning": log.WarnLevel,
		"error":   log.ErrorLevel,
		"info":    log.InfoLevel,
		"bogus":   log.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetupRotatingFile(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	defer log.SetLevel(log.InfoLevel)

	path := filepath.Join(t.TempDir(), "gamestore.log")
	w := Setup(&config.Config{LogFile: path, LogLevel: "debug", LogFormat: "json", LogMaxSizeMB: 1})

	lj, ok := w.(*lumberjack.Logger)
	if !ok {
		t.Fatalf("Expected a lumberjack writer, got %T", w)
	}
	defer Close(lj)

	log.WithField("component", "test").Info("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("Expected log output in the rotated file")
	}
	if !log.IsLevelEnabled(log.DebugLevel) {
		t.Error("Expected debug level to be enabled")
	}
	if GormLogger() == nil {
		t.Error("Expected a gorm logger")
	}
}

func TestCloseLeavesStandardStreamsOpen(t *testing.T) {
	if err := Close(os.Stderr); err != nil {
		t.Fatalf("Close(stderr) = %v", err)
	}
	if _, err := os.Stderr.Stat(); err != nil {
		t.Errorf("Expected stderr to stay open, got %v", err)
	}
}
