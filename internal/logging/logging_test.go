package logging

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lng-monitor/relay/internal/config"
)

func TestSetupWithoutFile(t *testing.T) {
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	closer := Setup(config.LogConfig{})
	if err := closer.Close(); err != nil {
		t.Errorf("Expected nil error from Close, got %v", err)
	}

	if log.Flags() != Flags {
		t.Errorf("Expected flags %d, got %d", Flags, log.Flags())
	}
}

func TestSetupWritesRotatingFile(t *testing.T) {
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	path := filepath.Join(t.TempDir(), "relay.log")
	closer := Setup(config.LogConfig{File: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})

	log.Printf("relay started on %s", ":8080")

	if err := closer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	if !strings.Contains(string(data), "relay started on :8080") {
		t.Errorf("Expected log line in file, got %q", data)
	}

	if !strings.Contains(string(data), "logging_test.go") {
		t.Errorf("Expected short file name in log line, got %q", data)
	}
}
