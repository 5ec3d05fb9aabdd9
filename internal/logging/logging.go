// Package logging configures the standard logger for the relay.
package logging

import (
	"io"
	"log"
	"os"

	"github.com/natefinch/lumberjack"

	"github.com/lng-monitor/relay/internal/config"
)

// Flags are the standard logger flags used by every relay binary.
const Flags = log.LstdFlags | log.Lshortfile

// Setup points the standard logger at stderr and, when cfg.File is set, also
// at a size-rotated file. The returned closer releases the file.
func Setup(cfg config.LogConfig) io.Closer {
	log.SetFlags(Flags)

	if cfg.File == "" {
		log.SetOutput(os.Stderr)
		return nopCloser{}
	}

	rotating := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotating))
	return rotating
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
