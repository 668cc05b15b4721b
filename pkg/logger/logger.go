// Package logger builds the process-wide zerolog logger: a human-readable
// console stream plus an optional size-rotated file sink.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger configuration
type Config struct {
	// Level is a zerolog level name: debug, info, warn, error
	Level string `yaml:"level"`
	// File enables the rotating file sink when non-empty
	File string `yaml:"file"`
	// MaxSizeMB caps a single log file before rotation
	MaxSizeMB int `yaml:"max_size_mb"`
	// MaxBackups caps the number of rotated files kept
	MaxBackups int `yaml:"max_backups"`
	// Console disables the stderr stream when false
	Console bool `yaml:"console"`
}

// DefaultConfig returns the standard logger configuration
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		MaxSizeMB:  10,
		MaxBackups: 3,
		Console:    true,
	}
}

// New builds a logger from the configuration. An unknown level name falls
// back to info rather than failing startup.
func New(config Config) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var sinks []io.Writer
	if config.Console {
		sinks = append(sinks, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
		})
	}

	if config.File != "" {
		if err := os.MkdirAll(filepath.Dir(config.File), 0o750); err != nil {
			return zerolog.Nop(), err
		}
		sinks = append(sinks, &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    config.MaxSizeMB,
			MaxBackups: config.MaxBackups,
		})
	}

	if len(sinks) == 0 {
		return zerolog.Nop().Level(level), nil
	}

	return zerolog.New(zerolog.MultiLevelWriter(sinks...)).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}
