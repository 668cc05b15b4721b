package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LevelParsing(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  zerolog.Level
	}{
		{name: "debug", level: "debug", want: zerolog.DebugLevel},
		{name: "warn", level: "warn", want: zerolog.WarnLevel},
		{name: "unknown falls back to info", level: "verbose", want: zerolog.InfoLevel},
		{name: "empty falls back to info", level: "", want: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			config.Level = tt.level

			log, err := New(config)
			require.NoError(t, err)
			assert.Equal(t, tt.want, log.GetLevel())
		})
	}
}

func TestNew_FileSink(t *testing.T) {
	dir := t.TempDir()
	config := DefaultConfig()
	config.Console = false
	config.File = filepath.Join(dir, "logs", "refactord.log")

	log, err := New(config)
	require.NoError(t, err)

	log.Info().Str("component", "test").Msg("file sink check")

	data, err := os.ReadFile(config.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "file sink check")
}

func TestNew_NoSinks(t *testing.T) {
	config := Config{Level: "info"}

	log, err := New(config)
	require.NoError(t, err)

	// Safe to use even with nothing to write to
	log.Info().Msg("discarded")
}
