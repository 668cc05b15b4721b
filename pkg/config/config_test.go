package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	require.NoError(t, config.Validate())
	assert.Equal(t, ".", config.ProjectPath)
	assert.True(t, config.Refactoring.RequireApproval)
	assert.False(t, config.Refactoring.AutoUpdate)
	assert.Equal(t, 500, config.Watcher.DebounceMs)
	assert.Equal(t, []string{"npm", "test"}, config.Tests.Command)
	assert.False(t, config.Git.Enabled)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "empty project path",
			mutate:  func(c *Config) { c.ProjectPath = "" },
			wantErr: "project_path",
		},
		{
			name:    "no watch patterns",
			mutate:  func(c *Config) { c.Watcher.Patterns = nil },
			wantErr: "watcher.patterns",
		},
		{
			name:    "negative debounce",
			mutate:  func(c *Config) { c.Watcher.DebounceMs = -1 },
			wantErr: "debounce_ms",
		},
		{
			name:    "negative step timeout",
			mutate:  func(c *Config) { c.Refactoring.StepTimeoutSec = -5 },
			wantErr: "step_timeout_sec",
		},
		{
			name:    "zero progress interval",
			mutate:  func(c *Config) { c.Refactoring.ProgressIntervalSec = 0 },
			wantErr: "progress_interval_sec",
		},
		{
			name:    "empty test command",
			mutate:  func(c *Config) { c.Tests.Command = nil },
			wantErr: "tests.command",
		},
		{
			name: "git enabled without author",
			mutate: func(c *Config) {
				c.Git.Enabled = true
				c.Git.AuthorName = ""
			},
			wantErr: "git.author_name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)

			err := config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ApplyEnvironmentOverrides(t *testing.T) {
	t.Setenv("REFACTORD_PROJECT_PATH", "/srv/app")
	t.Setenv("REFACTORD_AUTO_UPDATE", "true")
	t.Setenv("REFACTORD_REQUIRE_APPROVAL", "false")
	t.Setenv("REFACTORD_DEBOUNCE_MS", "250")
	t.Setenv("REFACTORD_STEP_TIMEOUT_SEC", "30")
	t.Setenv("REFACTORD_TEST_COMMAND", "yarn test --silent")
	t.Setenv("REFACTORD_LOG_LEVEL", "debug")
	t.Setenv("REFACTORD_SUGGEST_COMMAND", "refactor-advisor --json")

	config := DefaultConfig()
	config.ApplyEnvironmentOverrides()

	assert.Equal(t, "/srv/app", config.ProjectPath)
	assert.True(t, config.Refactoring.AutoUpdate)
	assert.False(t, config.Refactoring.RequireApproval)
	assert.Equal(t, 250, config.Watcher.DebounceMs)
	assert.Equal(t, 30, config.Refactoring.StepTimeoutSec)
	assert.Equal(t, []string{"yarn", "test", "--silent"}, config.Tests.Command)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, []string{"refactor-advisor", "--json"}, config.Suggestions.Command)
}

func TestConfig_ApplyEnvironmentOverrides_IgnoresUnparseable(t *testing.T) {
	t.Setenv("REFACTORD_AUTO_UPDATE", "definitely")
	t.Setenv("REFACTORD_DEBOUNCE_MS", "soon")

	config := DefaultConfig()
	config.ApplyEnvironmentOverrides()

	assert.False(t, config.Refactoring.AutoUpdate)
	assert.Equal(t, 500, config.Watcher.DebounceMs)
}

func TestConfig_DurationHelpers(t *testing.T) {
	config := DefaultConfig()
	config.Watcher.DebounceMs = 250
	config.Refactoring.StepTimeoutSec = 30
	config.Refactoring.ProgressIntervalSec = 5

	assert.Equal(t, 250*time.Millisecond, config.Debounce())
	assert.Equal(t, 30*time.Second, config.StepTimeout())
	assert.Equal(t, 5*time.Second, config.ProgressInterval())
}
