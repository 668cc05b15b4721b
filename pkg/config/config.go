// Package config holds the file-backed configuration for refactord:
// defaults, YAML loading, environment overrides and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/refactord/refactord/pkg/logger"
)

// WatcherConfig configures the filesystem watcher
type WatcherConfig struct {
	// Patterns are doublestar globs for files worth reacting to
	Patterns []string `yaml:"patterns"`
	// Ignored are doublestar globs excluded from watching
	Ignored []string `yaml:"ignored"`
	// DebounceMs is the quiet window before a change batch is emitted
	DebounceMs int `yaml:"debounce_ms"`
}

// RefactoringConfig configures planning and execution
type RefactoringConfig struct {
	// AutoUpdate applies documentation updates without approval
	AutoUpdate bool `yaml:"auto_update"`
	// RequireApproval gates refactoring plans behind the approval queue
	RequireApproval bool `yaml:"require_approval"`
	// StepTimeoutSec bounds analyzer, test and commit calls; zero means none
	StepTimeoutSec int `yaml:"step_timeout_sec"`
	// ProgressIntervalSec spaces refactoring progress events
	ProgressIntervalSec int `yaml:"progress_interval_sec"`
}

// TestConfig configures the gating test run
type TestConfig struct {
	// Command is the test invocation, argv style
	Command []string `yaml:"command"`
}

// GitConfig configures per-task commits
type GitConfig struct {
	// Enabled turns commit-per-task on
	Enabled bool `yaml:"enabled"`
	// AuthorName and AuthorEmail identify the committer
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// SuggestionConfig configures the optional external suggestion command.
// An empty command disables suggestions entirely.
type SuggestionConfig struct {
	// Command is the suggestion invocation, argv style; it receives the
	// analysis result as JSON on stdin and must print a JSON task array
	Command []string `yaml:"command"`
}

// NotificationConfig configures developer notifications
type NotificationConfig struct {
	// Desktop routes notifications to the OS service instead of the log
	Desktop bool `yaml:"desktop"`
}

// Config is the complete refactord configuration
type Config struct {
	// ProjectPath is the root of the project under management
	ProjectPath string `yaml:"project_path"`

	Watcher       WatcherConfig      `yaml:"watcher"`
	Refactoring   RefactoringConfig  `yaml:"refactoring"`
	Tests         TestConfig         `yaml:"tests"`
	Git           GitConfig          `yaml:"git"`
	Suggestions   SuggestionConfig   `yaml:"suggestions"`
	Logging       logger.Config      `yaml:"logging"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// DefaultConfig returns the standard configuration
func DefaultConfig() *Config {
	return &Config{
		ProjectPath: ".",
		Watcher: WatcherConfig{
			Patterns:   []string{"**/*.js", "**/*.jsx", "**/*.ts", "**/*.tsx"},
			Ignored:    []string{"**/node_modules/**", "**/.git/**", "**/dist/**"},
			DebounceMs: 500,
		},
		Refactoring: RefactoringConfig{
			AutoUpdate:          false,
			RequireApproval:     true,
			ProgressIntervalSec: 2,
		},
		Tests: TestConfig{
			Command: []string{"npm", "test"},
		},
		Git: GitConfig{
			Enabled:     false,
			AuthorName:  "refactord",
			AuthorEmail: "refactord@localhost",
		},
		Logging:       logger.DefaultConfig(),
		Notifications: NotificationConfig{Desktop: false},
	}
}

// ApplyEnvironmentOverrides applies REFACTORD_* environment variables on top
// of the loaded configuration
func (c *Config) ApplyEnvironmentOverrides() {
	if v := os.Getenv("REFACTORD_PROJECT_PATH"); v != "" {
		c.ProjectPath = v
	}
	if v := os.Getenv("REFACTORD_AUTO_UPDATE"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			c.Refactoring.AutoUpdate = parsed
		}
	}
	if v := os.Getenv("REFACTORD_REQUIRE_APPROVAL"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			c.Refactoring.RequireApproval = parsed
		}
	}
	if v := os.Getenv("REFACTORD_DEBOUNCE_MS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			c.Watcher.DebounceMs = parsed
		}
	}
	if v := os.Getenv("REFACTORD_STEP_TIMEOUT_SEC"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			c.Refactoring.StepTimeoutSec = parsed
		}
	}
	if v := os.Getenv("REFACTORD_TEST_COMMAND"); v != "" {
		c.Tests.Command = strings.Fields(v)
	}
	if v := os.Getenv("REFACTORD_SUGGEST_COMMAND"); v != "" {
		c.Suggestions.Command = strings.Fields(v)
	}
	if v := os.Getenv("REFACTORD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("REFACTORD_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("REFACTORD_GIT_ENABLED"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			c.Git.Enabled = parsed
		}
	}
}

// Validate checks the configuration for values that cannot work
func (c *Config) Validate() error {
	if c.ProjectPath == "" {
		return fmt.Errorf("project_path must not be empty")
	}
	if len(c.Watcher.Patterns) == 0 {
		return fmt.Errorf("watcher.patterns must list at least one glob")
	}
	if c.Watcher.DebounceMs < 0 {
		return fmt.Errorf("watcher.debounce_ms must not be negative: %d", c.Watcher.DebounceMs)
	}
	if c.Refactoring.StepTimeoutSec < 0 {
		return fmt.Errorf("refactoring.step_timeout_sec must not be negative: %d", c.Refactoring.StepTimeoutSec)
	}
	if c.Refactoring.ProgressIntervalSec <= 0 {
		return fmt.Errorf("refactoring.progress_interval_sec must be positive: %d", c.Refactoring.ProgressIntervalSec)
	}
	if len(c.Tests.Command) == 0 {
		return fmt.Errorf("tests.command must not be empty")
	}
	if c.Git.Enabled && c.Git.AuthorName == "" {
		return fmt.Errorf("git.author_name is required when git is enabled")
	}
	return nil
}

// StepTimeout returns the configured step timeout as a duration
func (c *Config) StepTimeout() time.Duration {
	return time.Duration(c.Refactoring.StepTimeoutSec) * time.Second
}

// ProgressInterval returns the configured progress spacing as a duration
func (c *Config) ProgressInterval() time.Duration {
	return time.Duration(c.Refactoring.ProgressIntervalSec) * time.Second
}

// Debounce returns the configured debounce window as a duration
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watcher.DebounceMs) * time.Millisecond
}

// GetConfigPaths returns the locations searched for a configuration file,
// in priority order
func GetConfigPaths() []string {
	paths := []string{
		".refactord.yaml",
		".refactord.yml",
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(homeDir, ".config", "refactord", "config.yaml"),
			filepath.Join(homeDir, ".refactord.yaml"),
		)
	}
	return paths
}
