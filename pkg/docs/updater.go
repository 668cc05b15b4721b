// Package docs applies the documentation updates an analysis calls for.
// The built-in updater appends structured entries to a markdown changelog;
// richer regeneration belongs to external collaborators behind the same
// interface.
package docs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/refactord/refactord/internal/types"
)

// Updater applies the documentation updates carried by an analysis result
type Updater interface {
	Apply(ctx context.Context, analysis *types.AnalysisResult) error
}

// ChangelogConfig configures the markdown changelog updater
type ChangelogConfig struct {
	// ProjectRoot anchors the changelog path
	ProjectRoot string
	// Filename is the changelog file, relative to ProjectRoot
	Filename string
}

// DefaultChangelogConfig returns the standard changelog location
func DefaultChangelogConfig(root string) ChangelogConfig {
	return ChangelogConfig{
		ProjectRoot: root,
		Filename:    "docs/CHANGES.md",
	}
}

// ChangelogUpdater appends one dated section per applied analysis
type ChangelogUpdater struct {
	config ChangelogConfig
	log    zerolog.Logger
}

// NewChangelogUpdater creates the markdown changelog updater
func NewChangelogUpdater(config ChangelogConfig, log zerolog.Logger) *ChangelogUpdater {
	return &ChangelogUpdater{
		config: config,
		log:    log.With().Str("component", "docs").Logger(),
	}
}

// Apply implements Updater. An analysis with no documentation updates is a
// no-op; nothing is written and no file is created.
func (u *ChangelogUpdater) Apply(ctx context.Context, analysis *types.AnalysisResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(analysis.DocumentationUpdates) == 0 {
		return nil
	}

	path := filepath.Join(u.config.ProjectRoot, u.config.Filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create docs directory: %w", err)
	}

	var section strings.Builder
	fmt.Fprintf(&section, "## %s (impact: %s)\n\n", time.Now().Format("2006-01-02 15:04"), analysis.OverallImpact)
	for _, update := range analysis.DocumentationUpdates {
		fmt.Fprintf(&section, "- **%s** (%s): %s\n", update.Target, update.Section, update.Summary)
	}
	section.WriteString("\n")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open changelog: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(section.String()); err != nil {
		return fmt.Errorf("failed to append changelog: %w", err)
	}

	u.log.Info().
		Int("updates", len(analysis.DocumentationUpdates)).
		Str("path", path).
		Msg("documentation changelog updated")
	return nil
}
