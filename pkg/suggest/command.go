package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"

	"github.com/refactord/refactord/internal/types"
)

// CommandConfig configures the external suggestion command
type CommandConfig struct {
	// WorkDir is the directory the command runs in
	WorkDir string
	// Command is the suggestion invocation, argv style
	Command []string
}

// CommandProvider shells out for suggestions: the analysis result is written
// to the command's stdin as JSON and its stdout is parsed as a JSON array of
// refactoring tasks. Suggestions without a target are dropped.
type CommandProvider struct {
	config CommandConfig
	log    zerolog.Logger
}

// NewCommandProvider creates a command-backed provider
func NewCommandProvider(config CommandConfig, log zerolog.Logger) (*CommandProvider, error) {
	if len(config.Command) == 0 {
		return nil, fmt.Errorf("suggestion command is required")
	}
	return &CommandProvider{
		config: config,
		log:    log.With().Str("component", "suggest").Logger(),
	}, nil
}

// Suggest implements Provider
func (p *CommandProvider) Suggest(ctx context.Context, analysis *types.AnalysisResult) ([]types.RefactoringTask, error) {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.config.Command[0], p.config.Command[1:]...)
	cmd.Dir = p.config.WorkDir
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("suggestion command failed: %w: %s", err, stderr.String())
	}

	var proposed []types.RefactoringTask
	if err := json.Unmarshal(stdout.Bytes(), &proposed); err != nil {
		return nil, fmt.Errorf("failed to parse suggestion output: %w", err)
	}

	tasks := proposed[:0]
	for _, t := range proposed {
		if t.Target == "" {
			p.log.Debug().Str("description", t.Description).Msg("dropping suggestion without target")
			continue
		}
		tasks = append(tasks, t)
	}

	p.log.Debug().Int("suggestions", len(tasks)).Msg("external suggestions collected")
	return tasks, nil
}
