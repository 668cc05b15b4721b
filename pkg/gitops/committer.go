// Package gitops records accepted refactoring tasks in the local git
// repository. Commits are best-effort: the executor logs failures and moves
// on, so nothing here may block task acceptance.
package gitops

import (
	"context"
	"fmt"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rs/zerolog"

	"github.com/refactord/refactord/internal/types"
)

// Config configures the committer
type Config struct {
	// RepoPath is the repository the task targets live in
	RepoPath string
	// AuthorName and AuthorEmail sign the generated commits
	AuthorName  string
	AuthorEmail string
}

// DefaultConfig returns the standard committer configuration
func DefaultConfig(repoPath string) Config {
	return Config{
		RepoPath:    repoPath,
		AuthorName:  "refactord",
		AuthorEmail: "refactord@localhost",
	}
}

// Committer stages and commits one accepted task's target
type Committer struct {
	config Config
	log    zerolog.Logger
}

// New creates a committer for the repository at config.RepoPath
func New(config Config, log zerolog.Logger) *Committer {
	return &Committer{
		config: config,
		log:    log.With().Str("component", "gitops").Logger(),
	}
}

// Commit stages the task's target file and commits it with a conventional
// refactor message. The context bounds the operation when the caller set a
// step timeout.
func (c *Committer) Commit(ctx context.Context, task types.RefactoringTask) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	repo, err := git.PlainOpen(c.config.RepoPath)
	if err != nil {
		return fmt.Errorf("failed to open repository %s: %w", c.config.RepoPath, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}

	if _, err := worktree.Add(task.Target); err != nil {
		return fmt.Errorf("failed to stage %s: %w", task.Target, err)
	}

	message := commitMessage(task)
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  c.config.AuthorName,
			Email: c.config.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to commit %s: %w", task.Target, err)
	}

	c.log.Info().
		Str("target", task.Target).
		Str("commit", hash.String()).
		Msg("task committed")
	return nil
}

// commitMessage renders a conventional commit subject for a task
func commitMessage(task types.RefactoringTask) string {
	return fmt.Sprintf("refactor(%s): %s\n\n%s\n", task.Type, task.Target, task.Description)
}
