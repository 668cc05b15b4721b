package gitops

import (
	"context"
	"fmt"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/rs/zerolog"
)

// Brancher switches the repository onto a fresh working branch when a
// breaking change calls for isolation. Branch names carry a timestamp so
// repeated breaking batches never collide.
type Brancher struct {
	config Config
	log    zerolog.Logger
}

// NewBrancher creates a brancher for the repository at config.RepoPath
func NewBrancher(config Config, log zerolog.Logger) *Brancher {
	return &Brancher{
		config: config,
		log:    log.With().Str("component", "gitops").Logger(),
	}
}

// CreateBranch creates a branch at HEAD and checks it out
func (b *Brancher) CreateBranch(ctx context.Context, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	repo, err := git.PlainOpen(b.config.RepoPath)
	if err != nil {
		return fmt.Errorf("failed to open repository %s: %w", b.config.RepoPath, err)
	}

	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	name := fmt.Sprintf("refactord/breaking-%s", time.Now().Format("20060102-150405"))
	branch := plumbing.NewBranchReferenceName(name)

	ref := plumbing.NewHashReference(branch, head.Hash())
	if err := repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("failed to create branch %s: %w", name, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Branch: branch}); err != nil {
		return fmt.Errorf("failed to check out %s: %w", name, err)
	}

	b.log.Info().Str("branch", name).Str("reason", reason).Msg("working branch created")
	return nil
}
