package main

import (
	"fmt"

	"github.com/refactord/refactord/pkg/analysis"
	"github.com/refactord/refactord/pkg/config"
	"github.com/refactord/refactord/pkg/docs"
	"github.com/refactord/refactord/pkg/gitops"
	"github.com/refactord/refactord/pkg/notify"
	"github.com/refactord/refactord/pkg/orchestrator"
	"github.com/refactord/refactord/pkg/refactor"
	"github.com/refactord/refactord/pkg/suggest"
	"github.com/refactord/refactord/pkg/testrunner"
)

// buildOrchestrator assembles the full pipeline from the loaded configuration
func buildOrchestrator(cfg *config.Config) (*orchestrator.Orchestrator, error) {
	analyzer := analysis.NewStaticAnalyzer(analysis.DefaultStaticConfig(cfg.ProjectPath), log)

	runner, err := testrunner.New(testrunner.Config{
		WorkDir: cfg.ProjectPath,
		Command: cfg.Tests.Command,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build test runner: %w", err)
	}

	var committer refactor.Committer
	var branches orchestrator.BranchCreator
	if cfg.Git.Enabled {
		gitConfig := gitops.Config{
			RepoPath:    cfg.ProjectPath,
			AuthorName:  cfg.Git.AuthorName,
			AuthorEmail: cfg.Git.AuthorEmail,
		}
		committer = gitops.New(gitConfig, log)
		branches = gitops.NewBrancher(gitConfig, log)
	}

	executor := refactor.NewExecutor(refactor.ExecutorConfig{
		ProjectRoot: cfg.ProjectPath,
		StepTimeout: cfg.StepTimeout(),
	}, nil, runner, committer, log)
	engine := refactor.NewEngine(executor, log)

	var suggestions suggest.Provider
	if len(cfg.Suggestions.Command) > 0 {
		suggestions, err = suggest.NewCommandProvider(suggest.CommandConfig{
			WorkDir: cfg.ProjectPath,
			Command: cfg.Suggestions.Command,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to build suggestion provider: %w", err)
		}
	}

	var notifier notify.Notifier
	if cfg.Notifications.Desktop {
		notifier = notify.NewDesktopNotifier(log)
	} else {
		notifier = notify.NewLogNotifier(log)
	}

	orchConfig := orchestrator.Config{
		ProjectPath:      cfg.ProjectPath,
		AutoUpdate:       cfg.Refactoring.AutoUpdate,
		RequireApproval:  cfg.Refactoring.RequireApproval,
		WatchPatterns:    cfg.Watcher.Patterns,
		IgnoredPaths:     cfg.Watcher.Ignored,
		DebounceMs:       cfg.Watcher.DebounceMs,
		StepTimeout:      cfg.StepTimeout(),
		ProgressInterval: cfg.ProgressInterval(),
	}

	return orchestrator.New(orchConfig, orchestrator.Deps{
		Analyzer:    analyzer,
		Sources:     analyzer,
		Engine:      engine,
		Docs:        docs.NewChangelogUpdater(docs.DefaultChangelogConfig(cfg.ProjectPath), log),
		Suggestions: suggestions,
		Notifier:    notifier,
		Branches:    branches,
	}, log)
}
