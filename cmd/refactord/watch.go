package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/refactord/refactord/pkg/orchestrator"
	"github.com/refactord/refactord/pkg/watcher"
)

// watchCmd runs the long-lived watch loop
var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch a project and refactor as it changes",
	Long: `Watch a project directory for source edits. Each debounced batch of
changes is analyzed, turned into a refactoring plan and, once approved,
executed under snapshot rollback with the test suite as the gate.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Bool("auto-update", false, "apply documentation updates without approval")
	watchCmd.Flags().Bool("no-approval", false, "execute refactoring plans without approval")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		cfg.ProjectPath = args[0]
	}
	if autoUpdate, err := cmd.Flags().GetBool("auto-update"); err == nil && autoUpdate {
		cfg.Refactoring.AutoUpdate = true
	}
	if noApproval, err := cmd.Flags().GetBool("no-approval"); err == nil && noApproval {
		cfg.Refactoring.RequireApproval = false
	}

	orch, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}

	w, err := watcher.New(watcher.Config{
		Root:     cfg.ProjectPath,
		Patterns: cfg.Watcher.Patterns,
		Ignored:  cfg.Watcher.Ignored,
		Debounce: cfg.Debounce(),
	}, nil, log)
	if err != nil {
		return err
	}

	events := orch.Events().Subscribe()
	go printEvents(events)

	if err := w.Start(); err != nil {
		return err
	}
	if err := orch.Start(w.Batches(), w.Errors()); err != nil {
		return err
	}

	fmt.Printf("Watching %s (Ctrl-C to stop)\n", cfg.ProjectPath)
	fmt.Println(`Commands: "list", "approve <id>", "reject <id>"`)
	go readCommands(orch)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals

	fmt.Println("\nShutting down...")
	if err := w.Stop(); err != nil {
		log.Warn().Err(err).Msg("watcher shutdown failed")
	}
	return orch.Stop()
}

// readCommands drives the approval queue from stdin while watching
func readCommands(orch *orchestrator.Orchestrator) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "list":
			pending := orch.GetApprovalQueue()
			if len(pending) == 0 {
				fmt.Println("no approvals pending")
				continue
			}
			for _, approval := range pending {
				fmt.Printf("  %s  %s\n", approval.ID, approval.Kind)
			}
		case "approve":
			if len(fields) != 2 {
				fmt.Println("usage: approve <id>")
				continue
			}
			if err := orch.ApproveUpdate(context.Background(), fields[1]); err != nil {
				fmt.Printf("approve failed: %v\n", err)
			}
		case "reject":
			if len(fields) != 2 {
				fmt.Println("usage: reject <id>")
				continue
			}
			if err := orch.RejectUpdate(fields[1]); err != nil {
				fmt.Printf("reject failed: %v\n", err)
			}
		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
}

// printEvents renders the orchestrator's event stream for the terminal
func printEvents(events chan orchestrator.Event) {
	for event := range events {
		switch event.Type {
		case orchestrator.EventApprovalRequired, orchestrator.EventRefactoringApprovalRequired:
			fmt.Printf("[%s] %s id=%v\n",
				event.Timestamp.Format("15:04:05"), event.Type, event.Data["id"])
		case orchestrator.EventProcessingError, orchestrator.EventValidationFailed:
			fmt.Printf("[%s] %s %v\n",
				event.Timestamp.Format("15:04:05"), event.Type, event.Data)
		default:
			fmt.Printf("[%s] %s\n", event.Timestamp.Format("15:04:05"), event.Type)
		}
	}
}
