package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/refactord/refactord/pkg/orchestrator"
)

// analyzeCmd runs a one-shot analysis pass
var analyzeCmd = &cobra.Command{
	Use:   "analyze [files...]",
	Short: "Run a one-shot analysis pass",
	Long: `Analyze the named files as if they had just changed, or every source
file in the project when none are named. Prints the events the pass
produced and exits; nothing is executed without approval unless
--no-approval is set.`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().Bool("no-approval", false, "execute the resulting plan immediately")
	analyzeCmd.Flags().Duration("timeout", 5*time.Minute, "overall pass timeout")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if noApproval, err := cmd.Flags().GetBool("no-approval"); err == nil && noApproval {
		cfg.Refactoring.RequireApproval = false
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		timeout = 5 * time.Minute
	}

	orch, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}

	events := orch.Events().Subscribe()

	if err := orch.Start(nil, nil); err != nil {
		return err
	}
	defer func() { _ = orch.Stop() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := orch.ForceAnalysis(ctx, args...); err != nil {
		return err
	}

	for {
		select {
		case event := <-events:
			fmt.Printf("[%s] %s\n", event.Timestamp.Format("15:04:05"), event.Type)
			if event.Type == orchestrator.EventProcessingComplete {
				printSummary(orch)
				return nil
			}
			if event.Type == orchestrator.EventProcessingError {
				return fmt.Errorf("analysis failed: %v", event.Data["error"])
			}
		case <-ctx.Done():
			return fmt.Errorf("analysis timed out after %s", timeout)
		}
	}
}

// printSummary reports what the pass left behind
func printSummary(orch *orchestrator.Orchestrator) {
	status := orch.GetStatus()
	fmt.Printf("\nProcessed %d change(s) across %d watched file(s)\n",
		status.ChangesProcessed, status.FilesWatched)

	pending := orch.GetApprovalQueue()
	if len(pending) == 0 {
		return
	}
	fmt.Printf("%d approval(s) pending:\n", len(pending))
	for _, approval := range pending {
		fmt.Printf("  %s  %s  (queued %s)\n",
			approval.ID, approval.Kind, approval.Timestamp.Format(time.RFC3339))
	}
}
