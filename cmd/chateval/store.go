package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-chateval/infrastructure/persistence"
	"github.com/ahrav/go-chateval/internal/application"
	"github.com/ahrav/go-chateval/internal/domain"
)

// saveRun appends the run to the SQLite results store.
func saveRun(ctx context.Context, cfg *application.Config, params map[string]any, results []domain.EvaluationResult, logger *slog.Logger) error {
	store, err := persistence.OpenStore(ctx, cfg.ResultsStore)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.SaveRun(ctx, &persistence.Run{
		DatasetPath: cfg.DatasetPath,
		Config:      cfg.Raw,
		Params:      params,
		Results:     results,
	})
	if err != nil {
		return err
	}
	logger.Info("run stored", "store", cfg.ResultsStore, "run_id", id)
	return nil
}

// buildRunsCmd creates the "runs" command.
func buildRunsCmd() *cobra.Command {
	var passExpr string

	cmd := &cobra.Command{
		Use:   "runs <store.db> [run-id]",
		Short: "List stored runs or summarize one",
		Long: `Without a run ID, print the IDs in a results store, newest first. With a
run ID, print the summary of that run's stored results.`,
		Example: `  chateval runs results/runs.db
  chateval runs results/runs.db 6f1c... --pass "fuzzy_levenshtein >= 0.5"`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := os.Stat(args[0]); err != nil {
				return domain.NewNotFoundError(args[0], err)
			}
			store, err := persistence.OpenStore(ctx, args[0])
			if err != nil {
				return err
			}
			defer store.Close()

			ids, err := store.RunIDs(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				for _, id := range ids {
					fmt.Fprintln(out, id)
				}
				return nil
			}
			if !slices.Contains(ids, args[1]) {
				return fmt.Errorf("run %s: %w", args[1], domain.ErrNotFound)
			}

			results, err := store.Results(ctx, args[1])
			if err != nil {
				return err
			}
			summary, err := application.Summarize(results, passExpr)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "run: %s\n", args[1])
			fmt.Fprint(out, summary.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&passExpr, "pass", "", "Pass expression to count passing records")
	return cmd
}
