// Package main provides the chateval CLI, which evaluates a chatbot's answers
// against a reference dataset.
//
// # Basic Usage
//
// Run an evaluation with the default configuration file:
//
//	chateval run
//	chateval run -c config_eval.yaml -d data/chat_history_dummy.csv -o results -f run1.csv
//
// Validate a dataset, convert it, or create a dummy chat dataset:
//
//	chateval check data/chat_history_dummy.csv
//	chateval convert data/qa_pairs_dummy.csv
//	chateval generate -n 5 -o data/chat_history_dummy.csv
//
// # Environment Variables
//
//   - CHATBOT_API_TOKEN: token sent to the remote chatbot
//   - CHATBOT_API_URL: remote chatbot host when api.url is unset
//   - OPENAI_API_KEY, ANTHROPIC_API_KEY, GOOGLE_API_KEY: judge and embedding providers
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chateval",
		Short: "Evaluate chatbot answers against a reference dataset",
		Long: `chateval sends every question of a dataset to a chatbot, scores the answer
against the reference answer with the configured scorers and writes one CSV
row per question.

Datasets are either question/answer pairs or multi-turn chat sessions.`,
		Version:      fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildRunCmd(),
		buildCheckCmd(),
		buildConvertCmd(),
		buildGenerateCmd(),
		buildRunsCmd(),
	)
	return rootCmd
}
