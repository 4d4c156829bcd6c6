package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-chateval/internal/dataset"
	"github.com/ahrav/go-chateval/internal/domain"
)

// buildCheckCmd creates the "check" command.
func buildCheckCmd() *cobra.Command {
	var language string

	cmd := &cobra.Command{
		Use:   "check <dataset.csv>...",
		Short: "Validate datasets",
		Long: `Load each dataset with the same rules as an evaluation run and report its
type and size. The first invalid row fails the command.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := domain.ParseLanguage(language)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, path := range args {
				ds, err := dataset.Load(path)
				if err != nil {
					return err
				}
				refs := dataset.ReferenceAnswers(ds, lang)
				fmt.Fprintf(out, "%s: ok (type %s, %d records, %d reference answers)\n",
					path, ds.Type(), ds.Len(), len(refs))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&language, "language", string(domain.English), "Prompt language used to extract chat session questions")
	return cmd
}

// buildConvertCmd creates the "convert" command.
func buildConvertCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert a dataset between CSV and JSON lines",
		Long: `Convert a .csv file to .jsonl, or a .jsonl/.json file to .csv. Without
--output the result is written next to the input with the other extension.`,
		Example: `  chateval convert data/qa_pairs_dummy.csv
  chateval convert data/qa_pairs_dummy.jsonl -o /tmp/qa.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dst, err := dataset.ConvertFile(args[0], output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", dst)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file")
	return cmd
}

// buildGenerateCmd creates the "generate" command.
func buildGenerateCmd() *cobra.Command {
	var (
		count  int
		output string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a dummy chat session dataset",
		Long: `Write a chat session CSV of cooking conversations, one per day going back
from today. Useful for trying the pipeline without real data.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count <= 0 {
				return fmt.Errorf("--count must be positive, got %d", count)
			}
			rows := dataset.GenerateChatSessions(count, time.Now())
			if err := dataset.WriteChatSessions(output, rows); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d chat sessions to %s\n", len(rows), output)
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 5, "Number of chat sessions")
	cmd.Flags().StringVarP(&output, "output", "o", "./data/chat_history_dummy.csv", "Destination file")
	return cmd
}
