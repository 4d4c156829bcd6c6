package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-chateval/infrastructure/middleware"
	"github.com/ahrav/go-chateval/infrastructure/persistence"
	"github.com/ahrav/go-chateval/internal/application"
)

type runFlags struct {
	configPath     string
	datasetPath    string
	outputDir      string
	outputFilename string
}

// buildRunCmd creates the "run" command.
func buildRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an evaluation and write the results CSV",
		Long: `Load the configuration, build the chatbot and scorers, evaluate every
record of the dataset and write the results.

results_directory and results_filename in the configuration take precedence
over --output-dir and --output-filename.`,
		Example: `  chateval run
  chateval run -c config_eval.yaml -d data/qa_pairs_dummy.csv
  chateval run -o results -f evaluation_results.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runEvaluate(ctx, cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", application.DefaultConfigPath, "Path to the configuration file")
	cmd.Flags().StringVarP(&flags.datasetPath, "dataset", "d", "", "Dataset path, overriding dataset_path")
	cmd.Flags().StringVarP(&flags.outputDir, "output-dir", "o", persistence.DefaultOutputDirectory, "Directory for the results CSV")
	cmd.Flags().StringVarP(&flags.outputFilename, "output-filename", "f", persistence.DefaultOutputFilename, "Filename of the results CSV")

	return cmd
}

func runEvaluate(ctx context.Context, cmd *cobra.Command, flags runFlags) error {
	cfg, err := application.LoadConfig(flags.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("dataset") {
		if err := cfg.Override("dataset_path", flags.datasetPath); err != nil {
			return err
		}
	}

	logger, closeLog, err := newLogger(cmd.ErrOrStderr(), cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer closeLog()
	logger.Info("config loaded", "path", flags.configPath)

	reg := prometheus.NewRegistry()
	metrics := middleware.NewPrometheusMetrics(reg)

	evaluator, err := application.NewEvaluator(ctx,
		application.WithConfig(cfg),
		application.WithCredentials(application.CredentialsFromEnv()),
		application.WithLogger(logger),
		application.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	results, err := evaluator.Run(ctx)
	if err != nil {
		return err
	}
	params := evaluator.Chatbot().GetParameters()

	path, err := persistence.WriteCSV(results, cfg.Raw, params, persistence.Options{
		OutputDirectory: flags.outputDir,
		OutputFilename:  flags.outputFilename,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	if cfg.ResultsStore != "" {
		if err := saveRun(ctx, cfg, params, results, logger); err != nil {
			return err
		}
	}

	if cfg.MetricsFile != "" {
		if err := middleware.WriteTextfile(cfg.MetricsFile, reg); err != nil {
			return err
		}
		logger.Info("metrics written", "path", cfg.MetricsFile)
	}

	summary, err := application.Summarize(results, cfg.PassExpression)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "results: %s\n", path)
	fmt.Fprint(out, summary.String())
	return nil
}
