package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/brandtrack-cli/internal/config"
	"github.com/sells-group/brandtrack-cli/internal/extract"
	"github.com/sells-group/brandtrack-cli/internal/report"
	"github.com/sells-group/brandtrack-cli/internal/run"
)

var (
	trackJobPath string
	trackJSONL   string
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Run a tracking job",
	Long:  "Loads a job file, queries the configured AI platforms, extracts brand mentions, and prints the visibility report.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		job, err := config.LoadJob(trackJobPath)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		completer, err := extract.NewCompleter(cfg.Extraction.Provider, extractionKey(), extractionModel())
		if err != nil {
			return err
		}

		runner := run.New(cfg, st, run.ChromedpFactory(cfg.Browser), completer)
		result, err := runner.Execute(ctx, *job)
		if err != nil {
			return eris.Wrap(err, "tracking run")
		}

		if trackJSONL != "" {
			f, err := os.Create(trackJSONL)
			if err != nil {
				return eris.Wrap(err, "create jsonl output")
			}
			defer f.Close() //nolint:errcheck
			if err := report.WriteJSONL(f, result); err != nil {
				return err
			}
			zap.L().Info("wrote jsonl report", zap.String("path", trackJSONL))
		}

		fmt.Print(report.FormatText(result))
		return nil
	},
}

func extractionKey() string {
	if cfg.Extraction.Provider == extract.ProviderOpenAI {
		return cfg.OpenAI.Key
	}
	return cfg.Anthropic.Key
}

func extractionModel() string {
	if cfg.Extraction.Provider == extract.ProviderOpenAI {
		return cfg.OpenAI.Model
	}
	return cfg.Anthropic.Model
}

func init() {
	trackCmd.Flags().StringVar(&trackJobPath, "job", "", "path to the job YAML file (required)")
	trackCmd.Flags().StringVar(&trackJSONL, "jsonl", "", "also write the JSONL report to this path")
	_ = trackCmd.MarkFlagRequired("job")
	rootCmd.AddCommand(trackCmd)
}
