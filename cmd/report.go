package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/brandtrack-cli/internal/report"
)

var (
	reportFormat string
	reportOut    string
)

var reportCmd = &cobra.Command{
	Use:   "report <run-id>",
	Short: "Render the report for a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "report")
		}

		out := os.Stdout
		if reportOut != "" {
			f, err := os.Create(reportOut)
			if err != nil {
				return eris.Wrap(err, "create report output")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		switch reportFormat {
		case "text":
			_, err = fmt.Fprint(out, report.FormatText(run))
			return err
		case "jsonl":
			return report.WriteJSONL(out, run)
		default:
			return eris.Errorf("unknown report format %q (want text or jsonl)", reportFormat)
		}
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "text", "output format: text or jsonl")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "write to file instead of stdout")
	rootCmd.AddCommand(reportCmd)
}
