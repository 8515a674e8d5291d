package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/finresearch/internal/company"
	"github.com/sells-group/finresearch/internal/model"
	"github.com/sells-group/finresearch/internal/research"
	"github.com/sells-group/finresearch/internal/resilience"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Research many companies across quarters",
	Long:  "Researches every company x quarter combination. A failing item is reported and never stops the batch.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		companies, _ := cmd.Flags().GetStringSlice("companies")
		quarterFlags, _ := cmd.Flags().GetStringSlice("quarters")
		year, _ := cmd.Flags().GetInt("year")
		parallel, _ := cmd.Flags().GetBool("parallel")
		workers, _ := cmd.Flags().GetInt("workers")
		showProgress, _ := cmd.Flags().GetBool("progress")

		if len(companies) == 0 {
			companies = company.DefaultTargets()
		}
		quarters, err := parseQuarters(quarterFlags)
		if err != nil {
			return err
		}
		if len(quarters) == 0 {
			if quarters, err = cfg.Research.QuarterList(); err != nil {
				return err
			}
		}
		if year == 0 {
			year = cfg.Research.Year
		}
		if !cmd.Flags().Changed("parallel") {
			parallel = cfg.Research.Parallel
		}
		if workers == 0 {
			workers = cfg.Research.MaxWorkers
		}

		env, err := initEnv(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		tr := research.NewTracker()
		req := research.BatchRequest{
			Companies:  canonicalNames(env.Registry, companies),
			Quarters:   quarters,
			Year:       year,
			Parallel:   parallel,
			MaxWorkers: workers,
			Tracker:    tr,
			OnProgress: func(s research.ProgressSummary) {
				zap.L().Info("batch progress",
					zap.Float64("percent", s.Percent),
					zap.Int("completed", s.Completed),
					zap.Int("failed", s.Failed),
					zap.Int("total", s.Total),
				)
				if showProgress {
					_ = tr.PrintProgress(os.Stderr)
				}
			},
		}

		res, err := env.Orchestrator.ResearchMany(ctx, req)
		if err != nil {
			return err
		}

		if err := tr.PrintProgress(os.Stdout); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout)
		formatOutcomes(os.Stdout, res)

		zap.L().Info("batch complete",
			zap.String("batch_id", res.ID),
			zap.Int("succeeded", res.Succeeded()),
			zap.Int("items", len(res.Outcomes)),
			zap.Int("failures", len(res.Failures)),
		)
		return nil
	},
}

func parseQuarters(raw []string) ([]model.Quarter, error) {
	out := make([]model.Quarter, 0, len(raw))
	for _, s := range raw {
		q, err := model.ParseQuarter(s)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// canonicalNames maps registry aliases ("tcs") to their listed names.
// Unknown names pass through unchanged.
func canonicalNames(reg *company.Registry, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n
		if c, ok := reg.Lookup(n); ok {
			out[i] = c.Name
		}
	}
	return out
}

// formatOutcomes writes one row per company-quarter.
func formatOutcomes(w io.Writer, res *research.BatchResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPANY\tQUARTER\tYEAR\tSTATUS\tSOURCE\tVALID\tERROR")
	for _, o := range res.Outcomes {
		src, valid := "-", "-"
		if o.Record != nil {
			src = string(o.Record.Source)
			if o.Record.Derived != nil && o.Record.Derived.ValidationStatus != "" {
				valid = o.Record.Derived.ValidationStatus
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			o.Period.Company,
			o.Period.Quarter,
			o.Period.Year,
			o.Status,
			src,
			valid,
			truncate(o.Error, 60),
		)
	}
	tw.Flush() //nolint:errcheck
	fmt.Fprintf(w, "\n%d/%d succeeded, %d failed (%d retryable)\n",
		res.Succeeded(), len(res.Outcomes), len(res.Failures), len(resilience.RetryPeriods(res.Failures)))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	batchCmd.Flags().StringSlice("companies", nil, "companies to research (default: all default targets)")
	batchCmd.Flags().StringSlice("quarters", nil, "quarters, e.g. Q1,Q2 (default from config)")
	batchCmd.Flags().Int("year", 0, "fiscal year (default from config)")
	batchCmd.Flags().Bool("parallel", false, "research companies concurrently")
	batchCmd.Flags().Int("workers", 0, "max concurrent companies in parallel mode (default from config)")
	batchCmd.Flags().Bool("progress", false, "print the progress bar after every item")
	rootCmd.AddCommand(batchCmd)
}
