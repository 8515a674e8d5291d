package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/finresearch/internal/model"
	"github.com/sells-group/finresearch/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize stored research",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sum, err := store.SummaryOf(ctx, st)
		if err != nil {
			return eris.Wrap(err, "stats")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(os.Stdout, sum)
		}
		formatSummary(os.Stdout, sum)
		return nil
	},
}

func formatSummary(w io.Writer, s store.Summary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Records:\t%d\n", s.TotalRecords)
	fmt.Fprintf(tw, "Companies:\t%d\n", s.UniqueCompanies)
	fmt.Fprintf(tw, "Periods:\t%d\n", s.UniquePeriods)
	fmt.Fprintf(tw, "Extractions:\t%d\n", s.TotalExtractions)
	fmt.Fprintf(tw, "Avg confidence:\t%.2f\n", s.AverageConfidence)
	tw.Flush() //nolint:errcheck

	if len(s.BySource) > 0 {
		fmt.Fprintln(w, "\nBy source:")
		sources := make([]string, 0, len(s.BySource))
		for src := range s.BySource {
			sources = append(sources, string(src))
		}
		sort.Strings(sources)
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, src := range sources {
			fmt.Fprintf(tw, "  %s\t%d\n", src, s.BySource[model.Source(src)])
		}
		tw.Flush() //nolint:errcheck
	}
	if len(s.Companies) > 0 {
		fmt.Fprintf(w, "\nCompanies: %s\n", strings.Join(s.Companies, ", "))
	}
	if len(s.Periods) > 0 {
		fmt.Fprintf(w, "Periods:   %s\n", strings.Join(s.Periods, ", "))
	}
}

func init() {
	statsCmd.Flags().Bool("json", false, "print as JSON")
	rootCmd.AddCommand(statsCmd)
}
