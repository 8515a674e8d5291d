package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	json "github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/finresearch/internal/model"
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Research one company-quarter",
	Long:  "Fetches, validates, derives and stores the quarterly results of a single company. A stored record is returned without querying any source.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		name, _ := cmd.Flags().GetString("company")
		qs, _ := cmd.Flags().GetString("quarter")
		year, _ := cmd.Flags().GetInt("year")

		q, err := model.ParseQuarter(qs)
		if err != nil {
			return err
		}
		if year == 0 {
			year = cfg.Research.Year
		}

		env, err := initEnv(ctx, "research")
		if err != nil {
			return err
		}
		defer env.Close()

		p := model.Period{Company: name, Quarter: q, Year: year}
		if c, ok := env.Registry.Lookup(name); ok {
			p.Company = c.Name
		}

		rec, err := env.Orchestrator.ResearchOne(ctx, p)
		if err != nil {
			return eris.Wrapf(err, "research %s", p)
		}
		return writeJSON(os.Stdout, rec)
	},
}

// writeJSON pretty-prints v to w.
func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "encode json")
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func init() {
	researchCmd.Flags().String("company", "", "company name, e.g. TCS")
	researchCmd.Flags().String("quarter", "", "quarter: Q1..Q4")
	researchCmd.Flags().Int("year", 0, "fiscal year (default from config)")
	_ = researchCmd.MarkFlagRequired("company")
	_ = researchCmd.MarkFlagRequired("quarter")
	rootCmd.AddCommand(researchCmd)
}
