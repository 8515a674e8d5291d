package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/finresearch/internal/model"
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a stored company-quarter so it is researched again",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

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

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p := model.Period{Company: name, Quarter: q, Year: year}
		found, err := st.Delete(ctx, p)
		if err != nil {
			return eris.Wrapf(err, "delete %s", p)
		}
		if !found {
			fmt.Fprintf(os.Stderr, "No stored research for %s.\n", p)
			return nil
		}
		fmt.Fprintf(os.Stdout, "Deleted %s.\n", p)
		return nil
	},
}

func init() {
	deleteCmd.Flags().String("company", "", "company name")
	deleteCmd.Flags().String("quarter", "", "quarter: Q1..Q4")
	deleteCmd.Flags().Int("year", 0, "fiscal year (default from config)")
	_ = deleteCmd.MarkFlagRequired("company")
	_ = deleteCmd.MarkFlagRequired("quarter")
	rootCmd.AddCommand(deleteCmd)
}
