package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/finresearch/internal/model"
	"github.com/sells-group/finresearch/internal/report"
	"github.com/sells-group/finresearch/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored research as an Excel workbook or CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")
		companyName, _ := cmd.Flags().GetString("company")
		year, _ := cmd.Flags().GetInt("year")

		if format != "xlsx" && format != "csv" {
			return eris.Errorf("export: unknown format %q (want xlsx or csv)", format)
		}
		if out == "" {
			out = defaultExportPath(cfg.Report.Dir, format, time.Now())
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		recs, err := st.GetAll(ctx, store.Filter{Company: companyName, Year: year})
		if err != nil {
			return eris.Wrap(err, "export")
		}
		recs = successful(recs)
		if len(recs) == 0 {
			fmt.Fprintln(os.Stderr, "No research to export.")
			return nil
		}

		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return eris.Wrap(err, "export: create output dir")
		}
		switch format {
		case "xlsx":
			err = report.WriteXLSX(out, recs)
		case "csv":
			err = writeCSVFile(out, recs)
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Exported %d records to %s\n", len(recs), out)
		return nil
	},
}

func defaultExportPath(dir, format string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("financial_research_%s.%s", now.Format("20060102_150405"), format))
}

// successful drops records without data.
func successful(recs []model.ResearchRecord) []model.ResearchRecord {
	out := recs[:0:0]
	for _, r := range recs {
		if r.Status == model.StatusSuccess {
			out = append(out, r)
		}
	}
	return out
}

func writeCSVFile(path string, recs []model.ResearchRecord) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = eris.Wrap(cerr, "export: close csv")
		}
	}()
	return report.WriteCSV(f, recs)
}

func init() {
	exportCmd.Flags().String("format", "xlsx", "output format: xlsx or csv")
	exportCmd.Flags().String("out", "", "output path (default: <report.dir>/financial_research_<timestamp>.<format>)")
	exportCmd.Flags().String("company", "", "only export this company")
	exportCmd.Flags().Int("year", 0, "only export this fiscal year")
	rootCmd.AddCommand(exportCmd)
}
