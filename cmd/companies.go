package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/gosimple/slug"
	"github.com/spf13/cobra"

	"github.com/sells-group/finresearch/internal/company"
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "Manage the company registry",
}

var companiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known companies",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := company.NewRegistry(cfg.Companies.CustomFile)
		if err != nil {
			return err
		}
		formatCompanies(os.Stdout, reg.All())
		return nil
	},
}

var companiesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a custom company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, _ := cmd.Flags().GetString("code")
		s, _ := cmd.Flags().GetString("slug")
		sector, _ := cmd.Flags().GetString("sector")
		fullName, _ := cmd.Flags().GetString("full-name")

		reg, err := company.NewRegistry(cfg.Companies.CustomFile)
		if err != nil {
			return err
		}

		c := company.Company{
			Name:     args[0],
			Slug:     s,
			Code:     code,
			Sector:   sector,
			FullName: fullName,
		}
		if c.Slug == "" {
			c.Slug = portalSlug(c.Name)
		}
		if err := reg.Add(c); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Added %s.\n", c.Name)
		return nil
	},
}

var companiesRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a custom company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := company.NewRegistry(cfg.Companies.CustomFile)
		if err != nil {
			return err
		}
		if err := reg.Remove(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Removed %s.\n", args[0])
		return nil
	},
}

// portalSlug turns a display name into Moneycontrol's URL form, which is
// the lowercase name with separators removed: "Tata Elxsi" -> "tataelxsi".
func portalSlug(name string) string {
	return strings.ReplaceAll(slug.Make(name), "-", "")
}

func formatCompanies(w io.Writer, companies []company.Company) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCODE\tSLUG\tFULL NAME\tDEFAULT")
	for _, c := range companies {
		def := ""
		if company.IsDefault(c.Name) {
			def = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.Name, c.Code, c.Slug, c.FullName, def)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	companiesAddCmd.Flags().String("code", "", "Moneycontrol company code, e.g. TE")
	companiesAddCmd.Flags().String("slug", "", "Moneycontrol URL slug (default: derived from the name)")
	companiesAddCmd.Flags().String("sector", "", "Moneycontrol sector (default computers-software)")
	companiesAddCmd.Flags().String("full-name", "", "legal name (default: <name> Ltd.)")
	_ = companiesAddCmd.MarkFlagRequired("code")

	companiesCmd.AddCommand(companiesListCmd, companiesAddCmd, companiesRemoveCmd)
	rootCmd.AddCommand(companiesCmd)
}
