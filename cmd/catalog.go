package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/rate-tiering/internal/session"
)

var catalogArchive string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the selectable sheets of a rate-bid archive",
	Long: `Extracts the archive, opens every workbook and prints the union of their
sheet names, restricted to tiering.sheets when that list is configured.

Examples:
  rate-tiering catalog --archive bids.zip
  rate-tiering catalog --archive https://files.example.com/bids/2024-q3.zip`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("catalog"); err != nil {
			return err
		}

		sess := session.New(sessionConfig(cfg))
		defer sess.Close() //nolint:errcheck

		c, err := sess.Load(cmd.Context(), catalogArchive)
		if err != nil {
			return err
		}

		printCatalog(os.Stdout, os.Stderr, c)
		return nil
	},
}

func printCatalog(out, errOut io.Writer, c session.Catalog) {
	for _, w := range c.Warnings {
		_, _ = fmt.Fprintf(errOut, "warning: %s\n", w)
	}
	if len(c.Sheets) == 0 {
		_, _ = fmt.Fprintf(errOut, "No selectable sheets in %d workbook(s).\n", len(c.Workbooks))
		return
	}
	for _, s := range c.Sheets {
		_, _ = fmt.Fprintln(out, s)
	}
}

func init() {
	catalogCmd.Flags().StringVar(&catalogArchive, "archive", "", "path or URL of the ZIP archive (required)")
	_ = catalogCmd.MarkFlagRequired("archive")
	rootCmd.AddCommand(catalogCmd)
}
