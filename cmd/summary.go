package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/rate-tiering/internal/session"
	"github.com/sells-group/rate-tiering/internal/tiering"
)

var (
	summaryArchive string
	summarySheet   string
	summaryJSON    bool
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show per-lane price statistics for one sheet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		res, err := runTiering(cmd.Context(), cfg, summaryArchive, session.Request{Sheet: summarySheet})
		if err != nil {
			return err
		}

		lanes, err := tiering.Summarize(res.Assignments)
		if err != nil {
			return err
		}
		if len(lanes) == 0 {
			fmt.Fprintln(os.Stderr, "Nothing to show.")
			return nil
		}

		if summaryJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(lanes)
		}
		formatLanes(os.Stdout, lanes)
		return nil
	},
}

func formatLanes(out io.Writer, lanes []tiering.LaneSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TRUCK\tORIGIN\tDESTINATION\tQUOTES\tTIERS\tINCUMBENTS\tMIN\tMEDIAN\tMAX\tBEST")
	_, _ = fmt.Fprintln(w, "-----\t------\t-----------\t------\t-----\t----------\t---\t------\t---\t----")

	for _, l := range lanes {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%.0f\t%s\t%s\n",
			l.TruckType,
			l.OriginCity,
			l.DestinationCity,
			l.Quotes,
			l.Tiers,
			l.Incumbents,
			l.MinPrice.String(),
			l.MedianPrice,
			l.MaxPrice.String(),
			strings.Join(l.BestVendors, ", "),
		)
	}
	_ = w.Flush()
}

func init() {
	summaryCmd.Flags().StringVar(&summaryArchive, "archive", "", "path or URL of the ZIP archive (required)")
	summaryCmd.Flags().StringVar(&summarySheet, "sheet", "", "sheet to summarize (required)")
	summaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "print JSON instead of a table")
	_ = summaryCmd.MarkFlagRequired("archive")
	_ = summaryCmd.MarkFlagRequired("sheet")
	rootCmd.AddCommand(summaryCmd)
}
