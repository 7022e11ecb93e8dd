package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rate-tiering/internal/export"
	"github.com/sells-group/rate-tiering/internal/session"
)

var (
	tierArchive     string
	tierSheet       string
	tierIncumbents  []string
	tierDistinct    bool
	tierOutput      string
	tierFormat      string
	tierVendor      string
	tierOrigin      string
	tierDestination string
	tierStatus      bool
	tierSource      bool
)

var tierCmd = &cobra.Command{
	Use:   "tier",
	Short: "Assign per-lane tiers to the vendor quotes of one sheet",
	Long: `Loads the archive, reads the selected sheet from every workbook, melts the
truck-type price columns into quotes and ranks each lane. Incumbent vendors
are labelled Tier 0; competitors are ranked from Tier 1 by price.

Examples:
  rate-tiering tier --archive bids.zip --sheet "SPX FTL" --output tiering.csv

  # Incumbents by vendor-name substring, JSON to stdout
  rate-tiering tier --archive bids.zip --sheet LOTTE --incumbent "PT Incumbent" --format json

  # One origin only, with Status and Source File columns
  rate-tiering tier --archive bids.zip --sheet "SPX FTL" --origin Jakarta --status --source`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := export.ParseFormat(tierFormat)
		if err != nil {
			return err
		}

		req := session.Request{Sheet: tierSheet}
		if cmd.Flags().Changed("incumbent") {
			req.Incumbents = tierIncumbents
		}
		if cmd.Flags().Changed("rank-by-distinct-price") {
			req.RankByDistinctPrice = &tierDistinct
		}

		res, err := runTiering(cmd.Context(), cfg, tierArchive, req)
		if err != nil {
			return err
		}

		if res.Empty() {
			zap.L().Info("tier: nothing to show", zap.String("sheet", res.Sheet), zap.Int("warnings", len(res.Warnings)))
			fmt.Fprintln(os.Stderr, "Nothing to show.")
			return nil
		}

		opts := exportOptions(cfg)
		if cmd.Flags().Changed("status") {
			opts.IncludeStatus = tierStatus
		}
		if cmd.Flags().Changed("source") {
			opts.IncludeSource = tierSource
		}

		filter := export.Filter{Vendor: tierVendor, Origin: tierOrigin, Destination: tierDestination}
		rows := filter.Apply(res.Assignments)
		zap.L().Info("tier: complete",
			zap.String("run_id", res.RunID),
			zap.Int("assignments", len(res.Assignments)),
			zap.Int("exported", len(rows)),
		)

		return writeOutput(tierOutput, os.Stdout, func(w io.Writer) error {
			return export.Write(w, format, rows, opts)
		})
	},
}

func init() {
	f := tierCmd.Flags()
	f.StringVar(&tierArchive, "archive", "", "path or URL of the ZIP archive (required)")
	f.StringVar(&tierSheet, "sheet", "", "sheet to tier, as listed by catalog (required)")
	f.StringSliceVar(&tierIncumbents, "incumbent", nil, "incumbent vendor substring, repeatable; --incumbent= disables the carve-out (default from config: SJL, JHT)")
	f.BoolVar(&tierDistinct, "rank-by-distinct-price", true, "equal prices share a tier (default from config)")
	f.StringVar(&tierOutput, "output", "", "output file (default: stdout)")
	f.StringVar(&tierFormat, "format", "csv", "output format: csv, json or yaml")
	f.StringVar(&tierVendor, "vendor", "", "only this vendor")
	f.StringVar(&tierOrigin, "origin", "", "only this origin city")
	f.StringVar(&tierDestination, "destination", "", "only this destination city")
	f.BoolVar(&tierStatus, "status", false, "add a Status=Active column (default from config)")
	f.BoolVar(&tierSource, "source", false, "add a Source File column (default from config)")
	_ = tierCmd.MarkFlagRequired("archive")
	_ = tierCmd.MarkFlagRequired("sheet")
	rootCmd.AddCommand(tierCmd)
}
