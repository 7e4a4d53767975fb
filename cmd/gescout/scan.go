package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/rewired-gh/gescout/internal/models"
	"github.com/rewired-gh/gescout/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	flagMode    string
	flagShowAll bool
	flagLimit   int
	flagJSON    bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan and print the ranked items",
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVar(&flagMode, "mode", "", "filter mode (Custom, Low-Risk, High-ROI, Passive Overnight, High Volume)")
	scanCmd.Flags().BoolVar(&flagShowAll, "show-all", false, "skip thresholds and rank every item by utility")
	scanCmd.Flags().IntVar(&flagLimit, "limit", 25, "maximum rows to print (0 for all)")
	scanCmd.Flags().BoolVar(&flagJSON, "json", false, "print records as JSON")
}

func runScan(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := a.monitor.Options()
	if flagMode != "" {
		mode, err := pipeline.ParseMode(flagMode)
		if err != nil {
			return err
		}
		opts.Mode = mode
		opts.Thresholds = pipeline.ThresholdsFor(mode, a.monitor.CustomThresholds())
	}
	if cmd.Flags().Changed("show-all") {
		opts.ShowAll = flagShowAll
	}

	result, err := a.monitor.Scan(cmd.Context(), opts)
	if err != nil {
		return err
	}

	records := result.Records
	if flagLimit > 0 && len(records) > flagLimit {
		records = records[:flagLimit]
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	fmt.Fprintf(out, "%s: %d of %d items shown\n\n", opts.Mode, len(records), result.Candidates)
	return renderRecords(out, records)
}

func renderRecords(w io.Writer, records []models.ItemRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ITEM\tBUY\tSELL\tMARGIN\tROI %\tVOL/H\tRAU\tMANIP\tVOL\tAGE (m)\t")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%s\t%s\t%s\t%s\t%.0f\t\n",
			r.Name,
			humanize.Comma(r.BuyPrice),
			humanize.Comma(r.SellPrice),
			humanize.Comma(r.NetMargin),
			r.ROI,
			humanize.Comma(r.HourlyVolume),
			humanize.CommafWithDigits(r.RiskAdjustedUtility, 2),
			r.ManipulationRisk,
			r.VolatilityLevel,
			r.DataAgeMinutes,
		)
	}
	return tw.Flush()
}
