package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/jgoulah/energylog/internal/database"
	"github.com/jgoulah/energylog/internal/errs"
)

var (
	listDevice  string
	listPending bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries recorded in the local ledger",
	Long:  `Displays the entries fetched by previous runs and whether the webhook accepted them.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listDevice, "device", "", "Filter by device (default: all devices)")
	listCmd.Flags().BoolVar(&listPending, "pending", false, "Only show entries not yet submitted")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}
	if cfg.LedgerPath == "" {
		return errs.New(errs.KindConfiguration, "the ledger is disabled (ledger_path is empty)")
	}

	db, err := openDB(cfg.LedgerPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	entries, err := db.ListEntries(listDevice)
	if err != nil {
		return fmt.Errorf("listing entries: %w", err)
	}
	if listPending {
		entries = lo.Reject(entries, func(le database.LedgerEntry, _ int) bool { return le.Submitted() })
	}

	if len(entries) == 0 {
		fmt.Println("No entries found")
	}

	for _, device := range lo.Uniq(lo.Map(entries, func(le database.LedgerEntry, _ int) string { return le.Device })) {
		rows := lo.Filter(entries, func(le database.LedgerEntry, _ int) bool { return le.Device == device })

		fmt.Printf("\n%s Energy Log:\n", device)
		fmt.Println("------------------------------------------------------------------")
		fmt.Printf("%-12s  %10s  %10s  %-12s  %s\n", "Date", "kWh", "Nap kWh", "Awake", "Submitted")
		fmt.Println("------------------------------------------------------------------")

		var total float64
		for _, le := range rows {
			submitted := "pending"
			if le.Submitted() {
				submitted = humanize.Time(le.SubmittedAt)
			}
			fmt.Printf("%-12s  %10.2f  %10.2f  %-12s  %s\n", le.Entry.Date, le.Entry.ConsumptionTotal,
				le.Entry.ConsumptionPowerNap, le.Entry.DurationAwake, submitted)
			total += le.Entry.ConsumptionTotal
		}

		fmt.Println("------------------------------------------------------------------")
		fmt.Printf("Total: %s kWh (%s records)\n", humanize.CommafWithDigits(total, 2), humanize.Comma(int64(len(rows))))
	}

	if listPending {
		line, err := pendingSummary(db, listDevice)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s\n", line)
	}
	return nil
}

// pendingSummary reports how many ledger entries the webhook has not yet
// confirmed
func pendingSummary(db *database.DB, device string) (string, error) {
	n, err := db.CountPending(device)
	if err != nil {
		return "", err
	}
	scope := "all devices"
	if device != "" {
		scope = device
	}
	return fmt.Sprintf("%s %s awaiting submission for %s",
		humanize.Comma(int64(n)), english.PluralWord(n, "entry", "entries"), scope), nil
}
