package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/energylog/internal/errs"
	"github.com/jgoulah/energylog/internal/sheet"
)

var (
	sheetDevice   string
	sheetWorkbook string
)

var sheetCmd = &cobra.Command{
	Use:   "sheet",
	Short: "Show the rows stored in the webhook's workbook",
	Long: `Reads the workbook the webhook writes to. Without --device it lists the device
worksheets; with --device it prints that device's rows.`,
	Args: cobra.NoArgs,
	RunE: runSheet,
}

func init() {
	sheetCmd.Flags().StringVar(&sheetDevice, "device", "", "Device whose rows to print")
	sheetCmd.Flags().StringVar(&sheetWorkbook, "workbook", "", "Workbook file (default from config, energy-log.xlsx)")
	rootCmd.AddCommand(sheetCmd)
}

func runSheet(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}
	path := cfg.Server.Workbook
	if sheetWorkbook != "" {
		path = sheetWorkbook
	}
	if _, err := os.Stat(path); err != nil {
		return errs.Wrap(errs.KindConfiguration, err, "workbook %s is not readable", path)
	}

	store, err := sheet.Open(path)
	if err != nil {
		return fmt.Errorf("opening workbook: %w", err)
	}
	defer store.Close()

	if sheetDevice == "" {
		devices := store.Devices()
		if len(devices) == 0 {
			fmt.Println("No device sheets yet")
			return nil
		}
		for _, d := range devices {
			rows, err := store.Rows(d)
			if err != nil {
				return err
			}
			fmt.Printf("%-31s  %s rows\n", d, humanize.Comma(int64(len(rows))))
		}
		return nil
	}

	rows, err := store.Rows(sheetDevice)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Printf("No rows for %s\n", sheetDevice)
		return nil
	}

	name, _ := store.SheetOf(sheetDevice)
	fmt.Printf("\n%s (sheet %s):\n", sheetDevice, name)
	fmt.Println("------------------------------------------------------------------------")
	fmt.Printf("%-12s  %10s  %6s  %10s  %s\n", "Date", "kWh", "Rate", "Cost", "Logged")
	fmt.Println("------------------------------------------------------------------------")
	for _, r := range rows {
		logged := "-"
		if !r.LoggedAt.IsZero() {
			logged = humanize.Time(r.LoggedAt)
		}
		fmt.Printf("%-12s  %10.2f  %6.2f  %10s  %s\n", r.Date, r.ConsumptionTotal, r.Rate, r.Cost, logged)
	}
	return nil
}
