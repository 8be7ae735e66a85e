package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jgoulah/energylog/internal/server"
	"github.com/jgoulah/energylog/internal/sheet"
)

var (
	serveListen   string
	serveWorkbook string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the spreadsheet webhook",
	Long: `Runs the webhook that devices submit their entries to. Each device gets its own
worksheet in the workbook and every date is stored at most once.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default from config, :8080)")
	serveCmd.Flags().StringVar(&serveWorkbook, "workbook", "", "Workbook file (default from config, energy-log.xlsx)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Server.Listen = serveListen
	}
	if serveWorkbook != "" {
		cfg.Server.Workbook = serveWorkbook
	}

	if verbose {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := sheet.Open(cfg.Server.Workbook)
	if err != nil {
		return fmt.Errorf("opening workbook: %w", err)
	}
	defer store.Close()

	log.Infof("Storing entries in %s", cfg.Server.Workbook)
	if cfg.Server.RateLimitRPS > 0 {
		log.Infof("Rate limiting enabled: %.1f req/sec, burst: %d", cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	}

	ctx, cancel := signalContext()
	defer cancel()

	return server.New(store, cfg.Server, log).Run(ctx)
}
