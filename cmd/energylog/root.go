package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jgoulah/energylog/internal/config"
	"github.com/jgoulah/energylog/internal/database"
	"github.com/jgoulah/energylog/internal/errs"
	"github.com/jgoulah/energylog/internal/logging"
	"github.com/jgoulah/energylog/internal/publisher"
	"github.com/jgoulah/energylog/internal/runner"
	"github.com/jgoulah/energylog/internal/source"
	"github.com/jgoulah/energylog/internal/window"
)

var (
	cfgFile string
	envFile string
	dbPath  string
	verbose bool

	syncAll   bool
	syncStart string
	syncEnd   string

	// set once the config is loaded so main can log the final error
	appLogger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "energylog",
	Short: "Send daily energy consumption to the spreadsheet webhook",
	Long: `energylog reads daily power-consumption records from the local energy journal
utility and submits them in one batch to a spreadsheet webhook, which keeps one
row per device and date.

With no flags the previous seven days are sent. Use --all for the full history
or --start/--end for an explicit inclusive range.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.NoArgs(cmd, args); err != nil {
			return errs.Wrap(errs.KindConfiguration, err, "usage")
		}
		return nil
	},
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runSync,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file (default is ./energylog.env)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "ledger database file (default is ./data.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.Flags().BoolVar(&syncAll, "all", false, "Send the full history instead of the last week")
	rootCmd.Flags().StringVar(&syncStart, "start", "", "Start date (YYYY-MM-DD), requires --end")
	rootCmd.Flags().StringVar(&syncEnd, "end", "", "End date (YYYY-MM-DD), requires --start")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errs.Wrap(errs.KindConfiguration, err, "usage")
	})
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// getEnvFilePath returns the dotenv file path
func getEnvFilePath() string {
	if envFile != "" {
		return envFile
	}
	return config.DefaultEnvFilePath()
}

// setup loads the configuration and starts the logger
func setup() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Resolve(getConfigPath(), getEnvFilePath())
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if dbPath != "" {
		cfg.LedgerPath = dbPath
	}

	l, err := logging.New(os.Stdout, os.Stderr, cfg.LogFile, verbose)
	if err != nil {
		return nil, nil, err
	}
	appLogger = l
	return cfg, l, nil
}

// openDB opens the ledger database
func openDB(path string) (*database.DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runSync(cmd *cobra.Command, args []string) error {
	mode, err := window.ModeFromFlags(syncAll, syncStart, syncEnd)
	if err != nil {
		return err
	}
	if _, err := window.Resolve(mode, syncStart, syncEnd, time.Now()); err != nil {
		return err
	}

	cfg, log, err := setup()
	if err != nil {
		return err
	}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		log.Debugf("flag --%s=%s", f.Name, f.Value)
	})

	if err := cfg.RequireWebhook(); err != nil {
		return err
	}
	hook, err := publisher.NewWebhook(cfg.WebhookURL, cfg.Timeout())
	if err != nil {
		return err
	}

	journal := source.NewJournal(cfg.Source.Command, cfg.Source.Args, cfg.SourceTimeout())
	journal.StartFlag = cfg.Source.StartFlag
	journal.EndFlag = cfg.Source.EndFlag

	opts := runner.Options{
		Mode:       mode,
		Start:      syncStart,
		End:        syncEnd,
		DeviceName: cfg.DeviceName,
		CostPerKWh: cfg.CostPerKWh,
		Source:     journal,
		Submitter:  hook,
		Logger:     log,
	}

	if cfg.LedgerPath != "" {
		db, err := openDB(cfg.LedgerPath)
		if err != nil {
			log.Warnf("Ledger unavailable, continuing without it: %v", err)
		} else {
			defer db.Close()
			opts.Ledger = db
		}
	}

	if cfg.MQTT.Enabled {
		ann, err := publisher.NewAnnouncer(cfg.MQTT)
		if err != nil {
			log.Warnf("MQTT unavailable, sync will not be announced: %v", err)
		} else {
			defer ann.Close()
			opts.Announcer = ann
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, err := runner.Run(ctx, opts)
	if err != nil {
		return err
	}
	log.Infof("%s", runner.Describe(res))
	return nil
}
