package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jgoulah/energylog/internal/config"
	"github.com/jgoulah/energylog/internal/errs"
)

var (
	initWebhook string
	initDevice  string
	initForce   bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Writes the default configuration to the config file (./config.yaml unless
--config is given). An existing file is left alone unless --force is set.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initWebhook, "webhook-url", "", "Webhook URL to store in the config")
	initCmd.Flags().StringVar(&initDevice, "device", "", "Device name (default: short host name at run time)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := getConfigPath()
	if err := writeStarterConfig(path, initWebhook, initDevice, initForce); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

// writeStarterConfig saves the default configuration to path
func writeStarterConfig(path, webhook, device string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return errs.New(errs.KindConfiguration, "%s already exists (use --force to overwrite)", path)
		}
	}

	cfg := config.Default()
	cfg.WebhookURL = strings.TrimSpace(webhook)
	cfg.DeviceName = strings.TrimSpace(device)
	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}
