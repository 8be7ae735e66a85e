package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jgoulah/energylog/internal/config"
	"github.com/jgoulah/energylog/internal/database"
	"github.com/jgoulah/energylog/internal/errs"
	"github.com/jgoulah/energylog/pkg/models"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"configuration", errs.New(errs.KindConfiguration, "webhook_url is not configured"), 2},
		{"wrapped configuration", fmt.Errorf("loading config: %w", errs.New(errs.KindConfiguration, "bad yaml")), 2},
		{"empty result", errs.New(errs.KindEmptyResult, "nothing"), 1},
		{"transport", errs.Transport(500, "<html>"), 1},
		{"plain", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCronLine(t *testing.T) {
	tests := []struct {
		name    string
		exe     string
		weekday int
		hour    int
		minute  int
		log     string
		want    string
		wantErr bool
	}{
		{name: "default sunday nine", exe: "/usr/local/bin/energylog", hour: 9, want: "0 9 * * 0 /usr/local/bin/energylog"},
		{name: "with log", exe: "/opt/energylog", weekday: 1, hour: 6, minute: 30, log: "/var/log/energylog.log",
			want: "30 6 * * 1 /opt/energylog >> /var/log/energylog.log 2>&1"},
		{name: "quoted path", exe: "/Users/me/My Tools/energylog", hour: 9,
			want: "0 9 * * 0 '/Users/me/My Tools/energylog'"},
		{name: "bad weekday", exe: "/x", weekday: 7, wantErr: true},
		{name: "bad hour", exe: "/x", hour: 24, wantErr: true},
		{name: "bad minute", exe: "/x", minute: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cronLine(tt.exe, tt.weekday, tt.hour, tt.minute, tt.log)
			if tt.wantErr {
				if !errs.Is(err, errs.KindConfiguration) {
					t.Fatalf("err = %v, want configuration error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("cronLine: %v", err)
			}
			if got != tt.want {
				t.Errorf("cronLine = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRootRejectsUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--bogus"}},
		{"positional argument", []string{"extra"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rootCmd.SetArgs(tt.args)
			t.Cleanup(func() { rootCmd.SetArgs(nil) })

			err := rootCmd.Execute()
			if exitCode(err) != 2 {
				t.Errorf("exitCode(%v) = %d, want 2", err, exitCode(err))
			}
		})
	}
}

func TestRootRejectsBadRangeBeforeLoadingConfig(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"start only", []string{"--start", "2025-10-01"}},
		{"all with range", []string{"--all", "--end", "2025-10-07"}},
		{"reversed", []string{"--start", "2025-10-07", "--end", "2025-10-01"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syncAll, syncStart, syncEnd = false, "", ""
			rootCmd.SetArgs(tt.args)
			t.Cleanup(func() {
				rootCmd.SetArgs(nil)
				syncAll, syncStart, syncEnd = false, "", ""
			})

			err := rootCmd.Execute()
			if !errs.Is(err, errs.KindConfiguration) {
				t.Errorf("err = %v, want configuration error", err)
			}
		})
	}
}

func TestWriteStarterConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	if err := writeStarterConfig(path, " https://example.test/exec ", "studio", false); err != nil {
		t.Fatalf("writeStarterConfig: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WebhookURL != "https://example.test/exec" || cfg.DeviceName != "studio" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Source.Command != config.Default().Source.Command {
		t.Errorf("source command = %q, want the default", cfg.Source.Command)
	}

	err = writeStarterConfig(path, "https://other.test", "", false)
	if !errs.Is(err, errs.KindConfiguration) {
		t.Fatalf("err = %v, want configuration error for an existing file", err)
	}
	if cfg, _ := config.Load(path); cfg.WebhookURL != "https://example.test/exec" {
		t.Errorf("existing file was overwritten: %+v", cfg)
	}

	if err := writeStarterConfig(path, "https://other.test", "", true); err != nil {
		t.Fatalf("writeStarterConfig --force: %v", err)
	}
	if cfg, _ := config.Load(path); cfg.WebhookURL != "https://other.test" {
		t.Errorf("forced write not applied: %+v", cfg)
	}
}

func TestPendingSummary(t *testing.T) {
	db, err := database.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := db.UpsertEntries("studio", []models.Entry{
		{Date: "2025-10-01", ConsumptionTotal: 1},
		{Date: "2025-10-02", ConsumptionTotal: 2},
	}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertEntries("laptop", []models.Entry{{Date: "2025-10-01", ConsumptionTotal: 1}}); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkSubmitted("studio", []string{"2025-10-01"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		device string
		want   string
	}{
		{"", "2 entries awaiting submission for all devices"},
		{"studio", "1 entry awaiting submission for studio"},
		{"desk", "0 entries awaiting submission for desk"},
	}
	for _, tt := range tests {
		got, err := pendingSummary(db, tt.device)
		if err != nil {
			t.Fatalf("pendingSummary(%q): %v", tt.device, err)
		}
		if got != tt.want {
			t.Errorf("pendingSummary(%q) = %q, want %q", tt.device, got, tt.want)
		}
	}
}
