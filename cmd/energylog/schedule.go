package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jgoulah/energylog/internal/errs"
)

var (
	scheduleWeekday int
	scheduleHour    int
	scheduleMinute  int
	scheduleLog     string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Print the weekly crontab entry",
	Long: `Prints a crontab line that runs energylog with no arguments once a week, which
sends the previous seven days. Install it with "crontab -e".`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().IntVar(&scheduleWeekday, "weekday", 0, "Day of week, 0 = Sunday")
	scheduleCmd.Flags().IntVar(&scheduleHour, "hour", 9, "Hour of day (0-23)")
	scheduleCmd.Flags().IntVar(&scheduleMinute, "minute", 0, "Minute (0-59)")
	scheduleCmd.Flags().StringVar(&scheduleLog, "log", "", "Append the job's output to this file")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	line, err := cronLine(exe, scheduleWeekday, scheduleHour, scheduleMinute, scheduleLog)
	if err != nil {
		return err
	}
	fmt.Println(line)
	return nil
}

// cronLine builds the weekly crontab entry for exe
func cronLine(exe string, weekday, hour, minute int, logPath string) (string, error) {
	switch {
	case weekday < 0 || weekday > 6:
		return "", errs.New(errs.KindConfiguration, "--weekday must be between 0 and 6, got %d", weekday)
	case hour < 0 || hour > 23:
		return "", errs.New(errs.KindConfiguration, "--hour must be between 0 and 23, got %d", hour)
	case minute < 0 || minute > 59:
		return "", errs.New(errs.KindConfiguration, "--minute must be between 0 and 59, got %d", minute)
	}

	line := fmt.Sprintf("%d %d * * %d %s", minute, hour, weekday, shellQuote(exe))
	if logPath != "" {
		line += " >> " + shellQuote(logPath) + " 2>&1"
	}
	return line, nil
}

func shellQuote(s string) string {
	for _, r := range s {
		if !(r == '/' || r == '.' || r == '-' || r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return "'" + escapeQuotes(s) + "'"
		}
	}
	return s
}

func escapeQuotes(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\'' {
			out = append(out, []rune(`'\''`)...)
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
