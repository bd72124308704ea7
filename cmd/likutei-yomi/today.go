package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var todayDate string

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Print today's halacha messages",
	Long: "Resolves the daily pair for today (or --date) and prints the " +
		"rendered messages to stdout without sending anything.",
	RunE: runToday,
}

func init() {
	todayCmd.Flags().StringVar(
		&todayDate, "date", "", "calendar date to resolve (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(todayCmd)
}

func runToday(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	application, err := newApp(cfg, log)
	if err != nil {
		return err
	}

	day := time.Now().In(cfg.Location())

	if todayDate != "" {
		day, err = time.ParseInLocation("2006-01-02", todayDate, cfg.Location())
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", todayDate, err)
		}
	}

	messages, err := application.selector.DailyMessages(cmd.Context(), day)
	if err != nil {
		return fmt.Errorf("failed to resolve daily pair: %w", err)
	}

	for i, msg := range messages {
		if i > 0 {
			cmd.Println("---")
		}

		cmd.Println(msg)
	}

	return nil
}
