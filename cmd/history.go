package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent extractions",
	RunE:  historyRun,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all history entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		defer store.Close()
		if err := store.Clear(); err != nil {
			return fmt.Errorf("clearing history: %w", err)
		}
		fmt.Println("History cleared.")
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyClearCmd)
}

func historyRun(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer store.Close()

	entries, err := store.Recent(20)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No history entries found.")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s  %-10s %s [%s]\n",
			e.Extracted.Format("2006-01-02 15:04"), e.Provider, e.Title, e.ID)
	}
	return nil
}
