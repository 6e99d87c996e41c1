package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [catalog-id]",
	Short: "Show recent item import attempts",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistoryCmd,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Bool("failed", false, "Only show failed imports")
	historyCmd.Flags().IntP("limit", "l", 50, "Maximum rows")
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	failedOnly, _ := cmd.Flags().GetBool("failed")
	limit, _ := cmd.Flags().GetInt("limit")

	catalogID := ""
	if len(args) == 1 {
		catalogID = args[0]
	}

	client := NewClient(serverURL)
	hist, err := client.History(catalogID, failedOnly, limit)
	if err != nil {
		return fmt.Errorf("history fetch failed: %w", err)
	}

	if jsonOutput {
		printJSON(hist)
		return nil
	}

	if len(hist.Items) == 0 {
		fmt.Println("No history")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"WHEN", "CATALOG", "ITEM", "TYPE", "RESULT", "DURATION"})
	for _, e := range hist.Items {
		result := "ok"
		if !e.Success {
			result = "failed: " + e.Error
		}
		t.AppendRow(table.Row{
			e.CreatedAt.Local().Format(time.DateTime),
			e.CatalogID,
			e.ItemID,
			e.MediaType,
			result,
			fmt.Sprintf("%dms", e.DurationMs),
		})
	}
	t.Render()
	return nil
}
