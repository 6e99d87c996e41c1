package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the import queue",
	RunE:  runStatusCmd,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringP("filter", "f", "", "Fuzzy filter by catalog name")
}

func runStatusCmd(cmd *cobra.Command, args []string) error {
	nameFilter, _ := cmd.Flags().GetString("filter")

	client := NewClient(serverURL)
	status, err := client.Status()
	if err != nil {
		return fmt.Errorf("status fetch failed: %w", err)
	}
	queue, err := client.Queue(nameFilter)
	if err != nil {
		return fmt.Errorf("queue fetch failed: %w", err)
	}

	if jsonOutput {
		printJSON(map[string]any{"status": status, "queue": queue})
		return nil
	}

	fmt.Printf("catarrd %s, %d catalog(s) queued\n\n", status.Version, status.PendingCount)

	if len(queue.Items) == 0 {
		fmt.Println("Queue is empty")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"CATALOG", "NAME", "TYPE", "PROGRESS", "OK", "FAILED", "QUEUED"})
	for _, c := range queue.Items {
		t.AppendRow(table.Row{
			c.CatalogID,
			c.CatalogName,
			c.MediaType,
			fmt.Sprintf("%d/%d", c.ProcessedCount, c.TotalCount),
			c.SuccessCount,
			c.FailedCount,
			formatAge(c.QueuedAt),
		})
	}
	t.Render()
	return nil
}

func formatAge(ts time.Time) string {
	age := time.Since(ts)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}
