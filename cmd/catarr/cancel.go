package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <catalog-id>",
	Short: "Remove a catalog from the import queue",
	Args:  cobra.ExactArgs(1),
	RunE:  runCancelCmd,
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}

func runCancelCmd(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	if err := client.Cancel(args[0]); err != nil {
		return fmt.Errorf("cancel failed: %w", err)
	}
	fmt.Printf("Cancelled %s\n", args[0])
	return nil
}
