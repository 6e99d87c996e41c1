package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <catalog-id> [item-id...]",
	Short: "Queue a catalog of items for import",
	Long: `Queue a catalog of externally-identified items for import into a
library collection. Item ids are taken from the arguments, or from
--file (one id per line, "-" for stdin).

Re-importing a catalog id that is already queued restarts it from
scratch and discards its progress.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImportCmd,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringP("collection", "c", "", "Target collection id (required)")
	importCmd.Flags().StringP("type", "t", "movie", "Media type: movie or series")
	importCmd.Flags().StringP("name", "n", "", "Display name for the catalog")
	importCmd.Flags().String("file", "", `Read item ids from file, "-" for stdin`)
	_ = importCmd.MarkFlagRequired("collection")
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	catalogID := args[0]
	itemIDs := args[1:]

	collectionID, _ := cmd.Flags().GetString("collection")
	mediaType, _ := cmd.Flags().GetString("type")
	catalogName, _ := cmd.Flags().GetString("name")
	file, _ := cmd.Flags().GetString("file")

	if file != "" {
		fileIDs, err := readItemIDs(file)
		if err != nil {
			return err
		}
		itemIDs = append(itemIDs, fileIDs...)
	}
	if len(itemIDs) == 0 {
		return fmt.Errorf("no item ids given (arguments or --file)")
	}
	if catalogName == "" {
		catalogName = catalogID
	}

	client := NewClient(serverURL)
	created, err := client.Enqueue(EnqueueRequest{
		CatalogID:    catalogID,
		CollectionID: collectionID,
		CatalogName:  catalogName,
		MediaType:    mediaType,
		ItemIDs:      itemIDs,
	})
	if err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}

	if jsonOutput {
		printJSON(created)
		return nil
	}

	fmt.Printf("Queued %q (%s, %d items) into collection %s\n",
		created.CatalogName, created.MediaType, created.TotalCount, created.CollectionID)
	return nil
}

func readItemIDs(path string) ([]string, error) {
	var r *os.File
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	return ids, scanner.Err()
}
