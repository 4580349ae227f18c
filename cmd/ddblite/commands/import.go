package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	importTable string
	importDir   string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import items from a previously exported manifest+data directory into an existing table",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		desc, err := s.ImportTable(importTable, importDir)
		if err != nil {
			return err
		}
		fmt.Printf("import %s: %s (%d/%d items, %d error(s))\n", desc.ImportID, desc.Status, desc.ImportedItemCount, desc.ProcessedItemCount, desc.ErrorCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importTable, "table", "", "destination table name, must already exist (required)")
	importCmd.Flags().StringVar(&importDir, "dir", "", "input directory containing manifest-summary.json and data/ (required)")
	_ = importCmd.MarkFlagRequired("table")
	_ = importCmd.MarkFlagRequired("dir")
}
