package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteTableName string

var deleteTableCmd = &cobra.Command{
	Use:   "delete-table",
	Short: "Delete a table and its indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if _, err := s.DeleteTable(deleteTableName); err != nil {
			return err
		}
		fmt.Printf("deleted table %q\n", deleteTableName)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteTableCmd)
	deleteTableCmd.Flags().StringVar(&deleteTableName, "table", "", "table name (required)")
	_ = deleteTableCmd.MarkFlagRequired("table")
}
