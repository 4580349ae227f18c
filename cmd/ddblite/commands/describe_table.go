package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var describeTableName string

var describeTableCmd = &cobra.Command{
	Use:   "describe-table",
	Short: "Print a table's catalog entry as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		t, err := s.DescribeTable(describeTableName)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeTableCmd)
	describeTableCmd.Flags().StringVar(&describeTableName, "table", "", "table name (required)")
	_ = describeTableCmd.MarkFlagRequired("table")
}
