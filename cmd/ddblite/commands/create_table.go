package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var createTableSchemaPath string

var createTableCmd = &cobra.Command{
	Use:   "create-table",
	Short: "Create a table (and any indexes) from a YAML schema file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ts, err := loadTableSchema(createTableSchemaPath)
		if err != nil {
			return err
		}
		in, err := ts.toCreateTableInput()
		if err != nil {
			return err
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		t, err := s.CreateTable(in)
		if err != nil {
			return err
		}
		fmt.Printf("created table %q (%d index(es))\n", t.Name, len(t.Indexes))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createTableCmd)
	createTableCmd.Flags().StringVar(&createTableSchemaPath, "schema", "", "path to the table's YAML schema file (required)")
	_ = createTableCmd.MarkFlagRequired("schema")
}
