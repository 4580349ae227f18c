package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	listTablesStart string
	listTablesLimit int
)

var listTablesCmd = &cobra.Command{
	Use:   "list-tables",
	Short: "List table names in lexical order",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		names, lastEvaluated := s.ListTables(listTablesStart, listTablesLimit)
		for _, n := range names {
			fmt.Println(n)
		}
		if lastEvaluated != "" {
			fmt.Printf("# more results; pass --start %q to continue\n", lastEvaluated)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listTablesCmd)
	listTablesCmd.Flags().StringVar(&listTablesStart, "start", "", "exclusive start table name for pagination")
	listTablesCmd.Flags().IntVar(&listTablesLimit, "limit", 0, "maximum number of names to return (0 for all)")
}
