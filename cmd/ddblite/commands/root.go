package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	dbPath  string
	verbose bool
)

// rootCmd is the base command: one package per CLI, with a root command
// plus one file per subcommand.
var rootCmd = &cobra.Command{
	Use:   "ddblite",
	Short: "ddblite - a local, embedded, DynamoDB-semantics key-value store",
	Long: `ddblite drives the embedded managed-store engine from the command line:
table lifecycle, item CRUD, query/scan, and offline export/import against a
local SQLite file or an in-memory database.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the SQLite database file (empty for in-memory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
}
