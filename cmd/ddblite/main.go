// ddblite is a CLI for the embedded managed-store engine: table lifecycle,
// item CRUD, query/scan, and export/import against a local SQLite file or
// an in-memory database.
//
// # Usage
//
//	ddblite create-table --db ./data.sqlite --schema ./table.yaml
//	ddblite put-item --db ./data.sqlite --table Orders < item.json
//	ddblite query --db ./data.sqlite --table Orders --key-condition 'pk = :pk'
//
// Run 'ddblite <command> --help' for details on a specific command.
package main

import "github.com/acksell/ddblite/cmd/ddblite/commands"

func main() {
	commands.Execute()
}
