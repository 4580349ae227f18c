package commands

import (
	"github.com/acksell/ddblite/ddblog"
	"github.com/acksell/ddblite/ddbstore"
)

// openStore opens the engine at --db (or an in-memory database if unset),
// loading the existing catalog the way every subcommand needs before it can
// do anything else.
func openStore() (*ddbstore.Store, error) {
	logger := ddblog.Discard()
	if verbose {
		logger = ddblog.Default()
	}
	return ddbstore.New(ddbstore.StoreOptions{
		DataSource: dbPath,
		Logger:     logger,
	})
}
