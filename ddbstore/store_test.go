package ddbstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acksell/ddblite/collation"
)

// Test table fixtures used throughout this package's tests.

func singleTableKeys() KeySchema {
	return KeySchema{
		PartitionKey: KeyDef{Name: "pk", Kind: collation.KindS},
		SortKey:      &KeyDef{Name: "sk", Kind: collation.KindS},
	}
}

func noSortKeyKeys() KeySchema {
	return KeySchema{
		PartitionKey: KeyDef{Name: "pk", Kind: collation.KindS},
	}
}

func numericSortKeyKeys() KeySchema {
	return KeySchema{
		PartitionKey: KeyDef{Name: "pk", Kind: collation.KindS},
		SortKey:      &KeyDef{Name: "sk", Kind: collation.KindN},
	}
}

func gsi1Index() Index {
	return Index{
		Name: "gsi1",
		Kind: IndexKindGSI,
		Keys: KeySchema{
			PartitionKey: KeyDef{Name: "gsi1pk", Kind: collation.KindS},
			SortKey:      &KeyDef{Name: "gsi1sk", Kind: collation.KindS},
		},
		ProjectionType: "ALL",
	}
}

// newTestStore opens a fresh in-memory database and creates the given
// tables through the store's own CreateTable operation.
func newTestStore(t *testing.T, tables ...CreateTableInput) *Store {
	t.Helper()
	store, err := New(StoreOptions{})
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	for _, in := range tables {
		_, err := store.CreateTable(in)
		require.NoError(t, err)
	}
	return store
}

func singleTableDesign() CreateTableInput {
	return CreateTableInput{
		Name:    "test-table",
		Keys:    singleTableKeys(),
		Indexes: []Index{gsi1Index()},
	}
}

func noSortKeyTable() CreateTableInput {
	return CreateTableInput{
		Name: "no-sk-table",
		Keys: noSortKeyKeys(),
	}
}

func numericSortKeyTable() CreateTableInput {
	return CreateTableInput{
		Name: "numeric-sk-table",
		Keys: numericSortKeyKeys(),
	}
}
