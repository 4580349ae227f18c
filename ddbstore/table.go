// Package ddbstore is a DynamoDB-semantics key-value store's SQL-backed item
// engine: table and index catalog, the Put/Get/Update/Delete item
// operations, Query/Scan, batch and transactional operations, TTL
// reclamation, and export/import. It is one cohesive package with many
// source files (store.go, store_put_item.go, store_query.go, ...),
// backed by an embedded SQL database (github.com/mattn/go-sqlite3).
package ddbstore

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/ddblite/collation"
)

// KeyDef names one key attribute and the orderable type it must hold.
type KeyDef struct {
	Name string
	Kind collation.Kind
}

// KeySchema is a partition key plus an optional sort key, shared by tables,
// GSIs, and LSIs alike.
type KeySchema struct {
	PartitionKey KeyDef
	SortKey      *KeyDef
}

// IndexKind distinguishes a global secondary index (own partition key,
// eventually-consistent, asynchronous maintenance in real DynamoDB but
// applied synchronously here since there's only one writer) from a local
// secondary index (shares the table's partition key, fixed at table
// creation time).
type IndexKind string

const (
	IndexKindGSI IndexKind = "GSI"
	IndexKindLSI IndexKind = "LSI"
)

// IndexStatus mirrors DynamoDB's table/index lifecycle states
// (CREATING/ACTIVE/UPDATING/DELETING), even though this store applies every
// mutation synchronously and so transitions through CREATING/DELETING
// instantaneously — callers that poll DescribeTable/DescribeTable's
// GlobalSecondaryIndexes still see the right vocabulary.
type IndexStatus string

const (
	StatusCreating IndexStatus = "CREATING"
	StatusActive   IndexStatus = "ACTIVE"
	StatusUpdating IndexStatus = "UPDATING"
	StatusDeleting IndexStatus = "DELETING"
)

// Index is one secondary index's catalog entry.
type Index struct {
	Name                 string
	Kind                 IndexKind
	Keys                 KeySchema
	ProjectionType       types.ProjectionType
	ProjectionAttributes []string // set only when ProjectionType == INCLUDE
	Status               IndexStatus
}

// itemTableName / indexTableName compute the physical SQL table names
// backing a logical table/index. Prefixed so they can't collide with the
// catalog tables created in migrate.go.
func itemTableName(table string) string {
	return "item_" + sanitizeIdent(table)
}

func indexTableName(table, index string) string {
	return "idx_" + sanitizeIdent(table) + "_" + sanitizeIdent(index)
}

// sanitizeIdent maps a DynamoDB resource name (which allows '.', '-', '_')
// to a safe SQL identifier fragment. Table/index names are validated
// against DynamoDB's own naming rules in catalog.go before this is called,
// so this only needs to neutralize characters SQLite identifiers disallow.
func sanitizeIdent(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// Table is a table's full catalog entry: key schema, TTL configuration,
// and its secondary indexes.
type Table struct {
	Name          string
	Keys          KeySchema
	TTLAttribute  string
	Status        IndexStatus
	CreatedAt     int64 // unix seconds
	Indexes       map[string]*Index
	ItemCount     int64 // approximate, maintained incrementally
	SizeBytes     int64 // approximate, maintained incrementally
}

func (t *Table) keyAttrNames() map[string]bool {
	names := map[string]bool{t.Keys.PartitionKey.Name: true}
	if t.Keys.SortKey != nil {
		names[t.Keys.SortKey.Name] = true
	}
	return names
}
