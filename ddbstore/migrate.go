package ddbstore

import (
	"database/sql"
	"fmt"
)

// migrate creates the catalog tables the store needs before any user table
// exists. Per-table item/index tables are created on demand by CreateTable.
func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ddb_tables (
			name TEXT PRIMARY KEY,
			pk_name TEXT NOT NULL,
			pk_kind TEXT NOT NULL,
			sk_name TEXT NOT NULL DEFAULT '',
			sk_kind TEXT NOT NULL DEFAULT '',
			ttl_attribute TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			item_count INTEGER NOT NULL DEFAULT 0,
			size_bytes INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS ddb_indexes (
			table_name TEXT NOT NULL,
			index_name TEXT NOT NULL,
			kind TEXT NOT NULL,
			pk_name TEXT NOT NULL,
			pk_kind TEXT NOT NULL,
			sk_name TEXT NOT NULL DEFAULT '',
			sk_kind TEXT NOT NULL DEFAULT '',
			projection_type TEXT NOT NULL,
			projection_attrs TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			PRIMARY KEY (table_name, index_name)
		)`,
		`CREATE TABLE IF NOT EXISTS ddb_tags (
			table_name TEXT NOT NULL,
			tag_key TEXT NOT NULL,
			tag_value TEXT NOT NULL,
			PRIMARY KEY (table_name, tag_key)
		)`,
		`CREATE TABLE IF NOT EXISTS ddb_exports (
			export_id TEXT PRIMARY KEY,
			table_name TEXT NOT NULL,
			status TEXT NOT NULL,
			start_time INTEGER NOT NULL,
			end_time INTEGER NOT NULL DEFAULT 0,
			item_count INTEGER NOT NULL DEFAULT 0,
			billed_size_bytes INTEGER NOT NULL DEFAULT 0,
			export_format TEXT NOT NULL,
			output_dir TEXT NOT NULL,
			failure_message TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS ddb_imports (
			import_id TEXT PRIMARY KEY,
			table_name TEXT NOT NULL,
			status TEXT NOT NULL,
			start_time INTEGER NOT NULL,
			end_time INTEGER NOT NULL DEFAULT 0,
			processed_item_count INTEGER NOT NULL DEFAULT 0,
			imported_item_count INTEGER NOT NULL DEFAULT 0,
			error_count INTEGER NOT NULL DEFAULT 0,
			input_dir TEXT NOT NULL,
			failure_message TEXT NOT NULL DEFAULT ''
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

// createItemTable creates the physical table backing a logical table's
// base item storage: rows keyed by (pk_collation, sk_collation), so
// SQLite's own rowid-table primary key ordering gives Query/Scan correct
// range semantics for free once values are collation-encoded.
func createItemTable(db *sql.DB, table string) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		pk_collation TEXT NOT NULL,
		sk_collation TEXT NOT NULL DEFAULT '',
		doc BLOB NOT NULL,
		expires_at INTEGER,
		PRIMARY KEY (pk_collation, sk_collation)
	)`, itemTableName(table))
	_, err := db.Exec(stmt)
	return err
}

// createIndexTable creates the sparse derived table backing one secondary
// index. base_pk/base_sk_collation let query results join back to the
// base item row without re-deriving index keys, and keep rows for distinct
// base items distinct even when their index key collides — GSI
// partition/sort keys need not be unique.
func createIndexTable(db *sql.DB, table, index string) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		pk_collation TEXT NOT NULL,
		sk_collation TEXT NOT NULL DEFAULT '',
		base_pk_collation TEXT NOT NULL,
		base_sk_collation TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (pk_collation, sk_collation, base_pk_collation, base_sk_collation)
	)`, indexTableName(table, index))
	_, err := db.Exec(stmt)
	return err
}

func dropItemTable(db *sql.DB, table string) error {
	_, err := db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, itemTableName(table)))
	return err
}

func dropIndexTable(db *sql.DB, table, index string) error {
	_, err := db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, indexTableName(table, index)))
	return err
}

// loadCatalog populates s.tables from the ddb_tables/ddb_indexes catalog
// rows, run once at New() so a reopened database resumes with its full
// table/index set without replaying every CreateTable call.
func (s *Store) loadCatalog() error {
	rows, err := s.db.Query(`SELECT name, pk_name, pk_kind, sk_name, sk_kind, ttl_attribute, status, created_at, item_count, size_bytes FROM ddb_tables`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var t Table
		var pkKind, skName, skKind string
		if err := rows.Scan(&t.Name, &t.Keys.PartitionKey.Name, &pkKind, &skName, &skKind, &t.TTLAttribute, &t.Status, &t.CreatedAt, &t.ItemCount, &t.SizeBytes); err != nil {
			return err
		}
		t.Keys.PartitionKey.Kind = collationKind(pkKind)
		if skName != "" {
			t.Keys.SortKey = &KeyDef{Name: skName, Kind: collationKind(skKind)}
		}
		t.Indexes = make(map[string]*Index)
		s.tables[t.Name] = &t
	}
	if err := rows.Err(); err != nil {
		return err
	}

	idxRows, err := s.db.Query(`SELECT table_name, index_name, kind, pk_name, pk_kind, sk_name, sk_kind, projection_type, projection_attrs, status FROM ddb_indexes`)
	if err != nil {
		return err
	}
	defer idxRows.Close()

	for idxRows.Next() {
		var tableName string
		var idx Index
		var pkKind, skName, skKind, projAttrs, projType string
		if err := idxRows.Scan(&tableName, &idx.Name, &idx.Kind, &idx.Keys.PartitionKey.Name, &pkKind, &skName, &skKind, &projType, &projAttrs, &idx.Status); err != nil {
			return err
		}
		idx.Keys.PartitionKey.Kind = collationKind(pkKind)
		if skName != "" {
			idx.Keys.SortKey = &KeyDef{Name: skName, Kind: collationKind(skKind)}
		}
		idx.ProjectionType = parseProjectionType(projType)
		if projAttrs != "" {
			idx.ProjectionAttributes = splitCSV(projAttrs)
		}
		tbl, ok := s.tables[tableName]
		if !ok {
			continue
		}
		idxCopy := idx
		tbl.Indexes[idx.Name] = &idxCopy
	}
	return idxRows.Err()
}
