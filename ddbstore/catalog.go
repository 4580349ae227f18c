package ddbstore

import (
	"fmt"
	"regexp"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/acksell/ddblite/ddberr"
)

var resourceNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,255}$`)

// CreateTableInput describes a new table's key schema, secondary indexes,
// and initial tags. It carries no TTL attribute; TTL is configured
// afterwards through UpdateTimeToLive.
type CreateTableInput struct {
	Name    string
	Keys    KeySchema
	Indexes []Index
	Tags    map[string]string
}

// CreateTable creates the catalog row and backing SQL tables for a new
// table and any indexes given up front.
func (s *Store) CreateTable(in CreateTableInput) (*Table, error) {
	if err := validateResourceName(in.Name); err != nil {
		return nil, err
	}
	s.lock()
	defer s.unlock()

	if _, exists := s.tables[in.Name]; exists {
		return nil, ddberr.InUse("table %q already exists", in.Name)
	}
	for _, idx := range in.Indexes {
		if err := validateResourceName(idx.Name); err != nil {
			return nil, err
		}
	}

	now := time.Now().Unix()
	t := &Table{
		Name:      in.Name,
		Keys:      in.Keys,
		Status:    StatusActive,
		CreatedAt: now,
		Indexes:   make(map[string]*Index),
	}

	if err := createItemTable(s.db, in.Name); err != nil {
		return nil, fmt.Errorf("ddbstore: create item table: %w", err)
	}

	skName, skKind := "", ""
	if t.Keys.SortKey != nil {
		skName, skKind = t.Keys.SortKey.Name, string(rune(t.Keys.SortKey.Kind))
	}
	_, err := s.db.Exec(`INSERT INTO ddb_tables (name, pk_name, pk_kind, sk_name, sk_kind, ttl_attribute, status, created_at, item_count, size_bytes)
		VALUES (?, ?, ?, ?, ?, '', ?, ?, 0, 0)`,
		t.Name, t.Keys.PartitionKey.Name, string(rune(t.Keys.PartitionKey.Kind)), skName, skKind, string(t.Status), now)
	if err != nil {
		dropItemTable(s.db, in.Name)
		return nil, fmt.Errorf("ddbstore: insert table catalog row: %w", err)
	}

	for _, idx := range in.Indexes {
		idxCopy := idx
		idxCopy.Status = StatusActive
		if err := s.createIndexLocked(t, &idxCopy); err != nil {
			return nil, err
		}
	}

	for k, v := range in.Tags {
		if _, err := s.db.Exec(`INSERT OR REPLACE INTO ddb_tags (table_name, tag_key, tag_value) VALUES (?, ?, ?)`, t.Name, k, v); err != nil {
			return nil, fmt.Errorf("ddbstore: tag table: %w", err)
		}
	}

	s.tables[t.Name] = t
	s.log.Info("table created", "table", t.Name, "indexes", len(in.Indexes))
	return t, nil
}

// createIndexLocked registers one secondary index's catalog row and backing
// table. Callers must already hold s.mu.
func (s *Store) createIndexLocked(t *Table, idx *Index) error {
	if err := createIndexTable(s.db, t.Name, idx.Name); err != nil {
		return fmt.Errorf("ddbstore: create index table: %w", err)
	}
	skName, skKind := "", ""
	if idx.Keys.SortKey != nil {
		skName, skKind = idx.Keys.SortKey.Name, string(rune(idx.Keys.SortKey.Kind))
	}
	_, err := s.db.Exec(`INSERT INTO ddb_indexes (table_name, index_name, kind, pk_name, pk_kind, sk_name, sk_kind, projection_type, projection_attrs, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Name, idx.Name, string(idx.Kind), idx.Keys.PartitionKey.Name, string(rune(idx.Keys.PartitionKey.Kind)),
		skName, skKind, string(idx.ProjectionType), joinCSV(idx.ProjectionAttributes), string(idx.Status))
	if err != nil {
		dropIndexTable(s.db, t.Name, idx.Name)
		return fmt.Errorf("ddbstore: insert index catalog row: %w", err)
	}
	t.Indexes[idx.Name] = idx
	return s.backfillIndexLocked(t, idx)
}

// DeleteTable drops the table's catalog row, tags, and every physical table
// (base + indexes) backing it.
func (s *Store) DeleteTable(name string) (*Table, error) {
	s.lock()
	defer s.unlock()

	t, ok := s.tables[name]
	if !ok {
		return nil, ddberr.NotFound("table %q not found", name)
	}

	for idxName := range t.Indexes {
		if err := dropIndexTable(s.db, name, idxName); err != nil {
			return nil, err
		}
		if _, err := s.db.Exec(`DELETE FROM ddb_indexes WHERE table_name = ? AND index_name = ?`, name, idxName); err != nil {
			return nil, err
		}
	}
	if err := dropItemTable(s.db, name); err != nil {
		return nil, err
	}
	if _, err := s.db.Exec(`DELETE FROM ddb_tables WHERE name = ?`, name); err != nil {
		return nil, err
	}
	if _, err := s.db.Exec(`DELETE FROM ddb_tags WHERE table_name = ?`, name); err != nil {
		return nil, err
	}

	delete(s.tables, name)
	s.log.Info("table deleted", "table", name)
	t.Status = StatusDeleting
	return t, nil
}

// DescribeTable returns the current catalog entry for a table.
func (s *Store) DescribeTable(name string) (*Table, error) {
	s.lock()
	defer s.unlock()
	t, ok := s.tables[name]
	if !ok {
		return nil, ddberr.NotFound("table %q not found", name)
	}
	return t, nil
}

// ListTables returns table names in lexical order, honoring the
// ExclusiveStartTableName/Limit pagination DynamoDB's ListTables uses.
func (s *Store) ListTables(exclusiveStart string, limit int) ([]string, string) {
	s.lock()
	defer s.unlock()

	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)

	start := 0
	if exclusiveStart != "" {
		for i, n := range names {
			if n > exclusiveStart {
				start = i
				break
			}
			start = i + 1
		}
	}
	names = names[start:]
	if limit <= 0 || limit >= len(names) {
		return names, ""
	}
	return names[:limit], names[limit-1]
}

// UpdateTableIndexes creates and/or deletes GSIs, synchronously backfilling
// any new index from the table's existing items. Real DynamoDB does this
// asynchronously; this store has one writer and no reason to fake the delay.
func (s *Store) UpdateTableIndexes(tableName string, toCreate []Index, toDelete []string) (*Table, error) {
	s.lock()
	defer s.unlock()

	t, ok := s.tables[tableName]
	if !ok {
		return nil, ddberr.NotFound("table %q not found", tableName)
	}
	for _, name := range toDelete {
		if _, exists := t.Indexes[name]; !exists {
			return nil, ddberr.Validation("index %q does not exist on table %q", name, tableName)
		}
	}
	for _, idx := range toCreate {
		if _, exists := t.Indexes[idx.Name]; exists {
			return nil, ddberr.InUse("index %q already exists on table %q", idx.Name, tableName)
		}
		if err := validateResourceName(idx.Name); err != nil {
			return nil, err
		}
	}

	for _, name := range toDelete {
		if err := dropIndexTable(s.db, tableName, name); err != nil {
			return nil, err
		}
		if _, err := s.db.Exec(`DELETE FROM ddb_indexes WHERE table_name = ? AND index_name = ?`, tableName, name); err != nil {
			return nil, err
		}
		delete(t.Indexes, name)
	}
	for _, idx := range toCreate {
		idxCopy := idx
		idxCopy.Status = StatusActive
		if err := s.createIndexLocked(t, &idxCopy); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// UpdateTimeToLive sets or clears the table's TTL attribute name. An empty
// attribute disables TTL.
func (s *Store) UpdateTimeToLive(tableName, attribute string) (*Table, error) {
	s.lock()
	defer s.unlock()
	t, ok := s.tables[tableName]
	if !ok {
		return nil, ddberr.NotFound("table %q not found", tableName)
	}
	if _, err := s.db.Exec(`UPDATE ddb_tables SET ttl_attribute = ? WHERE name = ?`, attribute, tableName); err != nil {
		return nil, err
	}
	t.TTLAttribute = attribute
	return t, nil
}

// TagResource/UntagResource/ListTagsOfResource implement DynamoDB's
// resource tagging API, capped at 50 tags per table the way the real
// service is, with tag keys of at most 128 and values of at most 256
// characters.
const (
	maxTagsPerTable   = 50
	maxTagKeyLength   = 128
	maxTagValueLength = 256
)

func (s *Store) TagResource(tableName string, tags map[string]string) error {
	s.lock()
	defer s.unlock()
	if _, ok := s.tables[tableName]; !ok {
		return ddberr.NotFound("table %q not found", tableName)
	}
	for k, v := range tags {
		if utf8.RuneCountInString(k) > maxTagKeyLength {
			return ddberr.Validation("Tag key exceeds %d characters", maxTagKeyLength)
		}
		if utf8.RuneCountInString(v) > maxTagValueLength {
			return ddberr.Validation("Tag value exceeds %d characters", maxTagValueLength)
		}
	}
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM ddb_tags WHERE table_name = ?`, tableName).Scan(&count); err != nil {
		return err
	}
	existing := map[string]bool{}
	rows, err := s.db.Query(`SELECT tag_key FROM ddb_tags WHERE table_name = ?`, tableName)
	if err != nil {
		return err
	}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			rows.Close()
			return err
		}
		existing[k] = true
	}
	rows.Close()
	newCount := count
	for k := range tags {
		if !existing[k] {
			newCount++
		}
	}
	if newCount > maxTagsPerTable {
		return ddberr.Validation("table %q would exceed the %d tag limit", tableName, maxTagsPerTable)
	}
	for k, v := range tags {
		if _, err := s.db.Exec(`INSERT OR REPLACE INTO ddb_tags (table_name, tag_key, tag_value) VALUES (?, ?, ?)`, tableName, k, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) UntagResource(tableName string, tagKeys []string) error {
	s.lock()
	defer s.unlock()
	if _, ok := s.tables[tableName]; !ok {
		return ddberr.NotFound("table %q not found", tableName)
	}
	for _, k := range tagKeys {
		if _, err := s.db.Exec(`DELETE FROM ddb_tags WHERE table_name = ? AND tag_key = ?`, tableName, k); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListTagsOfResource(tableName string) (map[string]string, error) {
	s.lock()
	defer s.unlock()
	if _, ok := s.tables[tableName]; !ok {
		return nil, ddberr.NotFound("table %q not found", tableName)
	}
	rows, err := s.db.Query(`SELECT tag_key, tag_value FROM ddb_tags WHERE table_name = ?`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func validateResourceName(name string) error {
	if !resourceNamePattern.MatchString(name) {
		return ddberr.Validation("invalid resource name %q", name)
	}
	return nil
}
