package ddbstore

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/ddblite/collation"
)

// itemKeyCollation derives the (pk_collation, sk_collation) pair an item
// occupies in a table's base item table, validating each key attribute is
// present and of the declared kind.
func itemKeyCollation(keys KeySchema, item map[string]types.AttributeValue) (pk string, sk string, err error) {
	pkAV, ok := item[keys.PartitionKey.Name]
	if !ok {
		return "", "", fmt.Errorf("ddbstore: missing partition key attribute %q", keys.PartitionKey.Name)
	}
	raw, err := keyRawValue(pkAV, keys.PartitionKey.Kind)
	if err != nil {
		return "", "", err
	}
	pk, err = collation.Encode(keys.PartitionKey.Kind, raw)
	if err != nil {
		return "", "", err
	}
	if keys.SortKey == nil {
		return pk, "", nil
	}
	skAV, ok := item[keys.SortKey.Name]
	if !ok {
		return "", "", fmt.Errorf("ddbstore: missing sort key attribute %q", keys.SortKey.Name)
	}
	raw, err = keyRawValue(skAV, keys.SortKey.Kind)
	if err != nil {
		return "", "", err
	}
	sk, err = collation.Encode(keys.SortKey.Kind, raw)
	if err != nil {
		return "", "", err
	}
	return pk, sk, nil
}

// indexKeyCollation derives an item's key position within one secondary
// index, returning ok=false when the item is missing an attribute the
// index key requires. GSIs/LSIs are sparse: an item that doesn't carry every
// index key attribute simply doesn't appear in it.
func indexKeyCollation(keys KeySchema, item map[string]types.AttributeValue) (pk string, sk string, ok bool, err error) {
	pkAV, present := item[keys.PartitionKey.Name]
	if !present {
		return "", "", false, nil
	}
	raw, err := keyRawValue(pkAV, keys.PartitionKey.Kind)
	if err != nil {
		return "", "", false, nil // wrong type also makes the item invisible to the index
	}
	pk, err = collation.Encode(keys.PartitionKey.Kind, raw)
	if err != nil {
		return "", "", false, err
	}
	if keys.SortKey == nil {
		return pk, "", true, nil
	}
	skAV, present := item[keys.SortKey.Name]
	if !present {
		return "", "", false, nil
	}
	raw, err = keyRawValue(skAV, keys.SortKey.Kind)
	if err != nil {
		return "", "", false, nil
	}
	sk, err = collation.Encode(keys.SortKey.Kind, raw)
	if err != nil {
		return "", "", false, err
	}
	return pk, sk, true, nil
}

// upsertIndexEntriesLocked recomputes and writes every secondary index
// entry for one item. Called from the item engine after any write that
// changes an item's attributes, always within the caller's existing lock.
func (s *Store) upsertIndexEntriesLocked(t *Table, basePK, baseSK string, item map[string]types.AttributeValue) error {
	for _, idx := range t.Indexes {
		if err := s.deleteIndexEntryForBaseLocked(t.Name, idx.Name, basePK, baseSK); err != nil {
			return err
		}
		pk, sk, ok, err := indexKeyCollation(idx.Keys, item)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		_, err = s.db.Exec(`INSERT INTO `+indexTableName(t.Name, idx.Name)+` (pk_collation, sk_collation, base_pk_collation, base_sk_collation) VALUES (?, ?, ?, ?)`,
			pk, sk, basePK, baseSK)
		if err != nil {
			return err
		}
	}
	return nil
}

// deleteIndexEntriesLocked removes every secondary index entry pointing at
// one base item, used when the base item itself is deleted.
func (s *Store) deleteIndexEntriesLocked(t *Table, basePK, baseSK string) error {
	for idxName := range t.Indexes {
		if err := s.deleteIndexEntryForBaseLocked(t.Name, idxName, basePK, baseSK); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) deleteIndexEntryForBaseLocked(table, index, basePK, baseSK string) error {
	_, err := s.db.Exec(`DELETE FROM `+indexTableName(table, index)+` WHERE base_pk_collation = ? AND base_sk_collation = ?`, basePK, baseSK)
	return err
}

// backfillIndexLocked populates a newly created index from every existing
// item in the table. Called with s.mu already held (from CreateTable /
// UpdateTableIndexes).
func (s *Store) backfillIndexLocked(t *Table, idx *Index) error {
	rows, err := s.db.Query(`SELECT pk_collation, sk_collation, doc FROM ` + itemTableName(t.Name))
	if err != nil {
		return err
	}
	defer rows.Close()

	type row struct {
		pk, sk string
		doc    []byte
	}
	var all []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.pk, &r.sk, &r.doc); err != nil {
			return err
		}
		all = append(all, r)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, r := range all {
		item, err := UnmarshalItem(r.doc)
		if err != nil {
			return err
		}
		pk, sk, ok, err := indexKeyCollation(idx.Keys, item)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if _, err := s.db.Exec(`INSERT INTO `+indexTableName(t.Name, idx.Name)+` (pk_collation, sk_collation, base_pk_collation, base_sk_collation) VALUES (?, ?, ?, ?)`,
			pk, sk, r.pk, r.sk); err != nil {
			return err
		}
	}
	return nil
}
