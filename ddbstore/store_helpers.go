package ddbstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/ddblite/ddberr"
	"github.com/acksell/ddblite/exprlang/cond"
)

func ptrStr(s string) *string { return &s }

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// getTableLocked resolves a table by name; callers must hold s.mu.
func (s *Store) getTableLocked(name string) (*Table, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, ddberr.NotFound("Requested resource not found: Table: %s not found", name)
	}
	return t, nil
}

// fetchItemRowLocked reads one base item row, applying lazy TTL reclamation:
// a row past its expiry is deleted on the spot and reported as not found,
// giving exact-on-read semantics regardless of the sweeper's cadence.
func (s *Store) fetchItemRowLocked(t *Table, pk, sk string) (item map[string]types.AttributeValue, found bool, err error) {
	var doc []byte
	var expiresAt sql.NullInt64
	row := s.db.QueryRow(`SELECT doc, expires_at FROM `+itemTableName(t.Name)+` WHERE pk_collation = ? AND sk_collation = ?`, pk, sk)
	if err := row.Scan(&doc, &expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	if expiresAt.Valid && expiresAt.Int64 <= time.Now().Unix() {
		if err := s.deleteItemAndIndexEntries(t.Name, t, pk, sk); err != nil {
			return nil, false, err
		}
		t.ItemCount--
		return nil, false, nil
	}
	item, err = UnmarshalItem(doc)
	if err != nil {
		return nil, false, fmt.Errorf("ddbstore: decode stored item: %w", err)
	}
	return item, true, nil
}

// writeItemRowLocked upserts the base item row and every secondary index
// entry for it, and stamps expires_at from the table's configured TTL
// attribute if the item carries one.
func (s *Store) writeItemRowLocked(t *Table, pk, sk string, item map[string]types.AttributeValue) error {
	doc, err := MarshalItem(item)
	if err != nil {
		return fmt.Errorf("ddbstore: encode item: %w", err)
	}
	var expiresAt sql.NullInt64
	if t.TTLAttribute != "" {
		if av, ok := item[t.TTLAttribute]; ok {
			if n, ok := av.(*types.AttributeValueMemberN); ok {
				if secs, convErr := parseUnixSeconds(n.Value); convErr == nil {
					expiresAt = sql.NullInt64{Int64: secs, Valid: true}
				}
			}
		}
	}
	_, err = s.db.Exec(`INSERT INTO `+itemTableName(t.Name)+` (pk_collation, sk_collation, doc, expires_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(pk_collation, sk_collation) DO UPDATE SET doc = excluded.doc, expires_at = excluded.expires_at`,
		pk, sk, doc, nullableInt64(expiresAt))
	if err != nil {
		return err
	}
	return s.upsertIndexEntriesLocked(t, pk, sk, item)
}

func nullableInt64(v sql.NullInt64) any {
	if !v.Valid {
		return nil
	}
	return v.Int64
}

func parseUnixSeconds(numStr string) (int64, error) {
	var whole int64
	_, err := fmt.Sscanf(numStr, "%d", &whole)
	return whole, err
}

// deleteItemAndIndexEntries removes a base item row and its index entries.
// Exported to the package (not just store_delete_item.go) since the TTL
// sweeper needs the exact same cleanup.
func (s *Store) deleteItemAndIndexEntries(tableName string, t *Table, pk, sk string) error {
	if _, err := s.db.Exec(`DELETE FROM `+itemTableName(tableName)+` WHERE pk_collation = ? AND sk_collation = ?`, pk, sk); err != nil {
		return err
	}
	return s.deleteIndexEntriesLocked(t, pk, sk)
}

// evalCondition evaluates an optional ConditionExpression/FilterExpression
// against an item (item may be nil, meaning the item doesn't exist — paths
// against it all resolve Unknown, matching DynamoDB's own behavior for
// conditional writes against missing items).
func evalCondition(expr *string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) (bool, error) {
	if expr == nil || *expr == "" {
		return true, nil
	}
	node, err := cond.Parse(*expr)
	if err != nil {
		return false, ddberr.Validation("invalid expression: %v", err)
	}
	env := &cond.Env{Names: names, Values: values, Item: item}
	state, err := node.Eval(env)
	if err != nil {
		return false, err
	}
	return state.MatchesCondition(), nil
}

// keyFromAttrs extracts just the declared key attributes out of a full item,
// the shape DynamoDB's Key parameter and Attributes-on-delete expect.
func keyFromAttrs(t *Table, item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := map[string]types.AttributeValue{t.Keys.PartitionKey.Name: item[t.Keys.PartitionKey.Name]}
	if t.Keys.SortKey != nil {
		out[t.Keys.SortKey.Name] = item[t.Keys.SortKey.Name]
	}
	return out
}
