package ddbstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/ddblite/collation"
	"github.com/acksell/ddblite/ddberr"
	"github.com/acksell/ddblite/exprlang/keycond"
	"github.com/acksell/ddblite/exprlang/proj"
)

// Query retrieves items sharing a partition key, optionally narrowed by a
// sort key condition. The range scan is issued as a single SQL query against
// the collation-ordered TEXT column rather than walking an iterator by hand.
func (s *Store) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if params == nil || params.KeyConditionExpression == nil {
		return nil, ddberr.Validation("key condition expression is required")
	}

	s.lock()
	defer s.unlock()

	t, err := s.getTableLocked(strOrEmpty(params.TableName))
	if err != nil {
		return nil, err
	}
	keys, idx, physTable, err := s.resolveQueryTarget(t, params.IndexName)
	if err != nil {
		return nil, err
	}

	kc, err := keycond.Parse(*params.KeyConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if err != nil {
		return nil, ddberr.Validation("invalid key condition expression: %v", err)
	}
	if kc.PartitionKeyName != keys.PartitionKey.Name {
		return nil, ddberr.Validation("key condition partition key %q does not match the table/index partition key %q", kc.PartitionKeyName, keys.PartitionKey.Name)
	}
	pkRaw, err := keyRawValue(kc.PartitionKeyValue, keys.PartitionKey.Kind)
	if err != nil {
		return nil, ddberr.Validation("%v", err)
	}
	pkCollation, err := encodeKeyValue(keys.PartitionKey.Kind, pkRaw)
	if err != nil {
		return nil, err
	}

	forward := params.ScanIndexForward == nil || *params.ScanIndexForward
	limit := 0
	if params.Limit != nil {
		limit = int(*params.Limit)
	}

	query, args, err := buildRangeQuery(physTable, keys, pkCollation, kc, forward, idx != nil)
	if err != nil {
		return nil, err
	}

	exclusivePK, exclusiveSK := "", ""
	if params.ExclusiveStartKey != nil {
		exclusivePK, exclusiveSK, err = keys.encodeStartKey(params.ExclusiveStartKey)
		if err != nil {
			return nil, ddberr.Validation("invalid ExclusiveStartKey: %v", err)
		}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type rowKey struct{ pk, sk, basePK, baseSK string }
	var candidates []rowKey
	skippedStart := exclusivePK == "" && exclusiveSK == ""
	for rows.Next() {
		var r rowKey
		if idx == nil {
			if err := rows.Scan(&r.pk, &r.sk); err != nil {
				return nil, err
			}
			r.basePK, r.baseSK = r.pk, r.sk
		} else {
			if err := rows.Scan(&r.pk, &r.sk, &r.basePK, &r.baseSK); err != nil {
				return nil, err
			}
		}
		if !skippedStart {
			if r.pk == exclusivePK && r.sk == exclusiveSK {
				skippedStart = true
			}
			continue
		}
		candidates = append(candidates, r)
		if limit > 0 && len(candidates) > limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var filter *string
	if params.FilterExpression != nil {
		filter = params.FilterExpression
	}

	var paths []proj.Path
	if params.ProjectionExpression != nil && *params.ProjectionExpression != "" {
		paths, err = proj.Parse(*params.ProjectionExpression)
		if err != nil {
			return nil, ddberr.Validation("invalid projection expression: %v", err)
		}
	}

	out := &dynamodb.QueryOutput{}
	scannedCount := int32(0)
	for i, c := range candidates {
		if limit > 0 && i >= limit {
			break
		}
		item, found, err := s.fetchItemRowLocked(t, c.basePK, c.baseSK)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		scannedCount++
		if idx != nil {
			item, err = projectForIndex(item, idx, t.Keys)
			if err != nil {
				return nil, err
			}
		}
		ok, err := evalCondition(filter, params.ExpressionAttributeNames, params.ExpressionAttributeValues, item)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if paths != nil {
			item, err = proj.Project(item, paths, params.ExpressionAttributeNames)
			if err != nil {
				return nil, err
			}
		}
		out.Items = append(out.Items, item)
	}
	out.Count = int32(len(out.Items))
	out.ScannedCount = scannedCount
	if limit > 0 && len(candidates) > limit {
		last := candidates[limit-1]
		lastItem := s.mustFetchBase(t, last.basePK, last.baseSK)
		out.LastEvaluatedKey = keyFromAttrs(t, lastItem)
		if idx != nil {
			addIndexKeyAttrs(out.LastEvaluatedKey, lastItem, idx, t.Keys)
		}
	}
	s.capacity.record(t.Name, float64(len(candidates))*0.5)
	return out, nil
}

// resolveQueryTarget picks the key schema and physical table a
// Query/Scan should run against: the base table, or a named secondary
// index's derived table.
func (s *Store) resolveQueryTarget(t *Table, indexName *string) (KeySchema, *Index, string, error) {
	if indexName == nil || *indexName == "" {
		return t.Keys, nil, itemTableName(t.Name), nil
	}
	idx, ok := t.Indexes[*indexName]
	if !ok {
		return KeySchema{}, nil, "", ddberr.Validation("index %q not found", *indexName)
	}
	return idx.Keys, idx, indexTableName(t.Name, idx.Name), nil
}

// encodeStartKey re-derives the (pk_collation, sk_collation) pair from an
// ExclusiveStartKey's raw attribute map.
func (keys KeySchema) encodeStartKey(item map[string]types.AttributeValue) (string, string, error) {
	return itemKeyCollation(keys, item)
}

func buildRangeQuery(physTable string, keys KeySchema, pkCollation string, kc *keycond.Parsed, forward, isIndex bool) (string, []any, error) {
	cols := "pk_collation, sk_collation"
	if isIndex {
		cols += ", base_pk_collation, base_sk_collation"
	}
	where := "pk_collation = ?"
	args := []any{pkCollation}

	if keys.SortKey != nil && kc.SortOp != keycond.SortNone {
		clause, clauseArgs, err := sortKeyClause(keys.SortKey.Kind, kc)
		if err != nil {
			return "", nil, err
		}
		where += " AND " + clause
		args = append(args, clauseArgs...)
	}

	order := "ASC"
	if !forward {
		order = "DESC"
	}
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY sk_collation %s`, cols, physTable, where, order)
	return q, args, nil
}

func sortKeyClause(kind collation.Kind, kc *keycond.Parsed) (string, []any, error) {
	enc := func(av types.AttributeValue) (string, error) {
		raw, err := keyRawValue(av, kind)
		if err != nil {
			return "", err
		}
		return encodeKeyValue(kind, raw)
	}
	switch kc.SortOp {
	case keycond.SortEq:
		v, err := enc(kc.SortValue)
		if err != nil {
			return "", nil, err
		}
		return "sk_collation = ?", []any{v}, nil
	case keycond.SortLt:
		v, err := enc(kc.SortValue)
		if err != nil {
			return "", nil, err
		}
		return "sk_collation < ?", []any{v}, nil
	case keycond.SortLe:
		v, err := enc(kc.SortValue)
		if err != nil {
			return "", nil, err
		}
		return "sk_collation <= ?", []any{v}, nil
	case keycond.SortGt:
		v, err := enc(kc.SortValue)
		if err != nil {
			return "", nil, err
		}
		return "sk_collation > ?", []any{v}, nil
	case keycond.SortGe:
		v, err := enc(kc.SortValue)
		if err != nil {
			return "", nil, err
		}
		return "sk_collation >= ?", []any{v}, nil
	case keycond.SortBetween:
		lo, err := enc(kc.SortLow)
		if err != nil {
			return "", nil, err
		}
		hi, err := enc(kc.SortHigh)
		if err != nil {
			return "", nil, err
		}
		return "sk_collation BETWEEN ? AND ?", []any{lo, hi}, nil
	case keycond.SortBeginsWith:
		v, err := enc(kc.SortValue)
		if err != nil {
			return "", nil, err
		}
		return "sk_collation >= ? AND sk_collation < ?", []any{v, v + "\xff"}, nil
	default:
		return "1=1", nil, nil
	}
}

func (s *Store) mustFetchBase(t *Table, basePK, baseSK string) map[string]types.AttributeValue {
	item, _, _ := s.fetchItemRowLocked(t, basePK, baseSK)
	return item
}

// projectForIndex restricts an item to what a query against this secondary
// index is allowed to return: the index's own key attributes and the base
// table's primary key attributes are always included (DynamoDB projects the
// base table's keys into every index row regardless of ProjectionType), and
// everything else depends on the index's declared ProjectionType.
func projectForIndex(item map[string]types.AttributeValue, idx *Index, baseKeys KeySchema) (map[string]types.AttributeValue, error) {
	switch idx.ProjectionType {
	case types.ProjectionTypeAll:
		return item, nil
	case types.ProjectionTypeInclude:
		out := map[string]types.AttributeValue{}
		for _, name := range idx.ProjectionAttributes {
			if v, ok := item[name]; ok {
				out[name] = v
			}
		}
		addIndexKeyAttrs(out, item, idx, baseKeys)
		return out, nil
	default: // KEYS_ONLY
		out := map[string]types.AttributeValue{}
		addIndexKeyAttrs(out, item, idx, baseKeys)
		return out, nil
	}
}

func addIndexKeyAttrs(out, item map[string]types.AttributeValue, idx *Index, baseKeys KeySchema) {
	if v, ok := item[idx.Keys.PartitionKey.Name]; ok {
		out[idx.Keys.PartitionKey.Name] = v
	}
	if idx.Keys.SortKey != nil {
		if v, ok := item[idx.Keys.SortKey.Name]; ok {
			out[idx.Keys.SortKey.Name] = v
		}
	}
	if v, ok := item[baseKeys.PartitionKey.Name]; ok {
		out[baseKeys.PartitionKey.Name] = v
	}
	if baseKeys.SortKey != nil {
		if v, ok := item[baseKeys.SortKey.Name]; ok {
			out[baseKeys.SortKey.Name] = v
		}
	}
}
