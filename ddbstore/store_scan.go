package ddbstore

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/ddblite/ddberr"
	"github.com/acksell/ddblite/exprlang/proj"
)

// Scan walks every item in a table (or index), optionally restricted to one
// segment of a parallel scan. Segmentation hashes pk_collation with FNV-1a
// and routes by hash%TotalSegments — the simplest deterministic partitioning
// that gives each segment a stable, repeatable slice of the keyspace.
func (s *Store) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if params == nil {
		return nil, ddberr.Validation("params is required")
	}

	s.lock()
	defer s.unlock()

	t, err := s.getTableLocked(strOrEmpty(params.TableName))
	if err != nil {
		return nil, err
	}
	_, idx, physTable, err := s.resolveQueryTarget(t, params.IndexName)
	if err != nil {
		return nil, err
	}

	cols := "pk_collation, sk_collation"
	if idx != nil {
		cols += ", base_pk_collation, base_sk_collation"
	}
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY pk_collation, sk_collation`, cols, physTable)

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totalSegments := 1
	segment := 0
	if params.TotalSegments != nil && *params.TotalSegments > 0 {
		totalSegments = int(*params.TotalSegments)
	}
	if params.Segment != nil {
		segment = int(*params.Segment)
	}

	exclusivePK, exclusiveSK := "", ""
	if params.ExclusiveStartKey != nil {
		keys, _, _, err := s.resolveQueryTarget(t, params.IndexName)
		if err != nil {
			return nil, err
		}
		exclusivePK, exclusiveSK, err = keys.encodeStartKey(params.ExclusiveStartKey)
		if err != nil {
			return nil, ddberr.Validation("invalid ExclusiveStartKey: %v", err)
		}
	}

	limit := 0
	if params.Limit != nil {
		limit = int(*params.Limit)
	}

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
		if totalSegments > 1 && segmentOf(r.pk, totalSegments) != segment {
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

	var paths []proj.Path
	if params.ProjectionExpression != nil && *params.ProjectionExpression != "" {
		paths, err = proj.Parse(*params.ProjectionExpression)
		if err != nil {
			return nil, ddberr.Validation("invalid projection expression: %v", err)
		}
	}

	out := &dynamodb.ScanOutput{}
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
		ok, err := evalCondition(params.FilterExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, item)
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

func segmentOf(pkCollation string, totalSegments int) int {
	h := fnv.New32a()
	h.Write([]byte(pkCollation))
	return int(h.Sum32() % uint32(totalSegments))
}
