package ddbstore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/ddblite/ddberr"
	"github.com/acksell/ddblite/exprlang/proj"
)

const maxBatchGetKeys = 100

// BatchGetItem fetches up to 100 items across one or more tables in a
// single call. DynamoDB's real BatchGetItem can return UnprocessedKeys
// under throughput pressure; this store never throttles, so
// UnprocessedKeys is only ever populated when a key for that table was
// malformed. A malformed projection expression fails the whole call with a
// validation error instead.
func (s *Store) BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	if params == nil || params.RequestItems == nil {
		return nil, ddberr.Validation("request items is required")
	}

	total := 0
	for _, kaw := range params.RequestItems {
		total += len(kaw.Keys)
	}
	if total > maxBatchGetKeys {
		return nil, ddberr.Validation("too many items requested for a single BatchGetItem call (max %d)", maxBatchGetKeys)
	}

	s.lock()
	defer s.unlock()

	out := &dynamodb.BatchGetItemOutput{
		Responses:      map[string][]map[string]types.AttributeValue{},
		UnprocessedKeys: map[string]types.KeysAndAttributes{},
	}

	for tableName, kaw := range params.RequestItems {
		t, err := s.getTableLocked(tableName)
		if err != nil {
			return nil, err
		}

		var paths []proj.Path
		if kaw.ProjectionExpression != nil && *kaw.ProjectionExpression != "" {
			paths, err = proj.Parse(*kaw.ProjectionExpression)
			if err != nil {
				return nil, ddberr.Validation("invalid projection expression for table %q: %v", tableName, err)
			}
		}

		for _, key := range kaw.Keys {
			pk, sk, err := itemKeyCollation(t.Keys, key)
			if err != nil {
				unproc := out.UnprocessedKeys[tableName]
				unproc.Keys = append(unproc.Keys, key)
				unproc.AttributesToGet = kaw.AttributesToGet
				unproc.ConsistentRead = kaw.ConsistentRead
				unproc.ExpressionAttributeNames = kaw.ExpressionAttributeNames
				unproc.ProjectionExpression = kaw.ProjectionExpression
				out.UnprocessedKeys[tableName] = unproc
				continue
			}
			item, found, err := s.fetchItemRowLocked(t, pk, sk)
			if err != nil {
				return nil, err
			}
			if !found {
				continue
			}
			if paths != nil {
				item, err = proj.Project(item, paths, kaw.ExpressionAttributeNames)
				if err != nil {
					return nil, err
				}
			}
			out.Responses[tableName] = append(out.Responses[tableName], item)
			s.capacity.record(tableName, 0.5)
		}
	}

	for name, kaw := range out.UnprocessedKeys {
		if len(kaw.Keys) == 0 {
			delete(out.UnprocessedKeys, name)
		}
	}
	return out, nil
}
