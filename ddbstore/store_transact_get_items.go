package ddbstore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/ddblite/ddberr"
	"github.com/acksell/ddblite/exprlang/proj"
)

const maxTransactGetItems = 100

// TransactGetItems retrieves up to 100 items, atomically w.r.t. any
// concurrent TransactWriteItems (guaranteed here for free since every
// Store method holds the same mutex for its duration).
func (s *Store) TransactGetItems(ctx context.Context, params *dynamodb.TransactGetItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactGetItemsOutput, error) {
	if params == nil || params.TransactItems == nil {
		return nil, ddberr.Validation("transact items is required")
	}
	if len(params.TransactItems) > maxTransactGetItems {
		return nil, ddberr.Validation("too many items for a single TransactGetItems call (max %d)", maxTransactGetItems)
	}

	s.lock()
	defer s.unlock()

	responses := make([]types.ItemResponse, len(params.TransactItems))
	for i, ti := range params.TransactItems {
		if ti.Get == nil {
			continue
		}
		t, err := s.getTableLocked(strOrEmpty(ti.Get.TableName))
		if err != nil {
			return nil, err
		}
		pk, sk, err := itemKeyCollation(t.Keys, ti.Get.Key)
		if err != nil {
			return nil, ddberr.Validation("%v", err)
		}
		item, found, err := s.fetchItemRowLocked(t, pk, sk)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		if ti.Get.ProjectionExpression != nil && *ti.Get.ProjectionExpression != "" {
			paths, err := proj.Parse(*ti.Get.ProjectionExpression)
			if err != nil {
				return nil, ddberr.Validation("invalid projection expression: %v", err)
			}
			item, err = proj.Project(item, paths, ti.Get.ExpressionAttributeNames)
			if err != nil {
				return nil, err
			}
		}
		responses[i] = types.ItemResponse{Item: item}
		s.capacity.record(t.Name, 1) // transactional reads cost 2x, billed at read-capacity granularity
	}

	return &dynamodb.TransactGetItemsOutput{Responses: responses}, nil
}
