package ddbstore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/acksell/ddblite/ddberr"
	"github.com/acksell/ddblite/exprlang/proj"
)

// GetItem retrieves one item by key, applying a ProjectionExpression if
// given. Consistent and eventually-consistent reads are identical here —
// there's one writer and no replica lag to model.
func (s *Store) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if params == nil || params.Key == nil {
		return nil, ddberr.Validation("key is required")
	}

	s.lock()
	defer s.unlock()

	t, err := s.getTableLocked(strOrEmpty(params.TableName))
	if err != nil {
		return nil, err
	}
	pk, sk, err := itemKeyCollation(t.Keys, params.Key)
	if err != nil {
		return nil, ddberr.Validation("%v", err)
	}

	item, found, err := s.fetchItemRowLocked(t, pk, sk)
	if err != nil {
		return nil, err
	}
	s.capacity.record(t.Name, 0.5)
	if !found {
		return &dynamodb.GetItemOutput{}, nil
	}

	if params.ProjectionExpression != nil && *params.ProjectionExpression != "" {
		paths, err := proj.Parse(*params.ProjectionExpression)
		if err != nil {
			return nil, ddberr.Validation("invalid projection expression: %v", err)
		}
		item, err = proj.Project(item, paths, params.ExpressionAttributeNames)
		if err != nil {
			return nil, err
		}
	}

	return &dynamodb.GetItemOutput{Item: item}, nil
}
