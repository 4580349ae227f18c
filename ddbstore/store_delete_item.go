package ddbstore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/ddblite/ddberr"
)

// DeleteItem removes one item by key, honoring an optional
// ConditionExpression evaluated against the pre-delete item.
func (s *Store) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
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

	oldItem, existed, err := s.fetchItemRowLocked(t, pk, sk)
	if err != nil {
		return nil, err
	}

	ok, err := evalCondition(params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, oldItem)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, conditionFailure(params.ReturnValuesOnConditionCheckFailure, oldItem)
	}

	if existed {
		if err := s.deleteItemAndIndexEntries(t.Name, t, pk, sk); err != nil {
			return nil, err
		}
		t.ItemCount--
	}
	s.capacity.record(t.Name, 1)

	out := &dynamodb.DeleteItemOutput{}
	if params.ReturnValues == types.ReturnValueAllOld && oldItem != nil {
		out.Attributes = oldItem
	}
	return out, nil
}
