package ddbstore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/ddblite/ddberr"
)

// PutItem creates or replaces an item: read the existing row first so a
// ConditionExpression and ReturnValues=ALL_OLD both see the pre-write state,
// then write and refresh every secondary index entry.
func (s *Store) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if params == nil || params.Item == nil {
		return nil, ddberr.Validation("item is required")
	}

	s.lock()
	defer s.unlock()

	t, err := s.getTableLocked(strOrEmpty(params.TableName))
	if err != nil {
		return nil, err
	}
	pk, sk, err := itemKeyCollation(t.Keys, params.Item)
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

	if err := s.writeItemRowLocked(t, pk, sk, params.Item); err != nil {
		return nil, err
	}
	if !existed {
		t.ItemCount++
	}
	s.capacity.record(t.Name, 1)

	out := &dynamodb.PutItemOutput{}
	if params.ReturnValues == types.ReturnValueAllOld && oldItem != nil {
		out.Attributes = oldItem
	}
	return out, nil
}

// conditionFailure builds the ConditionalCheckFailedException, attaching
// the pre-write item when the caller asked for it via
// ReturnValuesOnConditionCheckFailure=ALL_OLD.
func conditionFailure(onFailure types.ReturnValuesOnConditionCheckFailure, item map[string]types.AttributeValue) error {
	err := &ddberr.ConditionFailedError{Msg: "The conditional request failed"}
	if onFailure == types.ReturnValuesOnConditionCheckFailureAllOld {
		err.Item = item
	}
	return err
}
