package ddbstore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/ddblite/ddberr"
	"github.com/acksell/ddblite/exprlang/update"
)

// UpdateItem applies an UpdateExpression to an item, creating it if it
// doesn't exist — UpdateItem is an upsert unless the condition expression
// says otherwise. Key attributes can never be
// targeted by SET/REMOVE/ADD/DELETE; exprlang/update.Apply enforces that
// given the table's key attribute names.
func (s *Store) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if params == nil || params.Key == nil {
		return nil, ddberr.Validation("key is required")
	}
	if params.UpdateExpression == nil || *params.UpdateExpression == "" {
		return nil, ddberr.Validation("update expression is required")
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

	upd, err := update.Parse(*params.UpdateExpression)
	if err != nil {
		return nil, ddberr.Validation("invalid update expression: %v", err)
	}

	newItem := copyItem(oldItem)
	for k, v := range params.Key {
		newItem[k] = v
	}
	env := &update.Env{Names: params.ExpressionAttributeNames, Values: params.ExpressionAttributeValues}
	if err := update.Apply(newItem, upd, env, t.keyAttrNames()); err != nil {
		return nil, ddberr.Validation("%v", err)
	}

	if err := s.writeItemRowLocked(t, pk, sk, newItem); err != nil {
		return nil, err
	}
	if !existed {
		t.ItemCount++
	}
	s.capacity.record(t.Name, 1)

	touched := touchedAttributeNames(upd, params.ExpressionAttributeNames)
	out := &dynamodb.UpdateItemOutput{}
	switch params.ReturnValues {
	case types.ReturnValueAllOld:
		out.Attributes = oldItem
	case types.ReturnValueAllNew:
		out.Attributes = newItem
	case types.ReturnValueUpdatedOld:
		out.Attributes = subsetOf(oldItem, touched)
	case types.ReturnValueUpdatedNew:
		out.Attributes = subsetOf(newItem, touched)
	}
	return out, nil
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func subsetOf(item map[string]types.AttributeValue, names map[string]bool) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(names))
	for name := range names {
		if v, ok := item[name]; ok {
			out[name] = v
		}
	}
	return out
}

// touchedAttributeNames collects the top-level attribute each update clause
// targets, resolving ExpressionAttributeNames aliases, for the
// UPDATED_OLD/UPDATED_NEW ReturnValues variants.
func touchedAttributeNames(u *update.Update, names map[string]string) map[string]bool {
	out := map[string]bool{}
	add := func(p *update.Path) {
		if p == nil || len(p.Parts) == 0 {
			return
		}
		head := p.Parts[0]
		if head.Alias != "" {
			if n, ok := names[head.Alias]; ok {
				out[n] = true
				return
			}
			out[head.Alias] = true
			return
		}
		out[head.Name] = true
	}
	for i := range u.Sets {
		add(u.Sets[i].Target)
	}
	for i := range u.Removes {
		add(u.Removes[i].Target)
	}
	for i := range u.Adds {
		add(u.Adds[i].Target)
	}
	for i := range u.Deletes {
		add(u.Deletes[i].Target)
	}
	return out
}
