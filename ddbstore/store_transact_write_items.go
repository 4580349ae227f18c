package ddbstore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/ddblite/ddberr"
	"github.com/acksell/ddblite/exprlang/update"
)

const maxTransactItems = 100

// TransactWriteItems applies up to 100 Put/Update/Delete/ConditionCheck
// actions atomically: every condition in the batch is evaluated first — a
// single failure cancels the whole transaction and reports every action's
// outcome via CancellationReasons — and only if all pass are the writes
// actually applied. This is a two-pass structure: validate then commit.
func (s *Store) TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	if params == nil || params.TransactItems == nil {
		return nil, ddberr.Validation("transact items is required")
	}
	if len(params.TransactItems) > maxTransactItems {
		return nil, ddberr.Validation("too many actions for a single transaction (max %d)", maxTransactItems)
	}

	token := strOrEmpty(params.ClientRequestToken)
	if cached, cachedErr, ok := s.idemp.lookup(token); ok {
		if cachedErr != nil {
			return nil, cachedErr
		}
		return cached.(*dynamodb.TransactWriteItemsOutput), nil
	}

	s.lock()
	defer s.unlock()

	type plan struct {
		table   *Table
		pk, sk  string
		newItem map[string]types.AttributeValue // nil for Delete
		delete  bool
		existed bool // whether the key already had a row, checked during validation
	}

	reasons := make([]ddberr.CancellationReason, len(params.TransactItems))
	plans := make([]plan, len(params.TransactItems))
	failed := false
	seenTargets := map[string]bool{}
	markTarget := func(tableName, pk, sk string) error {
		id := tableName + "|" + pk + "|" + sk
		if seenTargets[id] {
			return ddberr.Validation("transaction contains multiple operations against the same item")
		}
		seenTargets[id] = true
		return nil
	}

	for i, action := range params.TransactItems {
		switch {
		case action.Put != nil:
			t, err := s.getTableLocked(strOrEmpty(action.Put.TableName))
			if err != nil {
				return nil, err
			}
			pk, sk, err := itemKeyCollation(t.Keys, action.Put.Item)
			if err != nil {
				return nil, ddberr.Validation("%v", err)
			}
			if err := markTarget(t.Name, pk, sk); err != nil {
				return nil, err
			}
			old, _, err := s.fetchItemRowLocked(t, pk, sk)
			if err != nil {
				return nil, err
			}
			ok, err := evalCondition(action.Put.ConditionExpression, action.Put.ExpressionAttributeNames, action.Put.ExpressionAttributeValues, old)
			if err != nil {
				return nil, err
			}
			reasons[i] = reasonFor(ok, action.Put.ReturnValuesOnConditionCheckFailure, old)
			failed = failed || !ok
			plans[i] = plan{table: t, pk: pk, sk: sk, newItem: action.Put.Item}

		case action.Delete != nil:
			t, err := s.getTableLocked(strOrEmpty(action.Delete.TableName))
			if err != nil {
				return nil, err
			}
			pk, sk, err := itemKeyCollation(t.Keys, action.Delete.Key)
			if err != nil {
				return nil, ddberr.Validation("%v", err)
			}
			if err := markTarget(t.Name, pk, sk); err != nil {
				return nil, err
			}
			old, existed, err := s.fetchItemRowLocked(t, pk, sk)
			if err != nil {
				return nil, err
			}
			ok, err := evalCondition(action.Delete.ConditionExpression, action.Delete.ExpressionAttributeNames, action.Delete.ExpressionAttributeValues, old)
			if err != nil {
				return nil, err
			}
			reasons[i] = reasonFor(ok, action.Delete.ReturnValuesOnConditionCheckFailure, old)
			failed = failed || !ok
			plans[i] = plan{table: t, pk: pk, sk: sk, delete: true, existed: existed}

		case action.Update != nil:
			t, err := s.getTableLocked(strOrEmpty(action.Update.TableName))
			if err != nil {
				return nil, err
			}
			pk, sk, err := itemKeyCollation(t.Keys, action.Update.Key)
			if err != nil {
				return nil, ddberr.Validation("%v", err)
			}
			if err := markTarget(t.Name, pk, sk); err != nil {
				return nil, err
			}
			old, _, err := s.fetchItemRowLocked(t, pk, sk)
			if err != nil {
				return nil, err
			}
			ok, err := evalCondition(action.Update.ConditionExpression, action.Update.ExpressionAttributeNames, action.Update.ExpressionAttributeValues, old)
			if err != nil {
				return nil, err
			}
			reasons[i] = reasonFor(ok, action.Update.ReturnValuesOnConditionCheckFailure, old)
			if !ok {
				failed = true
				continue
			}
			upd, err := update.Parse(strOrEmpty(action.Update.UpdateExpression))
			if err != nil {
				return nil, ddberr.Validation("invalid update expression: %v", err)
			}
			newItem := copyItem(old)
			for k, v := range action.Update.Key {
				newItem[k] = v
			}
			env := &update.Env{Names: action.Update.ExpressionAttributeNames, Values: action.Update.ExpressionAttributeValues}
			if err := update.Apply(newItem, upd, env, t.keyAttrNames()); err != nil {
				return nil, ddberr.Validation("%v", err)
			}
			plans[i] = plan{table: t, pk: pk, sk: sk, newItem: newItem}

		case action.ConditionCheck != nil:
			t, err := s.getTableLocked(strOrEmpty(action.ConditionCheck.TableName))
			if err != nil {
				return nil, err
			}
			pk, sk, err := itemKeyCollation(t.Keys, action.ConditionCheck.Key)
			if err != nil {
				return nil, ddberr.Validation("%v", err)
			}
			if err := markTarget(t.Name, pk, sk); err != nil {
				return nil, err
			}
			old, _, err := s.fetchItemRowLocked(t, pk, sk)
			if err != nil {
				return nil, err
			}
			ok, err := evalCondition(action.ConditionCheck.ConditionExpression, action.ConditionCheck.ExpressionAttributeNames, action.ConditionCheck.ExpressionAttributeValues, old)
			if err != nil {
				return nil, err
			}
			reasons[i] = reasonFor(ok, action.ConditionCheck.ReturnValuesOnConditionCheckFailure, old)
			failed = failed || !ok
			plans[i] = plan{table: nil} // nothing to apply
		}
	}

	if failed {
		err := ddberr.NewTransactionCanceled(reasons)
		s.idemp.record(token, nil, err)
		return nil, err
	}

	for _, p := range plans {
		if p.table == nil {
			continue
		}
		if p.delete {
			if p.existed {
				if err := s.deleteItemAndIndexEntries(p.table.Name, p.table, p.pk, p.sk); err != nil {
					return nil, err
				}
				p.table.ItemCount--
			}
		} else {
			_, existed, err := s.fetchItemRowLocked(p.table, p.pk, p.sk)
			if err != nil {
				return nil, err
			}
			if err := s.writeItemRowLocked(p.table, p.pk, p.sk, p.newItem); err != nil {
				return nil, err
			}
			if !existed {
				p.table.ItemCount++
			}
		}
		s.capacity.record(p.table.Name, 2) // transactional writes cost 2x
	}

	out := &dynamodb.TransactWriteItemsOutput{}
	s.idemp.record(token, out, nil)
	return out, nil
}

func reasonFor(ok bool, onFailure types.ReturnValuesOnConditionCheckFailure, item map[string]types.AttributeValue) ddberr.CancellationReason {
	if ok {
		return ddberr.CancellationReason{Code: "None"}
	}
	r := ddberr.CancellationReason{Code: "ConditionalCheckFailed"}
	if onFailure == types.ReturnValuesOnConditionCheckFailureAllOld {
		r.Item = item
	}
	return r
}

