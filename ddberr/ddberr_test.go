package ddberr

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
)

func TestNotFound(t *testing.T) {
	err := NotFound("table %q does not exist", "orders")
	assert.True(t, errors.Is(err, ErrResourceNotFound))
	assert.Equal(t, `table "orders" does not exist`, err.Error())
}

func TestInUse(t *testing.T) {
	err := InUse("table %q is being deleted", "orders")
	assert.True(t, errors.Is(err, ErrResourceInUse))
	assert.False(t, errors.Is(err, ErrResourceNotFound))
}

func TestValidation(t *testing.T) {
	err := Validation("missing required parameter %s", "TableName")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestInternal(t *testing.T) {
	err := Internal("unexpected state")
	assert.True(t, errors.Is(err, ErrInternal))
	assert.Equal(t, "unexpected state", err.Error())
}

func TestWrap_NoArgsLeavesFormatVerbsIntact(t *testing.T) {
	err := Validation("100% full")
	assert.Equal(t, "100% full", err.Error())
}

func TestConditionFailedError(t *testing.T) {
	item := map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: "a"},
	}
	err := &ConditionFailedError{Msg: "condition failed", Item: item}
	assert.True(t, errors.Is(err, ErrConditionFailed))
	assert.Equal(t, "condition failed", err.Error())

	var target *ConditionFailedError
	ok := errors.As(err, &target)
	assert.True(t, ok)
	assert.Equal(t, item, target.Item)
}

func TestNewConditionFailed(t *testing.T) {
	err := NewConditionFailed("the conditional request failed")
	assert.True(t, errors.Is(err, ErrConditionFailed))

	var target *ConditionFailedError
	assert.True(t, errors.As(err, &target))
	assert.Nil(t, target.Item)
}

func TestNewTransactionCanceled(t *testing.T) {
	reasons := []CancellationReason{
		{Code: "None"},
		{Code: "ConditionalCheckFailed", Item: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: "b"},
		}},
	}
	err := NewTransactionCanceled(reasons)
	assert.True(t, errors.Is(err, ErrTransactionCancel))

	var target *TransactionCanceledError
	ok := errors.As(err, &target)
	assert.True(t, ok)
	assert.Len(t, target.Reasons, 2)
	assert.Equal(t, "None", target.Reasons[0].Code)
	assert.Equal(t, "ConditionalCheckFailed", target.Reasons[1].Code)
	assert.NotNil(t, target.Reasons[1].Item)
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrResourceNotFound, ErrResourceInUse, ErrValidation,
		ErrConditionFailed, ErrTransactionCancel, ErrInternal,
		ErrDisposed, ErrCancelled,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b), "sentinel %d should not match sentinel %d", i, j)
		}
	}
}
