package ddbstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ExportTableToPointInTime(t *testing.T) {
	t.Run("writes manifest and data shard", func(t *testing.T) {
		store := newTestStore(t, singleTableDesign())
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			_, err := store.PutItem(ctx, &dynamodb.PutItemInput{
				TableName: ptrStr("test-table"),
				Item: map[string]types.AttributeValue{
					"pk": &types.AttributeValueMemberS{Value: "pk"},
					"sk": &types.AttributeValueMemberS{Value: fmt.Sprintf("%d", i)},
				},
			})
			require.NoError(t, err)
		}

		outDir := t.TempDir()
		desc, err := store.ExportTableToPointInTime("test-table", outDir)
		require.NoError(t, err)
		assert.Equal(t, ExportCompleted, desc.Status)
		assert.Equal(t, int64(3), desc.ItemCount)
		assert.NotEmpty(t, desc.ExportID)

		manifestPath := filepath.Join(desc.OutputDir, "manifest-summary.json")
		_, err = os.Stat(manifestPath)
		require.NoError(t, err)

		shardPath := filepath.Join(desc.OutputDir, "data", "0000.json")
		data, err := os.ReadFile(shardPath)
		require.NoError(t, err)
		assert.NotEmpty(t, data)
	})

	t.Run("unknown table errors", func(t *testing.T) {
		store := newTestStore(t)
		_, err := store.ExportTableToPointInTime("missing", t.TempDir())
		require.Error(t, err)
	})

	t.Run("excludes lazily expired items from the snapshot", func(t *testing.T) {
		store := newTestStore(t, singleTableDesign())
		ctx := context.Background()

		_, err := store.UpdateTimeToLive("test-table", "expires_at")
		require.NoError(t, err)

		_, err = store.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: ptrStr("test-table"),
			Item: map[string]types.AttributeValue{
				"pk":         &types.AttributeValueMemberS{Value: "live"},
				"sk":         &types.AttributeValueMemberS{Value: "item"},
				"expires_at": &types.AttributeValueMemberN{Value: "9999999999"},
			},
		})
		require.NoError(t, err)

		_, err = store.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: ptrStr("test-table"),
			Item: map[string]types.AttributeValue{
				"pk":         &types.AttributeValueMemberS{Value: "expired"},
				"sk":         &types.AttributeValueMemberS{Value: "item"},
				"expires_at": &types.AttributeValueMemberN{Value: "1"},
			},
		})
		require.NoError(t, err)

		desc, err := store.ExportTableToPointInTime("test-table", t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, int64(1), desc.ItemCount)
	})
}

func TestStore_DescribeExport(t *testing.T) {
	store := newTestStore(t, singleTableDesign())
	ctx := context.Background()

	_, err := store.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: ptrStr("test-table"),
		Item: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: "a"},
			"sk": &types.AttributeValueMemberS{Value: "b"},
		},
	})
	require.NoError(t, err)

	desc, err := store.ExportTableToPointInTime("test-table", t.TempDir())
	require.NoError(t, err)

	got, err := store.DescribeExport(desc.ExportID)
	require.NoError(t, err)
	assert.Equal(t, desc.ExportID, got.ExportID)
	assert.Equal(t, ExportCompleted, got.Status)

	_, err = store.DescribeExport("missing-export-id")
	require.Error(t, err)
}
