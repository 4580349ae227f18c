package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/spf13/cobra"

	"github.com/acksell/ddblite/ddbstore"
)

var (
	queryTable          string
	queryIndex          string
	queryKeyCondition   string
	queryFilter         string
	queryProjection     string
	queryNames          string
	queryValues         string
	queryLimit          int32
	queryScanForward    bool
	queryStartKey       string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query a table or index by key condition",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, values, err := parseExpressionInputs(queryNames, queryValues)
		if err != nil {
			return err
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		params := &dynamodb.QueryInput{
			TableName:                 &queryTable,
			KeyConditionExpression:    &queryKeyCondition,
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
			ScanIndexForward:          &queryScanForward,
		}
		if queryIndex != "" {
			params.IndexName = &queryIndex
		}
		if queryFilter != "" {
			params.FilterExpression = &queryFilter
		}
		if queryProjection != "" {
			params.ProjectionExpression = &queryProjection
		}
		if queryLimit > 0 {
			params.Limit = &queryLimit
		}
		if queryStartKey != "" {
			key, err := ddbstore.UnmarshalItem([]byte(queryStartKey))
			if err != nil {
				return err
			}
			params.ExclusiveStartKey = key
		}

		out, err := s.Query(context.Background(), params)
		if err != nil {
			return err
		}
		return printItems(out.Items, out.LastEvaluatedKey)
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVar(&queryTable, "table", "", "table name (required)")
	queryCmd.Flags().StringVar(&queryIndex, "index", "", "secondary index name")
	queryCmd.Flags().StringVar(&queryKeyCondition, "key-condition", "", "key condition expression (required)")
	queryCmd.Flags().StringVar(&queryFilter, "filter", "", "filter expression")
	queryCmd.Flags().StringVar(&queryProjection, "projection", "", "projection expression")
	queryCmd.Flags().StringVar(&queryNames, "names", "", "JSON object of ExpressionAttributeNames, e.g. {\"#n\":\"name\"}")
	queryCmd.Flags().StringVar(&queryValues, "values", "", "JSON object of ExpressionAttributeValues in DynamoDB-JSON, e.g. {\":pk\":{\"S\":\"user#1\"}}")
	queryCmd.Flags().StringVar(&queryStartKey, "start-key", "", "ExclusiveStartKey in DynamoDB-JSON, for pagination")
	queryCmd.Flags().Int32Var(&queryLimit, "limit", 0, "maximum number of items to return")
	queryCmd.Flags().BoolVar(&queryScanForward, "forward", true, "ascending sort order (false for descending)")
	_ = queryCmd.MarkFlagRequired("table")
	_ = queryCmd.MarkFlagRequired("key-condition")
}

// parseExpressionInputs decodes the --names/--values flags shared by
// query/scan: --names is a plain string map, --values is DynamoDB-JSON
// decoded with the same codec used for whole items.
func parseExpressionInputs(namesJSON, valuesJSON string) (map[string]string, map[string]types.AttributeValue, error) {
	var names map[string]string
	if namesJSON != "" {
		if err := json.Unmarshal([]byte(namesJSON), &names); err != nil {
			return nil, nil, fmt.Errorf("parse --names: %w", err)
		}
	}
	var values map[string]types.AttributeValue
	if valuesJSON != "" {
		item, err := ddbstore.UnmarshalItem([]byte(valuesJSON))
		if err != nil {
			return nil, nil, fmt.Errorf("parse --values: %w", err)
		}
		values = item
	}
	return names, values, nil
}
