package commands

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/cobra"

	"github.com/acksell/ddblite/ddbstore"
)

var (
	scanTable      string
	scanIndex      string
	scanFilter     string
	scanProjection string
	scanNames      string
	scanValues     string
	scanLimit      int32
	scanStartKey   string
	scanSegment    int32
	scanTotal      int32
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan every item in a table or index",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, values, err := parseExpressionInputs(scanNames, scanValues)
		if err != nil {
			return err
		}

		params := &dynamodb.ScanInput{
			TableName:                 &scanTable,
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		}
		if scanIndex != "" {
			params.IndexName = &scanIndex
		}
		if scanFilter != "" {
			params.FilterExpression = &scanFilter
		}
		if scanProjection != "" {
			params.ProjectionExpression = &scanProjection
		}
		if scanLimit > 0 {
			params.Limit = &scanLimit
		}
		if scanStartKey != "" {
			key, err := ddbstore.UnmarshalItem([]byte(scanStartKey))
			if err != nil {
				return err
			}
			params.ExclusiveStartKey = key
		}
		if scanTotal > 0 {
			params.Segment = &scanSegment
			params.TotalSegments = &scanTotal
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		out, err := s.Scan(context.Background(), params)
		if err != nil {
			return err
		}
		return printItems(out.Items, out.LastEvaluatedKey)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanTable, "table", "", "table name (required)")
	scanCmd.Flags().StringVar(&scanIndex, "index", "", "secondary index name")
	scanCmd.Flags().StringVar(&scanFilter, "filter", "", "filter expression")
	scanCmd.Flags().StringVar(&scanProjection, "projection", "", "projection expression")
	scanCmd.Flags().StringVar(&scanNames, "names", "", "JSON object of ExpressionAttributeNames")
	scanCmd.Flags().StringVar(&scanValues, "values", "", "JSON object of ExpressionAttributeValues in DynamoDB-JSON")
	scanCmd.Flags().StringVar(&scanStartKey, "start-key", "", "ExclusiveStartKey in DynamoDB-JSON, for pagination")
	scanCmd.Flags().Int32Var(&scanLimit, "limit", 0, "maximum number of items to return")
	scanCmd.Flags().Int32Var(&scanSegment, "segment", 0, "this worker's segment number, for a parallel scan")
	scanCmd.Flags().Int32Var(&scanTotal, "total-segments", 0, "total segment count, for a parallel scan")
	_ = scanCmd.MarkFlagRequired("table")
}
