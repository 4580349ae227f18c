package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/cobra"

	"github.com/acksell/ddblite/ddbstore"
)

var (
	putItemTable     string
	putItemCondition string
)

var putItemCmd = &cobra.Command{
	Use:   "put-item",
	Short: "Put an item, read as DynamoDB-JSON from stdin",
	Long: `put-item reads a single item from stdin in DynamoDB's own low-level
JSON shape, e.g.:

  {"pk": {"S": "user#1"}, "balance": {"N": "42"}, "tags": {"SS": ["a", "b"]}}`,
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		item, err := ddbstore.UnmarshalItem(body)
		if err != nil {
			return fmt.Errorf("parse item JSON: %w", err)
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		params := &dynamodb.PutItemInput{TableName: &putItemTable, Item: item}
		if putItemCondition != "" {
			params.ConditionExpression = &putItemCondition
		}
		if _, err := s.PutItem(context.Background(), params); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(putItemCmd)
	putItemCmd.Flags().StringVar(&putItemTable, "table", "", "table name (required)")
	putItemCmd.Flags().StringVar(&putItemCondition, "condition", "", "optional condition expression")
	_ = putItemCmd.MarkFlagRequired("table")
}
