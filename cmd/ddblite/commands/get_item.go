package commands

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/spf13/cobra"

	"github.com/acksell/ddblite/ddbstore"
)

var (
	getItemTable string
	getItemPK    string
	getItemSK    string
)

var getItemCmd = &cobra.Command{
	Use:   "get-item",
	Short: "Get an item by key and print it as DynamoDB-JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		t, err := s.DescribeTable(getItemTable)
		if err != nil {
			return err
		}
		key, err := keyFromFlags(t, getItemPK, getItemSK)
		if err != nil {
			return err
		}

		out, err := s.GetItem(context.Background(), &dynamodb.GetItemInput{TableName: &getItemTable, Key: key})
		if err != nil {
			return err
		}
		if out.Item == nil {
			fmt.Println("null")
			return nil
		}
		body, err := ddbstore.MarshalItem(out.Item)
		if err != nil {
			return err
		}
		fmt.Println(string(body))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getItemCmd)
	getItemCmd.Flags().StringVar(&getItemTable, "table", "", "table name (required)")
	getItemCmd.Flags().StringVar(&getItemPK, "pk", "", "partition key value (required)")
	getItemCmd.Flags().StringVar(&getItemSK, "sk", "", "sort key value, if the table has one")
	_ = getItemCmd.MarkFlagRequired("table")
	_ = getItemCmd.MarkFlagRequired("pk")
}

// keyFromFlags resolves the raw --pk/--sk strings against a table's actual
// key schema (names and kinds), so callers only ever type the values.
func keyFromFlags(t *ddbstore.Table, pkVal, skVal string) (map[string]types.AttributeValue, error) {
	skName, skKind := "", ""
	if t.Keys.SortKey != nil {
		skName = t.Keys.SortKey.Name
		skKind = string(t.Keys.SortKey.Kind)
	}
	return buildKey(t.Keys.PartitionKey.Name, string(t.Keys.PartitionKey.Kind), pkVal, skName, skKind, skVal)
}
