package commands

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/cobra"
)

var (
	deleteItemTable string
	deleteItemPK    string
	deleteItemSK    string
)

var deleteItemCmd = &cobra.Command{
	Use:   "delete-item",
	Short: "Delete an item by key",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		t, err := s.DescribeTable(deleteItemTable)
		if err != nil {
			return err
		}
		key, err := keyFromFlags(t, deleteItemPK, deleteItemSK)
		if err != nil {
			return err
		}

		if _, err := s.DeleteItem(context.Background(), &dynamodb.DeleteItemInput{TableName: &deleteItemTable, Key: key}); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteItemCmd)
	deleteItemCmd.Flags().StringVar(&deleteItemTable, "table", "", "table name (required)")
	deleteItemCmd.Flags().StringVar(&deleteItemPK, "pk", "", "partition key value (required)")
	deleteItemCmd.Flags().StringVar(&deleteItemSK, "sk", "", "sort key value, if the table has one")
	_ = deleteItemCmd.MarkFlagRequired("table")
	_ = deleteItemCmd.MarkFlagRequired("pk")
}
