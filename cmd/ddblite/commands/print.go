package commands

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/ddblite/ddbstore"
)

// printItems prints one DynamoDB-JSON item per line, followed by the
// LastEvaluatedKey (if any) as a pagination hint — shared by query and scan.
func printItems(items []map[string]types.AttributeValue, lastKey map[string]types.AttributeValue) error {
	for _, item := range items {
		body, err := ddbstore.MarshalItem(item)
		if err != nil {
			return err
		}
		fmt.Println(string(body))
	}
	fmt.Printf("# %d item(s)\n", len(items))
	if lastKey != nil {
		body, err := ddbstore.MarshalItem(lastKey)
		if err != nil {
			return err
		}
		fmt.Printf("# more results; pass --start-key '%s' to continue\n", string(body))
	}
	return nil
}
