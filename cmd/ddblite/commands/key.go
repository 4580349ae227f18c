package commands

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// parseKeyLiteral builds a single key attribute's AttributeValue from a
// command-line string, using attributevalue.Marshal against whatever
// Go-native value the --pk/--sk flag kind says it should be.
func parseKeyLiteral(kind, raw string) (types.AttributeValue, error) {
	switch kind {
	case "N":
		return attributevalue.Marshal(json.Number(raw))
	case "B":
		b, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("decode base64 binary key: %w", err)
		}
		return attributevalue.Marshal(b)
	default:
		return attributevalue.Marshal(raw)
	}
}

// buildKey assembles a Key map from the partition/sort flags given to
// get-item/delete-item.
func buildKey(pkName, pkKind, pkVal, skName, skKind, skVal string) (map[string]types.AttributeValue, error) {
	key := map[string]types.AttributeValue{}
	pk, err := parseKeyLiteral(pkKind, pkVal)
	if err != nil {
		return nil, fmt.Errorf("partition key: %w", err)
	}
	key[pkName] = pk
	if skName != "" {
		sk, err := parseKeyLiteral(skKind, skVal)
		if err != nil {
			return nil, fmt.Errorf("sort key: %w", err)
		}
		key[skName] = sk
	}
	return key, nil
}
