package ddbstore

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/ddblite/collation"
)

// jsonAV is the canonical on-disk/export representation of an
// AttributeValue: the same single-key tagged-object shape
// (`{"S":"..."}`, `{"N":"..."}`, `{"M":{...}}`, ...) DynamoDB's own
// low-level item JSON uses. encoding/json can't
// marshal/unmarshal the types.AttributeValue interface directly (there's
// no way to know which concrete member type to allocate on decode), so
// this is the explicit sum-type codec that bridges the two.
type jsonAV struct {
	S    *string           `json:"S,omitempty"`
	N    *string           `json:"N,omitempty"`
	B    []byte            `json:"B,omitempty"`
	SS   []string          `json:"SS,omitempty"`
	NS   []string          `json:"NS,omitempty"`
	BS   [][]byte          `json:"BS,omitempty"`
	BOOL *bool             `json:"BOOL,omitempty"`
	NULL *bool             `json:"NULL,omitempty"`
	L    []jsonAV          `json:"L,omitempty"`
	M    map[string]jsonAV `json:"M,omitempty"`
}

func toJSONAV(av types.AttributeValue) (jsonAV, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return jsonAV{S: &v.Value}, nil
	case *types.AttributeValueMemberN:
		return jsonAV{N: &v.Value}, nil
	case *types.AttributeValueMemberB:
		return jsonAV{B: v.Value}, nil
	case *types.AttributeValueMemberSS:
		return jsonAV{SS: v.Value}, nil
	case *types.AttributeValueMemberNS:
		return jsonAV{NS: v.Value}, nil
	case *types.AttributeValueMemberBS:
		return jsonAV{BS: v.Value}, nil
	case *types.AttributeValueMemberBOOL:
		return jsonAV{BOOL: &v.Value}, nil
	case *types.AttributeValueMemberNULL:
		return jsonAV{NULL: &v.Value}, nil
	case *types.AttributeValueMemberL:
		list := make([]jsonAV, len(v.Value))
		for i, item := range v.Value {
			enc, err := toJSONAV(item)
			if err != nil {
				return jsonAV{}, err
			}
			list[i] = enc
		}
		return jsonAV{L: list}, nil
	case *types.AttributeValueMemberM:
		m := make(map[string]jsonAV, len(v.Value))
		for k, item := range v.Value {
			enc, err := toJSONAV(item)
			if err != nil {
				return jsonAV{}, err
			}
			m[k] = enc
		}
		return jsonAV{M: m}, nil
	default:
		return jsonAV{}, fmt.Errorf("ddbstore: unsupported attribute value type %T", av)
	}
}

func fromJSONAV(j jsonAV) (types.AttributeValue, error) {
	switch {
	case j.S != nil:
		return &types.AttributeValueMemberS{Value: *j.S}, nil
	case j.N != nil:
		return &types.AttributeValueMemberN{Value: *j.N}, nil
	case j.B != nil:
		return &types.AttributeValueMemberB{Value: j.B}, nil
	case j.SS != nil:
		return &types.AttributeValueMemberSS{Value: j.SS}, nil
	case j.NS != nil:
		return &types.AttributeValueMemberNS{Value: j.NS}, nil
	case j.BS != nil:
		return &types.AttributeValueMemberBS{Value: j.BS}, nil
	case j.BOOL != nil:
		return &types.AttributeValueMemberBOOL{Value: *j.BOOL}, nil
	case j.NULL != nil:
		return &types.AttributeValueMemberNULL{Value: *j.NULL}, nil
	case j.L != nil:
		list := make([]types.AttributeValue, len(j.L))
		for i, item := range j.L {
			dec, err := fromJSONAV(item)
			if err != nil {
				return nil, err
			}
			list[i] = dec
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	case j.M != nil:
		m := make(map[string]types.AttributeValue, len(j.M))
		for k, item := range j.M {
			dec, err := fromJSONAV(item)
			if err != nil {
				return nil, err
			}
			m[k] = dec
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	default:
		// an empty object decodes to NULL, matching an empty M{} being
		// indistinguishable from NULL when every field is omitempty.
		return &types.AttributeValueMemberNULL{Value: true}, nil
	}
}

// MarshalItem encodes an item into its canonical JSON form.
func MarshalItem(item map[string]types.AttributeValue) ([]byte, error) {
	out := make(map[string]jsonAV, len(item))
	for k, v := range item {
		enc, err := toJSONAV(v)
		if err != nil {
			return nil, err
		}
		out[k] = enc
	}
	return json.Marshal(out)
}

// UnmarshalItem decodes an item from its canonical JSON form.
func UnmarshalItem(data []byte) (map[string]types.AttributeValue, error) {
	var raw map[string]jsonAV
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]types.AttributeValue, len(raw))
	for k, v := range raw {
		dec, err := fromJSONAV(v)
		if err != nil {
			return nil, err
		}
		out[k] = dec
	}
	return out, nil
}

// keyRawValue extracts the native Go value collation.Encode expects (a
// string for S, the decimal-string Value for N, or []byte for B) from an
// attribute value, validating it against the expected key kind.
func keyRawValue(av types.AttributeValue, want collation.Kind) (any, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		if want != collation.KindS {
			return nil, fmt.Errorf("ddbstore: expected key kind %c, got S", want)
		}
		return v.Value, nil
	case *types.AttributeValueMemberN:
		if want != collation.KindN {
			return nil, fmt.Errorf("ddbstore: expected key kind %c, got N", want)
		}
		return v.Value, nil
	case *types.AttributeValueMemberB:
		if want != collation.KindB {
			return nil, fmt.Errorf("ddbstore: expected key kind %c, got B", want)
		}
		return v.Value, nil
	default:
		return nil, fmt.Errorf("ddbstore: key attributes must be S, N, or B, got %T", av)
	}
}

func collationKind(s string) collation.Kind {
	switch s {
	case "N":
		return collation.KindN
	case "B":
		return collation.KindB
	default:
		return collation.KindS
	}
}

func parseProjectionType(s string) types.ProjectionType {
	switch s {
	case string(types.ProjectionTypeAll):
		return types.ProjectionTypeAll
	case string(types.ProjectionTypeInclude):
		return types.ProjectionTypeInclude
	default:
		return types.ProjectionTypeKeysOnly
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func joinCSV(items []string) string {
	sorted := append([]string(nil), items...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func encodeBinaryKeyForDisplay(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// encodeKeyValue wraps collation.Encode with ddbstore's own error context.
func encodeKeyValue(kind collation.Kind, raw any) (string, error) {
	v, err := collation.Encode(kind, raw)
	if err != nil {
		return "", fmt.Errorf("ddbstore: %w", err)
	}
	return v, nil
}
