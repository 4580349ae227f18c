package commands

import (
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"gopkg.in/yaml.v3"

	"github.com/acksell/ddblite/collation"
	"github.com/acksell/ddblite/ddbstore"
)

// tableSchema is the YAML shape accepted by create-table: a general
// "indexes" list rather than a separate "gsis" field, since this store
// treats GSIs and LSIs the same way at the catalog level.
type tableSchema struct {
	Name         string      `yaml:"name"`
	PartitionKey keyDefYAML  `yaml:"partitionKey"`
	SortKey      *keyDefYAML `yaml:"sortKey,omitempty"`
	TTLAttribute string      `yaml:"ttlAttribute,omitempty"`
	Indexes      []indexYAML `yaml:"indexes,omitempty"`
	Tags         map[string]string `yaml:"tags,omitempty"`
}

type keyDefYAML struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"` // "S", "N", or "B"
}

type indexYAML struct {
	Name                 string      `yaml:"name"`
	Kind                 string      `yaml:"kind"` // "GSI" or "LSI"
	PartitionKey         keyDefYAML  `yaml:"partitionKey"`
	SortKey              *keyDefYAML `yaml:"sortKey,omitempty"`
	ProjectionType       string      `yaml:"projectionType,omitempty"` // ALL | KEYS_ONLY | INCLUDE
	ProjectionAttributes []string    `yaml:"projectionAttributes,omitempty"`
}

func loadTableSchema(path string) (*tableSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	var ts tableSchema
	if err := yaml.Unmarshal(data, &ts); err != nil {
		return nil, fmt.Errorf("parse schema file: %w", err)
	}
	if ts.Name == "" {
		return nil, fmt.Errorf("schema file: table name is required")
	}
	return &ts, nil
}

func (ts *tableSchema) toCreateTableInput() (ddbstore.CreateTableInput, error) {
	keys, err := ts.keySchema()
	if err != nil {
		return ddbstore.CreateTableInput{}, err
	}

	in := ddbstore.CreateTableInput{
		Name: ts.Name,
		Keys: keys,
		Tags: ts.Tags,
	}
	for _, idx := range ts.Indexes {
		idxKeys := ddbstore.KeySchema{PartitionKey: toKeyDef(idx.PartitionKey)}
		if idx.SortKey != nil {
			sk := toKeyDef(*idx.SortKey)
			idxKeys.SortKey = &sk
		}
		kind := ddbstore.IndexKindGSI
		if idx.Kind == "LSI" {
			kind = ddbstore.IndexKindLSI
		}
		in.Indexes = append(in.Indexes, ddbstore.Index{
			Name:                 idx.Name,
			Kind:                 kind,
			Keys:                 idxKeys,
			ProjectionType:       projectionTypeOf(idx.ProjectionType),
			ProjectionAttributes: idx.ProjectionAttributes,
		})
	}
	return in, nil
}

func (ts *tableSchema) keySchema() (ddbstore.KeySchema, error) {
	if ts.PartitionKey.Name == "" {
		return ddbstore.KeySchema{}, fmt.Errorf("schema file: partitionKey.name is required")
	}
	keys := ddbstore.KeySchema{PartitionKey: toKeyDef(ts.PartitionKey)}
	if ts.SortKey != nil {
		sk := toKeyDef(*ts.SortKey)
		keys.SortKey = &sk
	}
	return keys, nil
}

func toKeyDef(k keyDefYAML) ddbstore.KeyDef {
	kind := collation.KindS
	switch k.Kind {
	case "N":
		kind = collation.KindN
	case "B":
		kind = collation.KindB
	}
	return ddbstore.KeyDef{Name: k.Name, Kind: kind}
}

func projectionTypeOf(s string) types.ProjectionType {
	switch s {
	case "KEYS_ONLY":
		return types.ProjectionTypeKeysOnly
	case "INCLUDE":
		return types.ProjectionTypeInclude
	default:
		return types.ProjectionTypeAll
	}
}
