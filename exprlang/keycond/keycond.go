// Package keycond parses Query's KeyConditionExpression: a required
// partition-key equality plus an optional sort-key predicate (=, <, <=, >,
// >=, BETWEEN, begins_with). Unlike the general condition/filter language in
// exprlang/cond, key conditions are constrained enough (no AND/OR/NOT, no
// nested paths, only two distinct attribute names) that DynamoDB validates
// them against the table's actual key schema at request time; this package
// returns the parsed predicate rather than a generic boolean AST, and the
// caller (ddbstore's Query) checks it against the table or index key
// schema. The two-clause shape (partition equality + bounded sort-key
// operator set) is hand-rolled rather than built on a parser generator.
package keycond

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/ddblite/exprlang/lexer"
)

// SortOp identifies which sort-key predicate shape was parsed.
type SortOp int

const (
	SortNone SortOp = iota
	SortEq
	SortLt
	SortLe
	SortGt
	SortGe
	SortBetween
	SortBeginsWith
)

// Parsed is a fully resolved key condition: attribute names and values have
// already been substituted via ExpressionAttributeNames/Values, since (unlike
// exprlang/cond) a key condition is evaluated once against the table/index
// schema rather than per-item.
type Parsed struct {
	PartitionKeyName  string
	PartitionKeyValue types.AttributeValue

	SortKeyName string // empty if no sort-key clause was present
	SortOp      SortOp
	SortValue   types.AttributeValue // SortEq, SortLt, SortLe, SortGt, SortGe, SortBeginsWith
	SortLow     types.AttributeValue // SortBetween
	SortHigh    types.AttributeValue // SortBetween
}

// Parse parses expr and resolves its placeholders immediately.
func Parse(expr string, names map[string]string, values map[string]types.AttributeValue) (*Parsed, error) {
	p := &parser{lex: lexer.New(expr), names: names, values: values}
	if err := p.advance(); err != nil {
		return nil, err
	}

	first, err := p.parseClause()
	if err != nil {
		return nil, err
	}
	if first.op != SortEq {
		return nil, fmt.Errorf("keycond: the partition key condition must be an equality test")
	}
	result := &Parsed{PartitionKeyName: first.name, PartitionKeyValue: first.value}

	if lexer.EqualFold(p.tok, "AND") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		second, err := p.parseClause()
		if err != nil {
			return nil, err
		}
		result.SortKeyName = second.name
		result.SortOp = second.op
		result.SortValue = second.value
		result.SortLow = second.low
		result.SortHigh = second.high
	}

	if p.tok.Kind != lexer.EOF {
		return nil, fmt.Errorf("keycond: unexpected trailing token %q", p.tok.Text)
	}
	return result, nil
}

// clause is one parsed "name OP value[, value]" fragment before we know
// whether it's the partition-key or sort-key clause.
type clause struct {
	name      string
	op        SortOp
	value     types.AttributeValue
	low, high types.AttributeValue
}

type parser struct {
	lex    *lexer.Lexer
	tok    lexer.Token
	names  map[string]string
	values map[string]types.AttributeValue
}

func (p *parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) expect(k lexer.Kind) (lexer.Token, error) {
	if p.tok.Kind != k {
		return lexer.Token{}, fmt.Errorf("keycond: expected %s, got %s %q", k, p.tok.Kind, p.tok.Text)
	}
	tok := p.tok
	return tok, p.advance()
}

func (p *parser) resolveName() (string, error) {
	switch p.tok.Kind {
	case lexer.Ident:
		name := p.tok.Text
		return name, p.advance()
	case lexer.NamePlaceholder:
		alias := p.tok.Text
		name, ok := p.names[alias]
		if !ok {
			return "", fmt.Errorf("keycond: expression attribute name %s not defined", alias)
		}
		return name, p.advance()
	default:
		return "", fmt.Errorf("keycond: expected attribute name, got %s %q", p.tok.Kind, p.tok.Text)
	}
}

func (p *parser) resolveValue() (types.AttributeValue, error) {
	if p.tok.Kind != lexer.ValuePlaceholder {
		return nil, fmt.Errorf("keycond: expected :value placeholder, got %s %q", p.tok.Kind, p.tok.Text)
	}
	alias := p.tok.Text
	val, ok := p.values[alias]
	if !ok {
		return nil, fmt.Errorf("keycond: expression attribute value %s not defined", alias)
	}
	return val, p.advance()
}

func (p *parser) parseClause() (clause, error) {
	if lexer.EqualFold(p.tok, "begins_with") {
		if err := p.advance(); err != nil {
			return clause{}, err
		}
		if _, err := p.expect(lexer.LParen); err != nil {
			return clause{}, err
		}
		name, err := p.resolveName()
		if err != nil {
			return clause{}, err
		}
		if _, err := p.expect(lexer.Comma); err != nil {
			return clause{}, err
		}
		val, err := p.resolveValue()
		if err != nil {
			return clause{}, err
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return clause{}, err
		}
		return clause{name: name, op: SortBeginsWith, value: val}, nil
	}

	name, err := p.resolveName()
	if err != nil {
		return clause{}, err
	}

	if lexer.EqualFold(p.tok, "BETWEEN") {
		if err := p.advance(); err != nil {
			return clause{}, err
		}
		low, err := p.resolveValue()
		if err != nil {
			return clause{}, err
		}
		if !lexer.EqualFold(p.tok, "AND") {
			return clause{}, fmt.Errorf("keycond: expected AND in BETWEEN, got %q", p.tok.Text)
		}
		if err := p.advance(); err != nil {
			return clause{}, err
		}
		high, err := p.resolveValue()
		if err != nil {
			return clause{}, err
		}
		return clause{name: name, op: SortBetween, low: low, high: high}, nil
	}

	op, ok := opFromToken(p.tok.Kind)
	if !ok {
		return clause{}, fmt.Errorf("keycond: expected comparison operator, BETWEEN, or begins_with, got %s %q", p.tok.Kind, p.tok.Text)
	}
	if err := p.advance(); err != nil {
		return clause{}, err
	}
	val, err := p.resolveValue()
	if err != nil {
		return clause{}, err
	}
	return clause{name: name, op: op, value: val}, nil
}

func opFromToken(k lexer.Kind) (SortOp, bool) {
	switch k {
	case lexer.Eq:
		return SortEq, true
	case lexer.Lt:
		return SortLt, true
	case lexer.Le:
		return SortLe, true
	case lexer.Gt:
		return SortGt, true
	case lexer.Ge:
		return SortGe, true
	default:
		return SortNone, false
	}
}
