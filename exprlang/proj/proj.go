// Package proj parses ProjectionExpression strings: a comma-separated list
// of document paths, used by the ProjectionExpression of GetItem, Query,
// Scan, BatchGetItem and TransactGetItems. A secondary index's INCLUDE
// projection does not go through this package. Unlike exprlang/cond
// and exprlang/update, there is no
// operator grammar here — it's purely a list of paths — so this package
// stays small and reuses the shared lexer only for path tokenization.
package proj

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/ddblite/exprlang/lexer"
)

// Path is one projected document path, e.g. "a.b[2].#c".
type Path struct {
	Parts []PathPart
}

type PathPart struct {
	Name  string
	Alias string
	Index *int
}

// Parse parses a comma-separated ProjectionExpression into its paths.
func Parse(expr string) ([]Path, error) {
	p := &parser{lex: lexer.New(expr)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	var paths []Path
	for {
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
		if p.tok.Kind == lexer.Comma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if p.tok.Kind != lexer.EOF {
		return nil, fmt.Errorf("proj: unexpected trailing token %q", p.tok.Text)
	}
	return paths, nil
}

type parser struct {
	lex *lexer.Lexer
	tok lexer.Token
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
		return lexer.Token{}, fmt.Errorf("proj: expected %s, got %s %q", k, p.tok.Kind, p.tok.Text)
	}
	tok := p.tok
	return tok, p.advance()
}

func (p *parser) parsePath() (Path, error) {
	var parts []PathPart
	head, err := p.parsePathHead()
	if err != nil {
		return Path{}, err
	}
	parts = append(parts, head)
	for {
		switch p.tok.Kind {
		case lexer.Dot:
			if err := p.advance(); err != nil {
				return Path{}, err
			}
			part, err := p.parsePathHead()
			if err != nil {
				return Path{}, err
			}
			parts = append(parts, part)
		case lexer.LBracket:
			if err := p.advance(); err != nil {
				return Path{}, err
			}
			idxTok, err := p.expect(lexer.Number)
			if err != nil {
				return Path{}, err
			}
			var idx int
			if _, scanErr := fmt.Sscanf(idxTok.Text, "%d", &idx); scanErr != nil {
				return Path{}, fmt.Errorf("proj: invalid list index %q", idxTok.Text)
			}
			if _, err := p.expect(lexer.RBracket); err != nil {
				return Path{}, err
			}
			parts = append(parts, PathPart{Index: &idx})
		default:
			return Path{Parts: parts}, nil
		}
	}
}

func (p *parser) parsePathHead() (PathPart, error) {
	switch p.tok.Kind {
	case lexer.Ident:
		name := p.tok.Text
		return PathPart{Name: name}, p.advance()
	case lexer.NamePlaceholder:
		alias := p.tok.Text
		return PathPart{Alias: alias}, p.advance()
	default:
		return PathPart{}, fmt.Errorf("proj: expected attribute name, got %s %q", p.tok.Kind, p.tok.Text)
	}
}

// Project builds a new item containing only the attributes reachable by
// paths, resolving #alias parts against names. A path whose attribute
// doesn't exist in item is silently skipped, matching DynamoDB's own
// ProjectionExpression behavior for missing attributes.
func Project(item map[string]types.AttributeValue, paths []Path, names map[string]string) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue)
	for _, path := range paths {
		if err := projectOne(item, out, path.Parts, names); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func projectOne(item, out map[string]types.AttributeValue, parts []PathPart, names map[string]string) error {
	if len(parts) == 0 {
		return fmt.Errorf("proj: empty path")
	}
	name, err := resolveName(parts[0], names)
	if err != nil {
		return err
	}
	val, ok := item[name]
	if !ok {
		return nil
	}
	if len(parts) == 1 {
		out[name] = val
		return nil
	}

	// Nested projection: materialize (or reuse) the same structural shape
	// in out, then splice in only the value reached by the remaining path.
	nestedVal, ok, err := copyNested(val, parts[1:], names)
	if err != nil || !ok {
		return err
	}
	existing, alreadyProjected := out[name]
	merged, err := mergeProjected(existing, nestedVal, alreadyProjected)
	if err != nil {
		return err
	}
	out[name] = merged
	return nil
}

func copyNested(val types.AttributeValue, parts []PathPart, names map[string]string) (types.AttributeValue, bool, error) {
	if len(parts) == 0 {
		return val, true, nil
	}
	part := parts[0]
	if part.Index != nil {
		list, ok := val.(*types.AttributeValueMemberL)
		if !ok || *part.Index < 0 || *part.Index >= len(list.Value) {
			return nil, false, nil
		}
		inner, ok, err := copyNested(list.Value[*part.Index], parts[1:], names)
		if err != nil || !ok {
			return nil, false, err
		}
		values := make([]types.AttributeValue, len(list.Value))
		values[*part.Index] = inner
		return &types.AttributeValueMemberL{Value: values}, true, nil
	}
	name, err := resolveName(part, names)
	if err != nil {
		return nil, false, err
	}
	m, ok := val.(*types.AttributeValueMemberM)
	if !ok {
		return nil, false, nil
	}
	child, ok := m.Value[name]
	if !ok {
		return nil, false, nil
	}
	inner, ok, err := copyNested(child, parts[1:], names)
	if err != nil || !ok {
		return nil, false, err
	}
	return &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{name: inner}}, true, nil
}

func mergeProjected(existing, next types.AttributeValue, hasExisting bool) (types.AttributeValue, error) {
	if !hasExisting {
		return next, nil
	}
	existingM, ok1 := existing.(*types.AttributeValueMemberM)
	nextM, ok2 := next.(*types.AttributeValueMemberM)
	if !ok1 || !ok2 {
		return next, nil
	}
	for k, v := range nextM.Value {
		merged, err := mergeProjected(existingM.Value[k], v, existingHasKey(existingM, k))
		if err != nil {
			return nil, err
		}
		existingM.Value[k] = merged
	}
	return existingM, nil
}

func existingHasKey(m *types.AttributeValueMemberM, key string) bool {
	_, ok := m.Value[key]
	return ok
}

func resolveName(part PathPart, names map[string]string) (string, error) {
	if part.Alias == "" {
		return part.Name, nil
	}
	name, ok := names[part.Alias]
	if !ok {
		return "", fmt.Errorf("proj: expression attribute name %s not defined", part.Alias)
	}
	return name, nil
}
