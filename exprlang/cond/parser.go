package cond

import (
	"fmt"

	"github.com/acksell/ddblite/exprlang/lexer"
)

// Parse parses a ConditionExpression or FilterExpression into its AST. The
// expression is resolved against ExpressionAttributeNames/Values only at
// Eval time, so the same parsed Node can be reused across items in a
// Scan/Query page.
func Parse(expr string) (Node, error) {
	p := &parser{lex: lexer.New(expr)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != lexer.EOF {
		return nil, fmt.Errorf("cond: unexpected trailing token %q", p.tok.Text)
	}
	return node, nil
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
		return lexer.Token{}, fmt.Errorf("cond: expected %s, got %s %q", k, p.tok.Kind, p.tok.Text)
	}
	tok := p.tok
	return tok, p.advance()
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for lexer.EqualFold(p.tok, "OR") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &LogicalOp{Operator: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for lexer.EqualFold(p.tok, "AND") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &LogicalOp{Operator: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Node, error) {
	if lexer.EqualFold(p.tok, "NOT") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &LogicalOp{Operator: "NOT", Left: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	if p.tok.Kind == lexer.LParen {
		if err := p.advance(); err != nil {
			return nil, err
		}
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		return node, nil
	}

	if p.tok.Kind == lexer.Ident && isBoolFunction(p.tok.Text) {
		return p.parseFunctionCondition()
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	switch {
	case lexer.EqualFold(p.tok, "BETWEEN"):
		return p.parseBetween(left)
	case lexer.EqualFold(p.tok, "IN"):
		return p.parseIn(left)
	case isComparisonOp(p.tok.Kind):
		return p.parseComparison(left)
	default:
		return nil, fmt.Errorf("cond: expected comparison, BETWEEN, or IN, got %s %q", p.tok.Kind, p.tok.Text)
	}
}

func isComparisonOp(k lexer.Kind) bool {
	switch k {
	case lexer.Eq, lexer.Ne, lexer.Lt, lexer.Le, lexer.Gt, lexer.Ge:
		return true
	default:
		return false
	}
}

func (p *parser) parseComparison(left Expr) (Node, error) {
	op := p.tok.Text
	if err := p.advance(); err != nil {
		return nil, err
	}
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &Comparison{Operator: op, Left: left, Right: right}, nil
}

func (p *parser) parseBetween(val Expr) (Node, error) {
	if err := p.advance(); err != nil { // consume BETWEEN
		return nil, err
	}
	low, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if !lexer.EqualFold(p.tok, "AND") {
		return nil, fmt.Errorf("cond: expected AND in BETWEEN, got %q", p.tok.Text)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	high, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &Between{Val: val, Low: low, High: high}, nil
}

func (p *parser) parseIn(val Expr) (Node, error) {
	if err := p.advance(); err != nil { // consume IN
		return nil, err
	}
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	var set []Expr
	for {
		operand, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		set = append(set, operand)
		if p.tok.Kind == lexer.Comma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	return &In{Val: val, Set: set}, nil
}

func (p *parser) parseFunctionCondition() (Node, error) {
	name := p.tok.Text
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	var args []Expr
	for p.tok.Kind != lexer.RParen {
		arg, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.tok.Kind == lexer.Comma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	if name == "contains" || name == "attribute_type" || name == "begins_with" {
		if len(args) != 2 {
			return nil, fmt.Errorf("cond: %s expects 2 arguments, got %d", name, len(args))
		}
	} else if len(args) != 1 {
		return nil, fmt.Errorf("cond: %s expects 1 argument, got %d", name, len(args))
	}
	return &FunctionCall{Name: name, Args: args}, nil
}

func isBoolFunction(name string) bool {
	switch name {
	case "attribute_exists", "attribute_not_exists", "attribute_type", "begins_with", "contains":
		return true
	default:
		return false
	}
}

// parseOperand parses a value usable in a comparison/function argument: a
// document path, a size(...) call, or an ExpressionAttributeValues placeholder.
func (p *parser) parseOperand() (Expr, error) {
	switch {
	case p.tok.Kind == lexer.ValuePlaceholder:
		alias := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Alias: alias}, nil

	case p.tok.Kind == lexer.Ident && p.tok.Text == "size":
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.LParen); err != nil {
			return nil, err
		}
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		return &Size{Path: path}, nil

	case p.tok.Kind == lexer.Ident || p.tok.Kind == lexer.NamePlaceholder:
		return p.parsePath()

	default:
		return nil, fmt.Errorf("cond: expected operand, got %s %q", p.tok.Kind, p.tok.Text)
	}
}

func (p *parser) parsePath() (*AttributePath, error) {
	var parts []PathPart
	part, err := p.parsePathHead()
	if err != nil {
		return nil, err
	}
	parts = append(parts, part)

	for {
		switch p.tok.Kind {
		case lexer.Dot:
			if err := p.advance(); err != nil {
				return nil, err
			}
			part, err := p.parsePathHead()
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		case lexer.LBracket:
			if err := p.advance(); err != nil {
				return nil, err
			}
			idxTok, err := p.expect(lexer.Number)
			if err != nil {
				return nil, err
			}
			idx, convErr := parseIndex(idxTok.Text)
			if convErr != nil {
				return nil, convErr
			}
			if _, err := p.expect(lexer.RBracket); err != nil {
				return nil, err
			}
			parts = append(parts, PathPart{Index: &idx})
		default:
			return &AttributePath{Parts: parts}, nil
		}
	}
}

func (p *parser) parsePathHead() (PathPart, error) {
	switch p.tok.Kind {
	case lexer.Ident:
		name := p.tok.Text
		if err := p.advance(); err != nil {
			return PathPart{}, err
		}
		return PathPart{Name: name}, nil
	case lexer.NamePlaceholder:
		alias := p.tok.Text
		if err := p.advance(); err != nil {
			return PathPart{}, err
		}
		return PathPart{Alias: alias}, nil
	default:
		return PathPart{}, fmt.Errorf("cond: expected attribute name, got %s %q", p.tok.Kind, p.tok.Text)
	}
}

func parseIndex(text string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(text, "%d", &n); err != nil {
		return 0, fmt.Errorf("cond: invalid list index %q", text)
	}
	return n, nil
}
