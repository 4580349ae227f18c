// Package update parses and applies DynamoDB UpdateExpression strings:
// SET/REMOVE/ADD/DELETE clauses, the SET sub-grammar's if_not_exists,
// list_append, and +/- arithmetic. Built in the same hand-rolled
// recursive-descent style and against the same lexer as exprlang/cond and
// exprlang/keycond for a consistent front end across the expression
// languages.
package update

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/ddblite/exprlang/lexer"
)

// Update is a fully parsed UpdateExpression, one slice per clause kind. A
// single expression may mix all four clause kinds.
type Update struct {
	Sets    []SetAction
	Removes []RemoveAction
	Adds    []AddAction
	Deletes []DeleteAction
}

type SetAction struct {
	Target *Path
	Value  ValueExpr
}

type RemoveAction struct {
	Target *Path
}

type AddAction struct {
	Target *Path
	Value  Path // always a :value placeholder in practice; kept as Path for uniformity
}

type DeleteAction struct {
	Target *Path
	Value  Path
}

// ValueExpr is anything usable on the right side of a SET assignment: a
// path, a placeholder, an arithmetic expression, or if_not_exists/list_append.
type ValueExpr interface {
	isValueExpr()
}

// Path is a document path, resolved against ExpressionAttributeNames at
// Apply time, same shape as exprlang/cond.AttributePath but kept separate
// since update mutates rather than only reads.
type Path struct {
	Parts []PathPart
}

func (*Path) isValueExpr() {}

type PathPart struct {
	Name  string
	Alias string
	Index *int
}

// Placeholder is an ExpressionAttributeValues reference.
type Placeholder struct {
	Alias string
}

func (*Placeholder) isValueExpr() {}

// Arithmetic is "operand + operand" or "operand - operand", valid only for
// N-typed operands.
type Arithmetic struct {
	Op          byte // '+' or '-'
	Left, Right ValueExpr
}

func (*Arithmetic) isValueExpr() {}

// IfNotExists implements if_not_exists(path, value).
type IfNotExists struct {
	Path    *Path
	Default ValueExpr
}

func (*IfNotExists) isValueExpr() {}

// ListAppend implements list_append(list1, list2), where either operand
// may be a path or a literal-list placeholder.
type ListAppend struct {
	Left, Right ValueExpr
}

func (*ListAppend) isValueExpr() {}

// Parse parses an UpdateExpression into its AST.
func Parse(expr string) (*Update, error) {
	p := &parser{lex: lexer.New(expr)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	u := &Update{}
	sawClause := false
	for {
		switch {
		case lexer.EqualFold(p.tok, "SET"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			sets, err := p.parseSetClause()
			if err != nil {
				return nil, err
			}
			u.Sets = append(u.Sets, sets...)
			sawClause = true
		case lexer.EqualFold(p.tok, "REMOVE"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			removes, err := p.parseRemoveClause()
			if err != nil {
				return nil, err
			}
			u.Removes = append(u.Removes, removes...)
			sawClause = true
		case lexer.EqualFold(p.tok, "ADD"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			adds, err := p.parseAddClause()
			if err != nil {
				return nil, err
			}
			u.Adds = append(u.Adds, adds...)
			sawClause = true
		case lexer.EqualFold(p.tok, "DELETE"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			deletes, err := p.parseDeleteClause()
			if err != nil {
				return nil, err
			}
			u.Deletes = append(u.Deletes, deletes...)
			sawClause = true
		case p.tok.Kind == lexer.EOF:
			if !sawClause {
				return nil, fmt.Errorf("update: empty update expression")
			}
			return u, nil
		default:
			return nil, fmt.Errorf("update: expected SET, REMOVE, ADD, or DELETE, got %q", p.tok.Text)
		}
	}
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
		return lexer.Token{}, fmt.Errorf("update: expected %s, got %s %q", k, p.tok.Kind, p.tok.Text)
	}
	tok := p.tok
	return tok, p.advance()
}

func (p *parser) atClauseKeyword() bool {
	return lexer.EqualFold(p.tok, "SET") || lexer.EqualFold(p.tok, "REMOVE") ||
		lexer.EqualFold(p.tok, "ADD") || lexer.EqualFold(p.tok, "DELETE")
}

func (p *parser) parseSetClause() ([]SetAction, error) {
	var actions []SetAction
	for {
		target, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Eq); err != nil {
			return nil, err
		}
		value, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		actions = append(actions, SetAction{Target: target, Value: value})
		if p.tok.Kind == lexer.Comma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if p.tok.Kind == lexer.EOF || p.atClauseKeyword() {
			return actions, nil
		}
		return nil, fmt.Errorf("update: unexpected token %q in SET clause", p.tok.Text)
	}
}

func (p *parser) parseRemoveClause() ([]RemoveAction, error) {
	var actions []RemoveAction
	for {
		target, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		actions = append(actions, RemoveAction{Target: target})
		if p.tok.Kind == lexer.Comma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if p.tok.Kind == lexer.EOF || p.atClauseKeyword() {
			return actions, nil
		}
		return nil, fmt.Errorf("update: unexpected token %q in REMOVE clause", p.tok.Text)
	}
}

func (p *parser) parseAddClause() ([]AddAction, error) {
	var actions []AddAction
	for {
		target, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		val, err := p.parseValuePath()
		if err != nil {
			return nil, err
		}
		actions = append(actions, AddAction{Target: target, Value: val})
		if p.tok.Kind == lexer.Comma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if p.tok.Kind == lexer.EOF || p.atClauseKeyword() {
			return actions, nil
		}
		return nil, fmt.Errorf("update: unexpected token %q in ADD clause", p.tok.Text)
	}
}

func (p *parser) parseDeleteClause() ([]DeleteAction, error) {
	var actions []DeleteAction
	for {
		target, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		val, err := p.parseValuePath()
		if err != nil {
			return nil, err
		}
		actions = append(actions, DeleteAction{Target: target, Value: val})
		if p.tok.Kind == lexer.Comma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if p.tok.Kind == lexer.EOF || p.atClauseKeyword() {
			return actions, nil
		}
		return nil, fmt.Errorf("update: unexpected token %q in DELETE clause", p.tok.Text)
	}
}

// parseValuePath parses the :value placeholder operand of ADD/DELETE (a
// bare Path wrapping a single ValuePlaceholder part, matching the shape
// AddAction/DeleteAction.Value expects).
func (p *parser) parseValuePath() (Path, error) {
	if p.tok.Kind != lexer.ValuePlaceholder {
		return Path{}, fmt.Errorf("update: expected :value placeholder, got %s %q", p.tok.Kind, p.tok.Text)
	}
	alias := p.tok.Text
	if err := p.advance(); err != nil {
		return Path{}, err
	}
	return Path{Parts: []PathPart{{Alias: alias}}}, nil
}

func (p *parser) parseValueExpr() (ValueExpr, error) {
	left, err := p.parseValueOperand()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind == lexer.Plus || p.tok.Kind == lexer.Minus {
		op := byte('+')
		if p.tok.Kind == lexer.Minus {
			op = '-'
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseValueOperand()
		if err != nil {
			return nil, err
		}
		return &Arithmetic{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parseValueOperand() (ValueExpr, error) {
	switch {
	case p.tok.Kind == lexer.ValuePlaceholder:
		alias := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Placeholder{Alias: alias}, nil

	case lexer.EqualFold(p.tok, "if_not_exists"):
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
		if _, err := p.expect(lexer.Comma); err != nil {
			return nil, err
		}
		def, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		return &IfNotExists{Path: path, Default: def}, nil

	case lexer.EqualFold(p.tok, "list_append"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.LParen); err != nil {
			return nil, err
		}
		left, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Comma); err != nil {
			return nil, err
		}
		right, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		return &ListAppend{Left: left, Right: right}, nil

	case p.tok.Kind == lexer.Ident || p.tok.Kind == lexer.NamePlaceholder:
		return p.parsePath()

	default:
		return nil, fmt.Errorf("update: expected value expression, got %s %q", p.tok.Kind, p.tok.Text)
	}
}

func (p *parser) parsePath() (*Path, error) {
	var parts []PathPart
	head, err := p.parsePathHead()
	if err != nil {
		return nil, err
	}
	parts = append(parts, head)
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
			var idx int
			if _, scanErr := fmt.Sscanf(idxTok.Text, "%d", &idx); scanErr != nil {
				return nil, fmt.Errorf("update: invalid list index %q", idxTok.Text)
			}
			if _, err := p.expect(lexer.RBracket); err != nil {
				return nil, err
			}
			parts = append(parts, PathPart{Index: &idx})
		default:
			return &Path{Parts: parts}, nil
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
		return PathPart{}, fmt.Errorf("update: expected attribute name, got %s %q", p.tok.Kind, p.tok.Text)
	}
}

// --- application ---

// Env resolves placeholders for Apply, mirroring exprlang/cond.Env.
type Env struct {
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// Apply mutates item in place according to u, in the order SET, REMOVE,
// ADD, DELETE — matching the order DynamoDB itself documents for a single
// UpdateExpression's combined clauses. keyAttrs names the table's key
// schema attributes, which Apply refuses to let any clause touch: key
// attributes are immutable via UpdateItem.
func Apply(item map[string]types.AttributeValue, u *Update, env *Env, keyAttrs map[string]bool) error {
	for _, s := range u.Sets {
		name, err := resolveHeadName(s.Target, env)
		if err != nil {
			return err
		}
		if keyAttrs[name] {
			return fmt.Errorf("update: cannot update key attribute %q", name)
		}
		val, err := evalValueExpr(s.Value, item, env)
		if err != nil {
			return err
		}
		if err := setPath(item, s.Target, env, val); err != nil {
			return err
		}
	}
	for _, r := range u.Removes {
		name, err := resolveHeadName(r.Target, env)
		if err != nil {
			return err
		}
		if keyAttrs[name] {
			return fmt.Errorf("update: cannot update key attribute %q", name)
		}
		if err := removePath(item, r.Target, env); err != nil {
			return err
		}
	}
	for _, a := range u.Adds {
		name, err := resolveHeadName(a.Target, env)
		if err != nil {
			return err
		}
		if keyAttrs[name] {
			return fmt.Errorf("update: cannot update key attribute %q", name)
		}
		val, err := resolvePathValue(&a.Value, item, env)
		if err != nil {
			return err
		}
		if err := applyAdd(item, a.Target, env, val); err != nil {
			return err
		}
	}
	for _, d := range u.Deletes {
		name, err := resolveHeadName(d.Target, env)
		if err != nil {
			return err
		}
		if keyAttrs[name] {
			return fmt.Errorf("update: cannot update key attribute %q", name)
		}
		val, err := resolvePathValue(&d.Value, item, env)
		if err != nil {
			return err
		}
		if err := applyDelete(item, d.Target, env, val); err != nil {
			return err
		}
	}
	return nil
}

func resolveHeadName(p *Path, env *Env) (string, error) {
	return resolveName(p.Parts[0], env)
}

func resolveName(part PathPart, env *Env) (string, error) {
	if part.Alias == "" {
		return part.Name, nil
	}
	name, ok := env.Names[part.Alias]
	if !ok {
		return "", fmt.Errorf("update: expression attribute name %s not defined", part.Alias)
	}
	return name, nil
}

func resolvePathValue(p *Path, item map[string]types.AttributeValue, env *Env) (types.AttributeValue, error) {
	cur, ok, err := navigate(item, p.Parts, env, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		if len(p.Parts) == 1 && p.Parts[0].Alias != "" {
			if v, found := env.Values[p.Parts[0].Alias]; found {
				return v, nil
			}
		}
		return nil, fmt.Errorf("update: path not found")
	}
	return cur, nil
}

func evalValueExpr(v ValueExpr, item map[string]types.AttributeValue, env *Env) (types.AttributeValue, error) {
	switch expr := v.(type) {
	case *Placeholder:
		val, ok := env.Values[expr.Alias]
		if !ok {
			return nil, fmt.Errorf("update: expression attribute value %s not defined", expr.Alias)
		}
		return val, nil

	case *Path:
		cur, ok, err := navigate(item, expr.Parts, env, false)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("update: path not found")
		}
		return cur, nil

	case *Arithmetic:
		leftVal, err := evalValueExpr(expr.Left, item, env)
		if err != nil {
			return nil, err
		}
		rightVal, err := evalValueExpr(expr.Right, item, env)
		if err != nil {
			return nil, err
		}
		return arithmetic(leftVal, rightVal, expr.Op)

	case *IfNotExists:
		cur, ok, err := navigate(item, expr.Path.Parts, env, false)
		if err != nil {
			return nil, err
		}
		if ok {
			return cur, nil
		}
		return evalValueExpr(expr.Default, item, env)

	case *ListAppend:
		leftVal, err := evalValueExpr(expr.Left, item, env)
		if err != nil {
			return nil, err
		}
		rightVal, err := evalValueExpr(expr.Right, item, env)
		if err != nil {
			return nil, err
		}
		leftList, ok := leftVal.(*types.AttributeValueMemberL)
		if !ok {
			return nil, fmt.Errorf("update: list_append first argument is not a list")
		}
		rightList, ok := rightVal.(*types.AttributeValueMemberL)
		if !ok {
			return nil, fmt.Errorf("update: list_append second argument is not a list")
		}
		merged := make([]types.AttributeValue, 0, len(leftList.Value)+len(rightList.Value))
		merged = append(merged, leftList.Value...)
		merged = append(merged, rightList.Value...)
		return &types.AttributeValueMemberL{Value: merged}, nil

	default:
		return nil, fmt.Errorf("update: unsupported value expression %T", v)
	}
}

func arithmetic(left, right types.AttributeValue, op byte) (types.AttributeValue, error) {
	lN, ok := left.(*types.AttributeValueMemberN)
	if !ok {
		return nil, fmt.Errorf("update: arithmetic requires numeric operands")
	}
	rN, ok := right.(*types.AttributeValueMemberN)
	if !ok {
		return nil, fmt.Errorf("update: arithmetic requires numeric operands")
	}
	lRat, ok := new(big.Rat).SetString(lN.Value)
	if !ok {
		return nil, fmt.Errorf("update: invalid number %q", lN.Value)
	}
	rRat, ok := new(big.Rat).SetString(rN.Value)
	if !ok {
		return nil, fmt.Errorf("update: invalid number %q", rN.Value)
	}
	result := new(big.Rat)
	if op == '+' {
		result.Add(lRat, rRat)
	} else {
		result.Sub(lRat, rRat)
	}
	return &types.AttributeValueMemberN{Value: formatDecimal(result, lN.Value, rN.Value)}, nil
}

// formatDecimal renders a big.Rat sum/difference of two exact decimal
// operands back into canonical decimal notation. + and - of terminating
// decimals is always itself a terminating decimal, so the number of
// fractional digits needed never exceeds the larger of the two operands'
// own fractional digit counts; FloatString at that precision is therefore
// exact, not a rounding. Trailing zeros (and a bare trailing '.') are
// trimmed so "10.75" doesn't come back as "10.750".
func formatDecimal(r *big.Rat, operands ...string) string {
	places := 0
	for _, s := range operands {
		if n := decimalPlaces(s); n > places {
			places = n
		}
	}
	s := r.FloatString(places)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "" || s == "-" {
		s = "0"
	}
	return s
}

// decimalPlaces counts the digits after the decimal point in a DynamoDB N
// literal, or 0 if it has none.
func decimalPlaces(numStr string) int {
	i := strings.IndexByte(numStr, '.')
	if i < 0 {
		return 0
	}
	return len(numStr) - i - 1
}

// navigate walks item along parts, returning the current value and whether
// the path exists. A missing attribute, map key or list element yields
// (nil, false, nil); forWrite is not consulted. Writes go through setPath
// and descend instead, which report a missing intermediate container as an
// error (DynamoDB never creates intermediate containers implicitly).
func navigate(item map[string]types.AttributeValue, parts []PathPart, env *Env, forWrite bool) (types.AttributeValue, bool, error) {
	name, err := resolveName(parts[0], env)
	if err != nil {
		return nil, false, err
	}
	cur, ok := item[name]
	if !ok {
		return nil, false, nil
	}
	for _, part := range parts[1:] {
		if part.Index != nil {
			list, ok := cur.(*types.AttributeValueMemberL)
			if !ok {
				return nil, false, nil
			}
			if *part.Index < 0 || *part.Index >= len(list.Value) {
				return nil, false, nil
			}
			cur = list.Value[*part.Index]
			continue
		}
		key, err := resolveName(part, env)
		if err != nil {
			return nil, false, err
		}
		m, ok := cur.(*types.AttributeValueMemberM)
		if !ok {
			return nil, false, nil
		}
		cur, ok = m.Value[key]
		if !ok {
			return nil, false, nil
		}
	}
	return cur, true, nil
}

func setPath(item map[string]types.AttributeValue, p *Path, env *Env, val types.AttributeValue) error {
	parts := p.Parts
	name, err := resolveName(parts[0], env)
	if err != nil {
		return err
	}
	if len(parts) == 1 {
		item[name] = val
		return nil
	}
	parent, ok := item[name]
	if !ok {
		return fmt.Errorf("update: cannot set nested path, %q does not exist", name)
	}
	return setNested(parent, parts[1:], env, val)
}

func setNested(parent types.AttributeValue, parts []PathPart, env *Env, val types.AttributeValue) error {
	last := parts[len(parts)-1]
	container := parent
	for _, part := range parts[:len(parts)-1] {
		next, err := descend(container, part, env)
		if err != nil {
			return err
		}
		container = next
	}
	if last.Index != nil {
		list, ok := container.(*types.AttributeValueMemberL)
		if !ok {
			return fmt.Errorf("update: path element is not a list")
		}
		if *last.Index < 0 || *last.Index > len(list.Value) {
			return fmt.Errorf("update: list index %d out of bounds", *last.Index)
		}
		if *last.Index == len(list.Value) {
			list.Value = append(list.Value, val)
		} else {
			list.Value[*last.Index] = val
		}
		return nil
	}
	key, err := resolveName(last, env)
	if err != nil {
		return err
	}
	m, ok := container.(*types.AttributeValueMemberM)
	if !ok {
		return fmt.Errorf("update: path element is not a map")
	}
	m.Value[key] = val
	return nil
}

func descend(container types.AttributeValue, part PathPart, env *Env) (types.AttributeValue, error) {
	if part.Index != nil {
		list, ok := container.(*types.AttributeValueMemberL)
		if !ok {
			return nil, fmt.Errorf("update: path element is not a list")
		}
		if *part.Index < 0 || *part.Index >= len(list.Value) {
			return nil, fmt.Errorf("update: list index %d out of bounds", *part.Index)
		}
		return list.Value[*part.Index], nil
	}
	key, err := resolveName(part, env)
	if err != nil {
		return nil, err
	}
	m, ok := container.(*types.AttributeValueMemberM)
	if !ok {
		return nil, fmt.Errorf("update: path element is not a map")
	}
	next, ok := m.Value[key]
	if !ok {
		return nil, fmt.Errorf("update: path element %q does not exist", key)
	}
	return next, nil
}

func removePath(item map[string]types.AttributeValue, p *Path, env *Env) error {
	parts := p.Parts
	name, err := resolveName(parts[0], env)
	if err != nil {
		return err
	}
	if len(parts) == 1 {
		delete(item, name)
		return nil
	}
	parent, ok := item[name]
	if !ok {
		return nil // removing a path under a non-existent attribute is a no-op
	}
	container := parent
	for _, part := range parts[1 : len(parts)-1] {
		next, err := descend(container, part, env)
		if err != nil {
			return nil // missing intermediate path: no-op, matches DynamoDB REMOVE semantics
		}
		container = next
	}
	last := parts[len(parts)-1]
	if last.Index != nil {
		list, ok := container.(*types.AttributeValueMemberL)
		if !ok || *last.Index < 0 || *last.Index >= len(list.Value) {
			return nil
		}
		list.Value = append(list.Value[:*last.Index], list.Value[*last.Index+1:]...)
		return nil
	}
	key, err := resolveName(last, env)
	if err != nil {
		return err
	}
	if m, ok := container.(*types.AttributeValueMemberM); ok {
		delete(m.Value, key)
	}
	return nil
}

func applyAdd(item map[string]types.AttributeValue, target *Path, env *Env, val types.AttributeValue) error {
	name, err := resolveName(target.Parts[0], env)
	if err != nil {
		return err
	}
	if len(target.Parts) != 1 {
		return fmt.Errorf("update: ADD only supports top-level attributes")
	}
	existing, ok := item[name]
	if !ok {
		item[name] = val
		return nil
	}
	switch v := val.(type) {
	case *types.AttributeValueMemberN:
		cur, ok := existing.(*types.AttributeValueMemberN)
		if !ok {
			return fmt.Errorf("update: ADD type mismatch on %q", name)
		}
		result, err := arithmetic(cur, v, '+')
		if err != nil {
			return err
		}
		item[name] = result
		return nil
	case *types.AttributeValueMemberSS:
		cur, ok := existing.(*types.AttributeValueMemberSS)
		if !ok {
			return fmt.Errorf("update: ADD type mismatch on %q", name)
		}
		item[name] = &types.AttributeValueMemberSS{Value: unionStrings(cur.Value, v.Value)}
		return nil
	case *types.AttributeValueMemberNS:
		cur, ok := existing.(*types.AttributeValueMemberNS)
		if !ok {
			return fmt.Errorf("update: ADD type mismatch on %q", name)
		}
		merged, err := unionNumbers(cur.Value, v.Value)
		if err != nil {
			return err
		}
		item[name] = &types.AttributeValueMemberNS{Value: merged}
		return nil
	case *types.AttributeValueMemberBS:
		cur, ok := existing.(*types.AttributeValueMemberBS)
		if !ok {
			return fmt.Errorf("update: ADD type mismatch on %q", name)
		}
		item[name] = &types.AttributeValueMemberBS{Value: unionBytes(cur.Value, v.Value)}
		return nil
	default:
		return fmt.Errorf("update: ADD not supported for type %T", val)
	}
}

func applyDelete(item map[string]types.AttributeValue, target *Path, env *Env, val types.AttributeValue) error {
	name, err := resolveName(target.Parts[0], env)
	if err != nil {
		return err
	}
	if len(target.Parts) != 1 {
		return fmt.Errorf("update: DELETE only supports top-level attributes")
	}
	existing, ok := item[name]
	if !ok {
		return nil
	}
	switch v := val.(type) {
	case *types.AttributeValueMemberSS:
		cur, ok := existing.(*types.AttributeValueMemberSS)
		if !ok {
			return fmt.Errorf("update: DELETE type mismatch on %q", name)
		}
		remaining := subtractStrings(cur.Value, v.Value)
		setOrRemove(item, name, remaining, func() types.AttributeValue { return &types.AttributeValueMemberSS{Value: remaining} })
		return nil
	case *types.AttributeValueMemberNS:
		cur, ok := existing.(*types.AttributeValueMemberNS)
		if !ok {
			return fmt.Errorf("update: DELETE type mismatch on %q", name)
		}
		remaining, err := subtractNumbers(cur.Value, v.Value)
		if err != nil {
			return err
		}
		setOrRemove(item, name, remaining, func() types.AttributeValue { return &types.AttributeValueMemberNS{Value: remaining} })
		return nil
	case *types.AttributeValueMemberBS:
		cur, ok := existing.(*types.AttributeValueMemberBS)
		if !ok {
			return fmt.Errorf("update: DELETE type mismatch on %q", name)
		}
		remaining := subtractBytes(cur.Value, v.Value)
		setOrRemove(item, name, remaining, func() types.AttributeValue { return &types.AttributeValueMemberBS{Value: remaining} })
		return nil
	default:
		return fmt.Errorf("update: DELETE not supported for type %T", val)
	}
}

func setOrRemove[T any](item map[string]types.AttributeValue, name string, remaining []T, build func() types.AttributeValue) {
	if len(remaining) == 0 {
		delete(item, name)
		return
	}
	item[name] = build()
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := append([]string{}, a...)
	for _, v := range a {
		seen[v] = true
	}
	for _, v := range b {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func subtractStrings(a, b []string) []string {
	remove := make(map[string]bool, len(b))
	for _, v := range b {
		remove[v] = true
	}
	var out []string
	for _, v := range a {
		if !remove[v] {
			out = append(out, v)
		}
	}
	return out
}

func unionNumbers(a, b []string) ([]string, error) {
	out := append([]string{}, a...)
	for _, v := range b {
		found := false
		for _, e := range a {
			c, err := numCompare(e, v)
			if err != nil {
				return nil, err
			}
			if c == 0 {
				found = true
				break
			}
		}
		if !found {
			out = append(out, v)
		}
	}
	return out, nil
}

func subtractNumbers(a, b []string) ([]string, error) {
	var out []string
	for _, v := range a {
		remove := false
		for _, e := range b {
			c, err := numCompare(v, e)
			if err != nil {
				return nil, err
			}
			if c == 0 {
				remove = true
				break
			}
		}
		if !remove {
			out = append(out, v)
		}
	}
	return out, nil
}

func numCompare(a, b string) (int, error) {
	aRat, ok := new(big.Rat).SetString(a)
	if !ok {
		return 0, fmt.Errorf("update: invalid number %q", a)
	}
	bRat, ok := new(big.Rat).SetString(b)
	if !ok {
		return 0, fmt.Errorf("update: invalid number %q", b)
	}
	return aRat.Cmp(bRat), nil
}

func unionBytes(a, b [][]byte) [][]byte {
	out := append([][]byte{}, a...)
	for _, v := range b {
		found := false
		for _, e := range a {
			if string(e) == string(v) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, v)
		}
	}
	return out
}

func subtractBytes(a, b [][]byte) [][]byte {
	remove := make(map[string]bool, len(b))
	for _, v := range b {
		remove[string(v)] = true
	}
	var out [][]byte
	for _, v := range a {
		if !remove[string(v)] {
			out = append(out, v)
		}
	}
	return out
}
