// Package cond implements DynamoDB condition and filter expressions:
// ConditionExpression on writes (PutItem/UpdateItem/DeleteItem/transact
// writes) and FilterExpression on Query/Scan share one grammar and
// evaluator. Evaluation is three-valued: a path that doesn't exist in the
// item evaluates to Unknown rather than failing the whole expression, and
// Unknown only resolves to a hard failure at the top level (a
// ConditionExpression must evaluate to True to proceed; a FilterExpression
// treats anything but True as "filtered out").
//
// AST node shapes (Comparison, Between, In, LogicalOp, FunctionCall — which
// also covers contains — and the operands AttributePath, Literal, Size)
// follow that vocabulary directly. Evaluation
// errors are returned as plain Go errors rather than panics, and Eval
// returns a three-valued TriState instead of a bool so a missing attribute
// doesn't need to be distinguished from a deliberate false by a second
// return value.
package cond

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/ddblite/collation"
)

// TriState is the result of evaluating a condition node: Kleene three-valued
// logic, where Unknown arises from comparing against a path that isn't
// present in the item.
type TriState int

const (
	Unknown TriState = iota
	False
	True
)

// MatchesCondition reports whether t satisfies a write ConditionExpression;
// only True proceeds the write, both False and Unknown fail it.
func (t TriState) MatchesCondition() bool { return t == True }

// PassesFilter reports whether t keeps an item in a Query/Scan result set.
func (t TriState) PassesFilter() bool { return t == True }

func notState(a TriState) TriState {
	switch a {
	case True:
		return False
	case False:
		return True
	default:
		return Unknown
	}
}

func andState(a, b TriState) TriState {
	if a == False || b == False {
		return False
	}
	if a == Unknown || b == Unknown {
		return Unknown
	}
	return True
}

func orState(a, b TriState) TriState {
	if a == True || b == True {
		return True
	}
	if a == Unknown || b == Unknown {
		return Unknown
	}
	return False
}

func fromBool(b bool) TriState {
	if b {
		return True
	}
	return False
}

// Env is the evaluation context: the item being tested plus the expression
// placeholders it may reference.
type Env struct {
	Names  map[string]string
	Values map[string]types.AttributeValue
	Item   map[string]types.AttributeValue
}

// Node is any condition-producing AST node.
type Node interface {
	Eval(env *Env) (TriState, error)
}

// Expr is any value-producing AST node usable as a comparison/function operand.
type Expr interface {
	// Resolve returns the operand and whether it exists in the item. A
	// path that doesn't exist returns (nil, false, nil) rather than an
	// error, letting comparisons above it fold to Unknown.
	Resolve(env *Env) (*Operand, bool, error)
}

// Operand is a typed, comparable value pulled out of the item or out of an
// ExpressionAttributeValues placeholder.
type Operand struct {
	Kind types.AttributeValue // never set; the populated field below identifies the type (see typeName)
	S    *string
	N    *string
	B    []byte
	SS   []string
	NS   []string
	BS   [][]byte
	Bool *bool
	Null bool
	L    []types.AttributeValue
	M    map[string]types.AttributeValue
}

func operandOf(av types.AttributeValue) (*Operand, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return &Operand{S: &v.Value}, nil
	case *types.AttributeValueMemberN:
		return &Operand{N: &v.Value}, nil
	case *types.AttributeValueMemberB:
		return &Operand{B: v.Value}, nil
	case *types.AttributeValueMemberSS:
		return &Operand{SS: v.Value}, nil
	case *types.AttributeValueMemberNS:
		return &Operand{NS: v.Value}, nil
	case *types.AttributeValueMemberBS:
		return &Operand{BS: v.Value}, nil
	case *types.AttributeValueMemberBOOL:
		return &Operand{Bool: &v.Value}, nil
	case *types.AttributeValueMemberNULL:
		return &Operand{Null: true}, nil
	case *types.AttributeValueMemberL:
		return &Operand{L: v.Value}, nil
	case *types.AttributeValueMemberM:
		return &Operand{M: v.Value}, nil
	default:
		return nil, fmt.Errorf("cond: unsupported attribute value type %T", av)
	}
}

func (o *Operand) typeName() string {
	switch {
	case o.S != nil:
		return "S"
	case o.N != nil:
		return "N"
	case o.B != nil:
		return "B"
	case o.SS != nil:
		return "SS"
	case o.NS != nil:
		return "NS"
	case o.BS != nil:
		return "BS"
	case o.Bool != nil:
		return "BOOL"
	case o.Null:
		return "NULL"
	case o.L != nil:
		return "L"
	case o.M != nil:
		return "M"
	default:
		return "NULL"
	}
}

func (o *Operand) equal(other *Operand) (bool, error) {
	if o.typeName() != other.typeName() {
		return false, nil
	}
	switch {
	case o.S != nil:
		return *o.S == *other.S, nil
	case o.N != nil:
		c, err := collation.CompareN(*o.N, *other.N)
		return c == 0, err
	case o.B != nil:
		return bytes.Equal(o.B, other.B), nil
	case o.Bool != nil:
		return *o.Bool == *other.Bool, nil
	case o.Null:
		return true, nil
	case o.SS != nil:
		return stringSetEqual(o.SS, other.SS), nil
	case o.NS != nil:
		return numberSetEqual(o.NS, other.NS)
	case o.BS != nil:
		return byteSetEqual(o.BS, other.BS), nil
	default:
		return false, fmt.Errorf("cond: equality not supported for %s", o.typeName())
	}
}

func stringSetEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, v := range a {
		seen[v]++
	}
	for _, v := range b {
		seen[v]--
	}
	for _, c := range seen {
		if c != 0 {
			return false
		}
	}
	return true
}

func numberSetEqual(a, b []string) (bool, error) {
	if len(a) != len(b) {
		return false, nil
	}
	used := make([]bool, len(b))
	for _, av := range a {
		found := false
		for j, bv := range b {
			if used[j] {
				continue
			}
			c, err := collation.CompareN(av, bv)
			if err != nil {
				return false, err
			}
			if c == 0 {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}
	return true, nil
}

func byteSetEqual(a, b [][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, av := range a {
		found := false
		for j, bv := range b {
			if !used[j] && bytes.Equal(av, bv) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (o *Operand) less(other *Operand) (bool, error) {
	if o.typeName() != other.typeName() {
		return false, fmt.Errorf("cond: cannot compare %s to %s", o.typeName(), other.typeName())
	}
	switch {
	case o.S != nil:
		return *o.S < *other.S, nil
	case o.N != nil:
		c, err := collation.CompareN(*o.N, *other.N)
		return c < 0, err
	case o.B != nil:
		return bytes.Compare(o.B, other.B) < 0, nil
	default:
		return false, fmt.Errorf("cond: ordering not supported for %s", o.typeName())
	}
}

// Comparison implements =, <>, <, <=, >, >=.
type Comparison struct {
	Operator string
	Left     Expr
	Right    Expr
}

func (c *Comparison) Eval(env *Env) (TriState, error) {
	l, lok, err := c.Left.Resolve(env)
	if err != nil {
		return Unknown, err
	}
	r, rok, err := c.Right.Resolve(env)
	if err != nil {
		return Unknown, err
	}
	if !lok || !rok {
		return Unknown, nil
	}

	switch c.Operator {
	case "=":
		eq, err := l.equal(r)
		return fromBool(eq), err
	case "<>":
		eq, err := l.equal(r)
		return fromBool(!eq), err
	case "<":
		lt, err := l.less(r)
		return fromBool(lt), err
	case ">":
		lt, err := r.less(l)
		return fromBool(lt), err
	case "<=":
		gt, err := r.less(l)
		if err != nil {
			return Unknown, err
		}
		return fromBool(!gt), nil
	case ">=":
		lt, err := l.less(r)
		if err != nil {
			return Unknown, err
		}
		return fromBool(!lt), nil
	default:
		return Unknown, fmt.Errorf("cond: unsupported operator %q", c.Operator)
	}
}

// Between implements "x BETWEEN lo AND hi" as lo <= x AND x <= hi.
type Between struct {
	Val, Low, High Expr
}

func (b *Between) Eval(env *Env) (TriState, error) {
	loLeq, err := (&Comparison{"<=", b.Low, b.Val}).Eval(env)
	if err != nil {
		return Unknown, err
	}
	hiGeq, err := (&Comparison{"<=", b.Val, b.High}).Eval(env)
	if err != nil {
		return Unknown, err
	}
	return andState(loLeq, hiGeq), nil
}

// In implements "x IN (v1, v2, ...)" as an OR of equality comparisons.
type In struct {
	Val  Expr
	Set  []Expr
}

func (in *In) Eval(env *Env) (TriState, error) {
	result := False
	for _, candidate := range in.Set {
		eq, err := (&Comparison{"=", in.Val, candidate}).Eval(env)
		if err != nil {
			return Unknown, err
		}
		result = orState(result, eq)
	}
	return result, nil
}

// LogicalOp implements AND, OR, NOT with Kleene three-valued semantics.
type LogicalOp struct {
	Operator    string // "AND", "OR", "NOT"
	Left, Right Node   // Right is nil for NOT
}

func (l *LogicalOp) Eval(env *Env) (TriState, error) {
	lv, err := l.Left.Eval(env)
	if err != nil {
		return Unknown, err
	}
	if l.Operator == "NOT" {
		return notState(lv), nil
	}
	rv, err := l.Right.Eval(env)
	if err != nil {
		return Unknown, err
	}
	if l.Operator == "AND" {
		return andState(lv, rv), nil
	}
	return orState(lv, rv), nil
}

// AttributePath resolves a document path such as "a.b[2].#c".
type AttributePath struct {
	Parts []PathPart
}

// PathPart is either a named map key (Name, possibly a #-placeholder
// resolved via Alias) or a list index.
type PathPart struct {
	Name  string
	Alias string // set when the name came from a #alias, Name left empty until resolved
	Index *int
}

func (p *AttributePath) resolveName(env *Env, part PathPart) (string, error) {
	if part.Alias == "" {
		return part.Name, nil
	}
	name, ok := env.Names[part.Alias]
	if !ok {
		return "", fmt.Errorf("cond: expression attribute name %s not defined", part.Alias)
	}
	return name, nil
}

func (p *AttributePath) Resolve(env *Env) (*Operand, bool, error) {
	av, ok, err := p.resolveValue(env)
	if err != nil || !ok {
		return nil, false, err
	}
	op, err := operandOf(av)
	if err != nil {
		return nil, false, err
	}
	return op, true, nil
}

func (p *AttributePath) resolveValue(env *Env) (types.AttributeValue, bool, error) {
	if len(p.Parts) == 0 {
		return nil, false, fmt.Errorf("cond: empty attribute path")
	}
	name, err := p.resolveName(env, p.Parts[0])
	if err != nil {
		return nil, false, err
	}
	cur, ok := env.Item[name]
	if !ok {
		return nil, false, nil
	}

	for _, part := range p.Parts[1:] {
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
		key, err := p.resolveName(env, part)
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

// Exists evaluates attribute_exists()/attribute_not_exists() directly
// without going through Operand conversion, since NULL attribute values
// still "exist".
func (p *AttributePath) exists(env *Env) (bool, error) {
	_, ok, err := p.resolveValue(env)
	return ok, err
}

// Literal is a resolved ExpressionAttributeValues placeholder.
type Literal struct {
	Alias string
}

func (l *Literal) Resolve(env *Env) (*Operand, bool, error) {
	av, ok := env.Values[l.Alias]
	if !ok {
		return nil, false, fmt.Errorf("cond: expression attribute value %s not defined", l.Alias)
	}
	op, err := operandOf(av)
	if err != nil {
		return nil, false, err
	}
	return op, true, nil
}

// FunctionCall implements the boolean-valued built-ins: attribute_exists,
// attribute_not_exists, attribute_type, begins_with, contains.
type FunctionCall struct {
	Name string
	Args []Expr
}

func (f *FunctionCall) Eval(env *Env) (TriState, error) {
	switch f.Name {
	case "attribute_exists":
		path, ok := f.Args[0].(*AttributePath)
		if !ok {
			return Unknown, fmt.Errorf("cond: attribute_exists requires a document path argument")
		}
		exists, err := path.exists(env)
		return fromBool(exists), err

	case "attribute_not_exists":
		path, ok := f.Args[0].(*AttributePath)
		if !ok {
			return Unknown, fmt.Errorf("cond: attribute_not_exists requires a document path argument")
		}
		exists, err := path.exists(env)
		if err != nil {
			return Unknown, err
		}
		return fromBool(!exists), nil

	case "attribute_type":
		path, ok := f.Args[0].(*AttributePath)
		if !ok {
			return Unknown, fmt.Errorf("cond: attribute_type requires a document path argument")
		}
		av, ok, err := path.resolveValue(env)
		if err != nil {
			return Unknown, err
		}
		if !ok {
			return Unknown, nil
		}
		want, _, err := f.Args[1].Resolve(env)
		if err != nil {
			return Unknown, err
		}
		if want == nil || want.S == nil {
			return Unknown, fmt.Errorf("cond: attribute_type second argument must be a string")
		}
		return fromBool(typeTag(av) == *want.S), nil

	case "begins_with":
		path, ok := f.Args[0].(*AttributePath)
		if !ok {
			return Unknown, fmt.Errorf("cond: begins_with requires a document path argument")
		}
		op, ok, err := path.Resolve(env)
		if err != nil {
			return Unknown, err
		}
		if !ok {
			return Unknown, nil
		}
		prefixOp, ok, err := f.Args[1].Resolve(env)
		if err != nil {
			return Unknown, err
		}
		if !ok || prefixOp.S == nil {
			return Unknown, fmt.Errorf("cond: begins_with second argument must be a string")
		}
		switch {
		case op.S != nil:
			return fromBool(strings.HasPrefix(*op.S, *prefixOp.S)), nil
		case op.B != nil:
			return fromBool(bytes.HasPrefix(op.B, []byte(*prefixOp.S))), nil
		default:
			return Unknown, fmt.Errorf("cond: begins_with not supported for type %s", op.typeName())
		}

	case "contains":
		path, ok := f.Args[0].(*AttributePath)
		if !ok {
			return Unknown, fmt.Errorf("cond: contains requires a document path argument")
		}
		op, ok, err := path.Resolve(env)
		if err != nil {
			return Unknown, err
		}
		if !ok {
			return Unknown, nil
		}
		val, ok, err := f.Args[1].Resolve(env)
		if err != nil {
			return Unknown, err
		}
		if !ok {
			return Unknown, nil
		}
		return containsOperand(op, val)

	default:
		return Unknown, fmt.Errorf("cond: unsupported function %q", f.Name)
	}
}

func containsOperand(container, val *Operand) (TriState, error) {
	switch {
	case container.S != nil && val.S != nil:
		return fromBool(strings.Contains(*container.S, *val.S)), nil
	case container.SS != nil && val.S != nil:
		for _, s := range container.SS {
			if s == *val.S {
				return True, nil
			}
		}
		return False, nil
	case container.NS != nil && val.N != nil:
		for _, n := range container.NS {
			c, err := collation.CompareN(n, *val.N)
			if err != nil {
				return Unknown, err
			}
			if c == 0 {
				return True, nil
			}
		}
		return False, nil
	case container.BS != nil && val.B != nil:
		for _, b := range container.BS {
			if bytes.Equal(b, val.B) {
				return True, nil
			}
		}
		return False, nil
	case container.L != nil:
		for _, item := range container.L {
			op, err := operandOf(item)
			if err != nil {
				return Unknown, err
			}
			eq, err := op.equal(val)
			if err != nil {
				continue
			}
			if eq {
				return True, nil
			}
		}
		return False, nil
	default:
		return Unknown, fmt.Errorf("cond: contains not supported for container type %s", container.typeName())
	}
}

// Size is a NUMBER-valued function used only as a comparison operand
// ("size(#x) > :n"), never directly in Eval.
type Size struct {
	Path *AttributePath
}

func (s *Size) Resolve(env *Env) (*Operand, bool, error) {
	av, ok, err := s.Path.resolveValue(env)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	var n int
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		n = len(v.Value)
	case *types.AttributeValueMemberB:
		n = len(v.Value)
	case *types.AttributeValueMemberSS:
		n = len(v.Value)
	case *types.AttributeValueMemberNS:
		n = len(v.Value)
	case *types.AttributeValueMemberBS:
		n = len(v.Value)
	case *types.AttributeValueMemberL:
		n = len(v.Value)
	case *types.AttributeValueMemberM:
		n = len(v.Value)
	default:
		return nil, false, fmt.Errorf("cond: size() not supported for type %T", av)
	}
	s2 := fmt.Sprintf("%d", n)
	return &Operand{N: &s2}, true, nil
}

func typeTag(av types.AttributeValue) string {
	switch av.(type) {
	case *types.AttributeValueMemberS:
		return "S"
	case *types.AttributeValueMemberN:
		return "N"
	case *types.AttributeValueMemberB:
		return "B"
	case *types.AttributeValueMemberSS:
		return "SS"
	case *types.AttributeValueMemberNS:
		return "NS"
	case *types.AttributeValueMemberBS:
		return "BS"
	case *types.AttributeValueMemberBOOL:
		return "BOOL"
	case *types.AttributeValueMemberNULL:
		return "NULL"
	case *types.AttributeValueMemberL:
		return "L"
	case *types.AttributeValueMemberM:
		return "M"
	default:
		return ""
	}
}
