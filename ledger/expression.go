package ledger

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/robinvdvleuten/dinero/ast"
	"github.com/shopspring/decimal"
)

// Node is a parsed expression.
type Node interface {
	String() string
	node()
}

// Variable reads a property of the posting or transaction being evaluated.
type Variable struct {
	Name string
}

// Literal is a constant value: a number, a regex, a string or a date.
type Literal struct {
	Value Value
}

// MoneyLiteral is an amount with a commodity. The commodity is resolved at evaluation time
// so that aliases apply.
type MoneyLiteral struct {
	Amount    *big.Rat
	Commodity string
}

// UnaryOp enumerates the operators taking a single operand.
type UnaryOp int

const (
	Not UnaryOp = iota
	Neg
	Abs
	Any
	HasTag
	TagOp
	ToDate
)

var unaryNames = map[UnaryOp]string{
	Not: "not", Neg: "-", Abs: "abs", Any: "any", HasTag: "has_tag", TagOp: "tag", ToDate: "to_date",
}

// UnaryExpr applies Op to X.
type UnaryExpr struct {
	Op UnaryOp
	X  Node
}

// BinaryOp enumerates the operators taking two operands.
type BinaryOp int

const (
	Add BinaryOp = iota
	Subtract
	Mult
	Div
	Or
	And
	Eq
	Lt
	Gt
	Le
	Ge
)

var binaryNames = map[BinaryOp]string{
	Add: "+", Subtract: "-", Mult: "*", Div: "/", Or: "or", And: "and",
	Eq: "==", Lt: "<", Gt: ">", Le: "<=", Ge: ">=",
}

// BinaryExpr applies Op to X and Y.
type BinaryExpr struct {
	Op   BinaryOp
	X, Y Node
}

// Function is a formatting call: str, upper, lower, quantity or commodity.
type Function struct {
	Name string
	Args []Node
}

func (*Variable) node()     {}
func (*Literal) node()      {}
func (*MoneyLiteral) node() {}
func (*UnaryExpr) node()    {}
func (*BinaryExpr) node()   {}
func (*Function) node()     {}

func (v *Variable) String() string { return v.Name }
func (l *Literal) String() string  { return literalString(l.Value) }

func (m *MoneyLiteral) String() string {
	return fmt.Sprintf("%s %s", decimal.NewFromBigRat(m.Amount, 8).String(), m.Commodity)
}

func (u *UnaryExpr) String() string {
	switch u.Op {
	case Not:
		return "not " + u.X.String()
	case Neg:
		return "-" + u.X.String()
	default:
		return fmt.Sprintf("%s(%s)", unaryNames[u.Op], u.X)
	}
}

func (b *BinaryExpr) String() string {
	op := binaryNames[b.Op]
	if lit, ok := b.Y.(*Literal); ok && b.Op == Eq {
		if _, isRegex := lit.Value.(RegexValue); isRegex {
			op = "=~"
		}
	}
	return fmt.Sprintf("(%s %s %s)", b.X, op, b.Y)
}

func (f *Function) String() string {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", f.Name, strings.Join(args, ", "))
}

func literalString(v Value) string {
	switch v := v.(type) {
	case RegexValue:
		return "/" + v.Re.String() + "/"
	case StringValue:
		return fmt.Sprintf("%q", string(v))
	case DateValue:
		return "[" + time.Time(v).Format(ast.DateLayout) + "]"
	default:
		return v.String()
	}
}

// variables lists the names a Variable may take.
var variables = map[string]bool{
	"amount": true, "account": true, "payee": true, "note": true, "date": true,
	"description": true, "code": true, "commodity": true, "depth": true,
	"cleared": true, "real": true,
}

var unaryFunctions = map[string]UnaryOp{
	"abs": Abs, "any": Any, "has_tag": HasTag, "tag": TagOp, "to_date": ToDate,
}

var formatFunctions = map[string]bool{
	"str": true, "upper": true, "lower": true, "quantity": true, "commodity": true,
}

// ParseExpression parses src into an expression tree.
//
// Operators, loosest first: "or" / "|", "and" / "&", comparisons (== = =~ != < > <= >=),
// "+" and "-", "*" and "/", and the prefix operators "not", "!" and "-". "%tag" is short for
// has_tag(/tag/). Literals are numbers, amounts ("12.50 EUR" or "EUR 12.50"), regular
// expressions (/re/), strings ("s" or 's') and dates ([2021-01-15]).
//
// The prefix operators bind tighter than every binary operator, comparisons included:
// "not account =~ /Food/" negates account before matching and fails to evaluate. Write
// "not (account =~ /Food/)" instead.
//
// Every failure is an *ExpressionError.
func ParseExpression(src string) (Node, error) {
	p := &exprParser{input: src}
	n, err := p.parseExpr(0)
	if err != nil {
		return nil, p.wrap(err)
	}
	if !p.isAtEnd() {
		return nil, p.wrap(p.errorf("unexpected %q at position %d", p.rest(), p.pos))
	}
	return n, nil
}

// MustParseExpression is like ParseExpression but panics on error.
// Use only in tests or for expressions known to be valid.
func MustParseExpression(src string) Node {
	n, err := ParseExpression(src)
	if err != nil {
		panic(err)
	}
	return n
}

// exprParser is a Pratt parser working directly on the input characters. Whether "/"
// starts a regex or divides depends on the position, so tokens are read on demand.
type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) wrap(err error) error {
	if e, ok := err.(*ExpressionError); ok {
		e.Expr = p.input
		return e
	}
	return &ExpressionError{Kind: Syntax, Expr: p.input, Message: err.Error()}
}

func (p *exprParser) errorf(format string, args ...any) *ExpressionError {
	return newExpressionError(Syntax, format, args...)
}

func (p *exprParser) skipWhitespace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t' || p.input[p.pos] == '\n') {
		p.pos++
	}
}

func (p *exprParser) isAtEnd() bool {
	p.skipWhitespace()
	return p.pos >= len(p.input)
}

func (p *exprParser) rest() string {
	return p.input[p.pos:]
}

func (p *exprParser) peek() rune {
	p.skipWhitespace()
	if p.pos >= len(p.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(p.input[p.pos:])
	return r
}

func (p *exprParser) consume(s string) bool {
	p.skipWhitespace()
	if strings.HasPrefix(p.input[p.pos:], s) {
		p.pos += len(s)
		return true
	}
	return false
}

func (p *exprParser) expect(s string) error {
	if !p.consume(s) {
		return p.errorf("expected %q at position %d", s, p.pos)
	}
	return nil
}

// peekWord returns the identifier at the current position without consuming it.
func (p *exprParser) peekWord() string {
	p.skipWhitespace()
	end := p.pos
	for end < len(p.input) {
		r, size := utf8.DecodeRuneInString(p.input[end:])
		if !isIdentRune(r, end == p.pos) {
			break
		}
		end += size
	}
	return p.input[p.pos:end]
}

func isIdentRune(r rune, first bool) bool {
	if unicode.IsLetter(r) || r == '_' || unicode.Is(unicode.Sc, r) {
		return true
	}
	return !first && (unicode.IsDigit(r) || r == ':' || r == '.')
}

type infixOp struct {
	token string
	op    BinaryOp
	prec  int
	not   bool
}

// infixOps is ordered so that longer tokens are tried first.
var infixOps = []infixOp{
	{token: "or", op: Or, prec: 1},
	{token: "||", op: Or, prec: 1},
	{token: "|", op: Or, prec: 1},
	{token: "and", op: And, prec: 2},
	{token: "&&", op: And, prec: 2},
	{token: "&", op: And, prec: 2},
	{token: "==", op: Eq, prec: 3},
	{token: "=~", op: Eq, prec: 3},
	{token: "!=", op: Eq, prec: 3, not: true},
	{token: "<=", op: Le, prec: 3},
	{token: ">=", op: Ge, prec: 3},
	{token: "=", op: Eq, prec: 3},
	{token: "<", op: Lt, prec: 3},
	{token: ">", op: Gt, prec: 3},
	{token: "+", op: Add, prec: 4},
	{token: "-", op: Subtract, prec: 4},
	{token: "*", op: Mult, prec: 5},
	{token: "/", op: Div, prec: 5},
}

func (p *exprParser) peekInfix() (infixOp, bool) {
	p.skipWhitespace()
	s := p.rest()
	for _, op := range infixOps {
		if !strings.HasPrefix(s, op.token) {
			continue
		}
		if op.token == "or" || op.token == "and" {
			if p.peekWord() != op.token {
				continue
			}
		}
		return op, true
	}
	return infixOp{}, false
}

func (p *exprParser) parseExpr(minPrec int) (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		op, ok := p.peekInfix()
		if !ok || op.prec < minPrec {
			break
		}
		p.pos += len(op.token)

		right, err := p.parseExpr(op.prec + 1)
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op.op, X: left, Y: right}
		if op.not {
			left = &UnaryExpr{Op: Not, X: left}
		}
	}
	return left, nil
}

func (p *exprParser) parseUnary() (Node, error) {
	switch {
	case p.peekWord() == "not":
		p.pos += len("not")
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: Not, X: x}, nil
	case p.peek() == '!':
		p.pos++
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: Not, X: x}, nil
	case p.peek() == '-':
		p.pos++
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: Neg, X: x}, nil
	case p.peek() == '%':
		p.pos++
		name := p.peekWord()
		if name == "" {
			return nil, p.errorf("expected tag name at position %d", p.pos)
		}
		p.pos += len(name)
		re, err := regexp.Compile(regexp.QuoteMeta(name))
		if err != nil {
			return nil, p.errorf("invalid tag %q: %v", name, err)
		}
		return &UnaryExpr{Op: HasTag, X: &Literal{Value: RegexValue{Re: re}}}, nil
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (Node, error) {
	ch := p.peek()
	switch {
	case ch == 0:
		return nil, p.errorf("unexpected end of expression")
	case ch == '(':
		p.pos++
		n, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return n, nil
	case ch == '/':
		return p.parseRegex()
	case ch == '"' || ch == '\'':
		s, err := p.parseString()
		if err != nil {
			return nil, err
		}
		return &Literal{Value: StringValue(s)}, nil
	case ch == '[':
		return p.parseDate()
	case ch >= '0' && ch <= '9' || ch == '.':
		return p.parseNumberOrMoney()
	}

	word := p.peekWord()
	if word == "" {
		return nil, p.errorf("unexpected %q at position %d", ch, p.pos)
	}
	p.pos += len(word)

	switch {
	case word == "true" || word == "false":
		return &Literal{Value: BoolValue(word == "true")}, nil
	case p.peek() == '(':
		return p.parseCall(word)
	case variables[word]:
		return &Variable{Name: word}, nil
	}

	// A commodity followed by a number: "EUR 12.50".
	if r := p.peek(); r >= '0' && r <= '9' || r == '-' {
		q, err := p.parseQuantity()
		if err != nil {
			return nil, err
		}
		return &MoneyLiteral{Amount: q, Commodity: word}, nil
	}
	return nil, newExpressionError(UnknownVariable, "%q", word)
}

func (p *exprParser) parseCall(name string) (Node, error) {
	p.pos++ // consume '('
	var args []Node
	if !p.consume(")") {
		for {
			arg, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.consume(")") {
				break
			}
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
	}

	if op, ok := unaryFunctions[name]; ok {
		if len(args) != 1 {
			return nil, p.errorf("%s expects one argument, got %d", name, len(args))
		}
		return &UnaryExpr{Op: op, X: args[0]}, nil
	}
	if formatFunctions[name] {
		if len(args) != 1 {
			return nil, p.errorf("%s expects one argument, got %d", name, len(args))
		}
		return &Function{Name: name, Args: args}, nil
	}
	return nil, p.errorf("unknown function %q", name)
}

func (p *exprParser) parseQuantity() (*big.Rat, error) {
	p.skipWhitespace()
	start := p.pos
	if p.pos < len(p.input) && p.input[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == '_' {
			p.pos++
			continue
		}
		break
	}
	q, err := ParseQuantity(p.input[start:p.pos])
	if err != nil {
		return nil, p.errorf("invalid number %q", p.input[start:p.pos])
	}
	return q, nil
}

func (p *exprParser) parseNumberOrMoney() (Node, error) {
	q, err := p.parseQuantity()
	if err != nil {
		return nil, err
	}

	// A number directly followed by a commodity: "12.50 EUR", "12.50 €" or 12 "S&P 500".
	save := p.pos
	if p.peek() == '"' {
		s, err := p.parseString()
		if err != nil {
			return nil, err
		}
		return &MoneyLiteral{Amount: q, Commodity: s}, nil
	}
	if word := p.peekWord(); word != "" && !variables[word] && !isKeyword(word) {
		p.pos += len(word)
		if p.peek() != '(' {
			return &MoneyLiteral{Amount: q, Commodity: word}, nil
		}
		p.pos = save
	}
	return &Literal{Value: NumberValue{Rat: q}}, nil
}

func isKeyword(word string) bool {
	switch word {
	case "and", "or", "not", "true", "false":
		return true
	}
	_, fn := unaryFunctions[word]
	return fn || formatFunctions[word]
}

func (p *exprParser) parseRegex() (Node, error) {
	p.pos++ // consume '/'
	var b strings.Builder
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		switch {
		case c == '\\' && p.pos+1 < len(p.input) && p.input[p.pos+1] == '/':
			b.WriteByte('/')
			p.pos += 2
			continue
		case c == '/':
			p.pos++
			re, err := regexp.Compile(b.String())
			if err != nil {
				return nil, p.errorf("invalid regex /%s/: %v", b.String(), err)
			}
			return &Literal{Value: RegexValue{Re: re}}, nil
		}
		b.WriteByte(c)
		p.pos++
	}
	return nil, p.errorf("unterminated regex")
}

func (p *exprParser) parseString() (string, error) {
	p.skipWhitespace()
	quote := p.input[p.pos]
	p.pos++
	end := strings.IndexByte(p.input[p.pos:], quote)
	if end < 0 {
		return "", p.errorf("unterminated string")
	}
	s := p.input[p.pos : p.pos+end]
	p.pos += end + 1
	return s, nil
}

func (p *exprParser) parseDate() (Node, error) {
	p.pos++ // consume '['
	end := strings.IndexByte(p.input[p.pos:], ']')
	if end < 0 {
		return nil, p.errorf("unterminated date")
	}
	text := strings.TrimSpace(p.input[p.pos : p.pos+end])
	p.pos += end + 1

	var d ast.Date
	if err := d.Capture([]string{text}); err != nil {
		return nil, p.errorf("%v", err)
	}
	return &Literal{Value: DateValue(d.Time)}, nil
}
