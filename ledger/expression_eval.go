package ledger

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/robinvdvleuten/dinero/ast"
)

// Value is the result of evaluating an expression.
type Value interface {
	String() string
	kind() string
}

type (
	NumberValue  struct{ Rat *big.Rat }
	MoneyValue   struct{ Money Money }
	BoolValue    bool
	AccountValue struct{ Account *Account }
	PayeeValue   struct{ Payee *Payee }
	RegexValue   struct{ Re *regexp.Regexp }
	StringValue  string
	DateValue    time.Time
)

func (NumberValue) kind() string  { return "number" }
func (MoneyValue) kind() string   { return "money" }
func (BoolValue) kind() string    { return "boolean" }
func (AccountValue) kind() string { return "account" }
func (PayeeValue) kind() string   { return "payee" }
func (RegexValue) kind() string   { return "regex" }
func (StringValue) kind() string  { return "string" }
func (DateValue) kind() string    { return "date" }

func (v NumberValue) String() string  { return roundRat(v.Rat, 8).String() }
func (v MoneyValue) String() string   { return v.Money.Format() }
func (v BoolValue) String() string    { return fmt.Sprint(bool(v)) }
func (v AccountValue) String() string { return v.Account.String() }
func (v PayeeValue) String() string   { return v.Payee.String() }
func (v RegexValue) String() string   { return v.Re.String() }
func (v StringValue) String() string  { return string(v) }
func (v DateValue) String() string    { return time.Time(v).Format(ast.DateLayout) }

// RegexCache memoizes compiled patterns by their source text.
type RegexCache struct {
	compiled map[string]*regexp.Regexp
}

// NewRegexCache creates an empty cache.
func NewRegexCache() *RegexCache {
	return &RegexCache{compiled: make(map[string]*regexp.Regexp)}
}

// Compile returns the compiled pattern, compiling it on first use. A nil cache compiles
// every time.
func (c *RegexCache) Compile(pattern string) (*regexp.Regexp, error) {
	if c == nil {
		return regexp.Compile(pattern)
	}
	if re, ok := c.compiled[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	c.compiled[pattern] = re
	return re, nil
}

// Env is everything an expression can see: one posting, its transaction, the commodity
// directory used to resolve amount literals, and a regex cache.
type Env struct {
	Posting     *Posting
	Transaction *Transaction
	Commodities *Directory[*Currency]
	Regexes     *RegexCache
}

// Evaluate computes the value of n in env.
func Evaluate(n Node, env *Env) (Value, error) {
	if env.Regexes == nil {
		env.Regexes = NewRegexCache()
	}
	return env.eval(n)
}

// EvaluateBool evaluates n and interprets the result as a condition. A bare regex matches
// the account name.
func EvaluateBool(n Node, env *Env) (bool, error) {
	v, err := Evaluate(n, env)
	if err != nil {
		return false, err
	}
	return env.truth(v)
}

func mismatch(format string, args ...any) *ExpressionError {
	return newExpressionError(TypeMismatch, format, args...)
}

func (env *Env) eval(n Node) (Value, error) {
	switch n := n.(type) {
	case *Literal:
		return n.Value, nil
	case *MoneyLiteral:
		return MoneyValue{Money: NewMoney(n.Amount, env.commodity(n.Commodity))}, nil
	case *Variable:
		return env.variable(n.Name)
	case *UnaryExpr:
		return env.unary(n)
	case *BinaryExpr:
		return env.binary(n)
	case *Function:
		return env.function(n)
	case nil:
		return nil, newExpressionError(Syntax, "empty expression")
	default:
		return nil, newExpressionError(Syntax, "unsupported node %T", n)
	}
}

func (env *Env) commodity(name string) *Currency {
	if env.Commodities != nil {
		if c, err := env.Commodities.Get(name); err == nil {
			return c
		}
	}
	return NewCurrency(name, OriginInferred)
}

func (env *Env) date() time.Time {
	if env.Posting != nil && !env.Posting.Date.IsZero() {
		return env.Posting.Date
	}
	if env.Transaction != nil {
		return env.Transaction.Date
	}
	return time.Time{}
}

func (env *Env) variable(name string) (Value, error) {
	p, t := env.Posting, env.Transaction
	if p == nil || t == nil {
		return nil, newExpressionError(UnknownVariable, "%q has no posting to read from", name)
	}

	switch name {
	case "amount":
		if p.Amount == nil {
			return MoneyValue{Money: Zero}, nil
		}
		return MoneyValue{Money: *p.Amount}, nil
	case "account":
		return AccountValue{Account: p.Account}, nil
	case "payee":
		return PayeeValue{Payee: p.EffectivePayee()}, nil
	case "note":
		return StringValue(strings.Join(append(append([]string{}, t.Comments...), p.Comments...), "\n")), nil
	case "date":
		return DateValue(env.date()), nil
	case "description":
		return StringValue(t.Description), nil
	case "code":
		return StringValue(t.Code), nil
	case "commodity":
		if p.Amount == nil {
			return StringValue(""), nil
		}
		return StringValue(p.Amount.Currency().String()), nil
	case "depth":
		return NumberValue{Rat: big.NewRat(int64(p.Account.Depth()), 1)}, nil
	case "cleared":
		return BoolValue(t.Cleared), nil
	case "real":
		return BoolValue(p.Kind == ast.PostingReal), nil
	}
	return nil, newExpressionError(UnknownVariable, "%q", name)
}

func (env *Env) truth(v Value) (bool, error) {
	switch v := v.(type) {
	case BoolValue:
		return bool(v), nil
	case RegexValue:
		if env.Posting == nil || env.Posting.Account == nil {
			return false, nil
		}
		return v.Re.MatchString(env.Posting.Account.Name()), nil
	}
	return false, mismatch("expected a condition, got %s", v.kind())
}

func (env *Env) cond(n Node) (bool, error) {
	v, err := env.eval(n)
	if err != nil {
		return false, err
	}
	return env.truth(v)
}

// pattern turns a regex or string operand into a compiled pattern.
func (env *Env) pattern(v Value) (*regexp.Regexp, error) {
	switch v := v.(type) {
	case RegexValue:
		return v.Re, nil
	case StringValue:
		re, err := env.Regexes.Compile(string(v))
		if err != nil {
			return nil, newExpressionError(Syntax, "invalid regex %q: %v", string(v), err)
		}
		return re, nil
	}
	return nil, mismatch("expected a pattern, got %s", v.kind())
}

func (env *Env) unary(u *UnaryExpr) (Value, error) {
	switch u.Op {
	case Not:
		b, err := env.cond(u.X)
		if err != nil {
			return nil, err
		}
		return BoolValue(!b), nil

	case Any:
		if env.Transaction == nil {
			return BoolValue(false), nil
		}
		for _, p := range env.Transaction.AllPostings() {
			sub := *env
			sub.Posting = p
			ok, err := sub.cond(u.X)
			if err != nil {
				return nil, err
			}
			if ok {
				return BoolValue(true), nil
			}
		}
		return BoolValue(false), nil
	}

	x, err := env.eval(u.X)
	if err != nil {
		return nil, err
	}

	switch u.Op {
	case Neg, Abs:
		f := func(r *big.Rat) *big.Rat { return new(big.Rat).Neg(r) }
		if u.Op == Abs {
			f = func(r *big.Rat) *big.Rat { return new(big.Rat).Abs(r) }
		}
		switch x := x.(type) {
		case NumberValue:
			return NumberValue{Rat: f(x.Rat)}, nil
		case MoneyValue:
			return MoneyValue{Money: NewMoney(f(x.Money.rat()), x.Money.currency)}, nil
		}
		return nil, mismatch("%s needs a number or an amount, got %s", unaryNames[u.Op], x.kind())

	case HasTag, TagOp:
		re, err := env.pattern(x)
		if err != nil {
			return nil, err
		}
		if env.Posting == nil {
			return BoolValue(false), nil
		}
		if u.Op == HasTag {
			return BoolValue(env.Posting.HasTag(re)), nil
		}
		value, _ := env.Posting.TagValue(re)
		return StringValue(value), nil

	case ToDate:
		s, ok := x.(StringValue)
		if !ok {
			return nil, mismatch("to_date needs a string, got %s", x.kind())
		}
		var d ast.Date
		if err := d.Capture([]string{strings.TrimSpace(string(s))}); err != nil {
			return nil, mismatch("to_date: %v", err)
		}
		return DateValue(d.Time), nil
	}
	return nil, newExpressionError(Syntax, "unknown unary operator %d", u.Op)
}

func (env *Env) binary(b *BinaryExpr) (Value, error) {
	switch b.Op {
	case And, Or:
		left, err := env.cond(b.X)
		if err != nil {
			return nil, err
		}
		if b.Op == And && !left {
			return BoolValue(false), nil
		}
		if b.Op == Or && left {
			return BoolValue(true), nil
		}
		right, err := env.cond(b.Y)
		if err != nil {
			return nil, err
		}
		return BoolValue(right), nil
	}

	right, err := env.eval(b.Y)
	if err != nil {
		return nil, err
	}

	if re, ok := right.(RegexValue); ok && b.Op == Eq {
		return env.match(b.X, re.Re)
	}

	left, err := env.eval(b.X)
	if err != nil {
		return nil, err
	}

	switch b.Op {
	case Add, Subtract, Mult, Div:
		return arithmetic(b.Op, left, right)
	case Eq:
		eq, err := equal(left, right)
		return BoolValue(eq), err
	default:
		c, err := compare(left, right)
		if err != nil {
			return nil, err
		}
		switch b.Op {
		case Lt:
			return BoolValue(c < 0), nil
		case Gt:
			return BoolValue(c > 0), nil
		case Le:
			return BoolValue(c <= 0), nil
		default:
			return BoolValue(c >= 0), nil
		}
	}
}

// match applies re to the string form of x. The note variable matches when any comment of
// the transaction or posting does.
func (env *Env) match(x Node, re *regexp.Regexp) (Value, error) {
	if v, ok := x.(*Variable); ok && v.Name == "note" && env.Transaction != nil {
		comments := env.Transaction.Comments
		if env.Posting != nil {
			comments = append(append([]string{}, comments...), env.Posting.Comments...)
		}
		for _, c := range comments {
			if re.MatchString(c) {
				return BoolValue(true), nil
			}
		}
		return BoolValue(false), nil
	}

	left, err := env.eval(x)
	if err != nil {
		return nil, err
	}
	return BoolValue(re.MatchString(left.String())), nil
}

func arithmetic(op BinaryOp, left, right Value) (Value, error) {
	apply := func(x, y *big.Rat) (*big.Rat, error) {
		switch op {
		case Add:
			return new(big.Rat).Add(x, y), nil
		case Subtract:
			return new(big.Rat).Sub(x, y), nil
		case Mult:
			return new(big.Rat).Mul(x, y), nil
		default:
			if y.Sign() == 0 {
				return nil, newExpressionError(DivisionByZero, "%s / %s", x.RatString(), y.RatString())
			}
			return new(big.Rat).Quo(x, y), nil
		}
	}

	switch l := left.(type) {
	case NumberValue:
		switch r := right.(type) {
		case NumberValue:
			v, err := apply(l.Rat, r.Rat)
			if err != nil {
				return nil, err
			}
			return NumberValue{Rat: v}, nil
		case MoneyValue:
			if op != Mult {
				break
			}
			return MoneyValue{Money: r.Money.Mul(l.Rat)}, nil
		}

	case MoneyValue:
		switch r := right.(type) {
		case NumberValue:
			if op != Mult && op != Div {
				break
			}
			v, err := apply(l.Money.rat(), r.Rat)
			if err != nil {
				return nil, err
			}
			return MoneyValue{Money: NewMoney(v, l.Money.currency)}, nil
		case MoneyValue:
			if op == Mult {
				break
			}
			cur, err := sameCurrency(l.Money, r.Money)
			if err != nil {
				return nil, err
			}
			v, err := apply(l.Money.rat(), r.Money.rat())
			if err != nil {
				return nil, err
			}
			if op == Div {
				return NumberValue{Rat: v}, nil
			}
			return MoneyValue{Money: NewMoney(v, cur)}, nil
		}
	}
	return nil, mismatch("cannot apply %s to %s and %s", binaryNames[op], left.kind(), right.kind())
}

// sameCurrency returns the commodity shared by a and b. A zero amount adopts the other's.
func sameCurrency(a, b Money) (*Currency, error) {
	switch {
	case a.currency == nil || (a.IsZero() && b.currency != nil):
		return b.currency, nil
	case b.currency == nil || b.IsZero():
		return a.currency, nil
	case a.currency.Equal(b.currency):
		return a.currency, nil
	}
	return nil, newExpressionError(CurrencyMismatch, "%s and %s", a.currency, b.currency)
}

func compare(left, right Value) (int, error) {
	switch l := left.(type) {
	case NumberValue:
		switch r := right.(type) {
		case NumberValue:
			return l.Rat.Cmp(r.Rat), nil
		case MoneyValue:
			return l.Rat.Cmp(r.Money.rat()), nil
		}
	case MoneyValue:
		switch r := right.(type) {
		case NumberValue:
			return l.Money.rat().Cmp(r.Rat), nil
		case MoneyValue:
			if _, err := sameCurrency(l.Money, r.Money); err != nil {
				return 0, err
			}
			return l.Money.rat().Cmp(r.Money.rat()), nil
		}
	case DateValue:
		if r, ok := right.(DateValue); ok {
			return time.Time(l).Compare(time.Time(r)), nil
		}
	}
	return 0, mismatch("cannot order %s and %s", left.kind(), right.kind())
}

func equal(left, right Value) (bool, error) {
	switch l := left.(type) {
	case NumberValue, MoneyValue, DateValue:
		c, err := compare(left, right)
		return c == 0, err
	case BoolValue:
		if r, ok := right.(BoolValue); ok {
			return l == r, nil
		}
	case StringValue:
		return strings.EqualFold(string(l), right.String()), nil
	case AccountValue:
		switch r := right.(type) {
		case AccountValue:
			return l.Account == r.Account, nil
		case StringValue:
			return strings.EqualFold(l.Account.Name(), string(r)), nil
		}
	case PayeeValue:
		switch r := right.(type) {
		case PayeeValue:
			return l.Payee == r.Payee, nil
		case StringValue:
			return strings.EqualFold(l.Payee.String(), string(r)), nil
		}
	}
	return false, mismatch("cannot compare %s with %s", left.kind(), right.kind())
}

func (env *Env) function(f *Function) (Value, error) {
	if len(f.Args) != 1 {
		return nil, newExpressionError(Syntax, "%s expects one argument", f.Name)
	}
	x, err := env.eval(f.Args[0])
	if err != nil {
		return nil, err
	}

	switch f.Name {
	case "str":
		return StringValue(x.String()), nil
	case "upper", "lower":
		s, ok := x.(StringValue)
		if !ok {
			s = StringValue(x.String())
		}
		if f.Name == "upper" {
			return StringValue(strings.ToUpper(string(s))), nil
		}
		return StringValue(strings.ToLower(string(s))), nil
	case "quantity", "commodity":
		m, ok := x.(MoneyValue)
		if !ok {
			return nil, mismatch("%s needs an amount, got %s", f.Name, x.kind())
		}
		if f.Name == "quantity" {
			return NumberValue{Rat: m.Money.Amount()}, nil
		}
		return StringValue(m.Money.currency.String()), nil
	}
	return nil, newExpressionError(Syntax, "unknown function %q", f.Name)
}
