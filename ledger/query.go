package ledger

import (
	"strings"
)

// PreprocessQuery turns command line query tokens into a single boolean expression.
//
//	word        account =~ /(?i)word/
//	@word       payee =~ /(?i)word/
//	%word       has_tag(/(?i)word/)
//	/re/        /re/ (matched against the account)
//	expr ...    the remaining tokens, verbatim
//
// Terms are joined with "or" unless the keyword "and" precedes them; "or" may also be
// written explicitly. Every term is parenthesized and so is the whole result.
func PreprocessQuery(tokens []string) string {
	var b strings.Builder
	first, and := true, false

	join := func() {
		switch {
		case first:
			b.WriteString("(")
		case and:
			b.WriteString(" and (")
		default:
			b.WriteString(" or (")
		}
		first = false
	}

	for i := 0; i < len(tokens); i++ {
		term := strings.TrimSpace(tokens[i])
		switch term {
		case "":
			continue
		case "and":
			and = true
			continue
		case "or":
			and = false
			continue
		case "expr":
			rest := strings.TrimSpace(strings.Join(tokens[i+1:], " "))
			if rest != "" {
				join()
				b.WriteString(rest)
				b.WriteString(")")
			}
			i = len(tokens)
			continue
		}

		join()
		switch {
		case strings.HasPrefix(term, "%"):
			b.WriteString("has_tag(/(?i)" + term[1:] + "/)")
		case len(term) > 1 && strings.HasPrefix(term, "/") && strings.HasSuffix(term, "/"):
			b.WriteString(term)
		case strings.HasPrefix(term, "@"):
			b.WriteString("payee =~ /(?i)" + term[1:] + "/")
		default:
			b.WriteString("account =~ /(?i)" + term + "/")
		}
		b.WriteString(")")
		and = false
	}

	return "(" + b.String() + ")"
}

// QueryCache compiles expressions once and returns the same tree for the same source.
type QueryCache struct {
	nodes map[string]Node
}

// NewQueryCache creates an empty cache.
func NewQueryCache() *QueryCache {
	return &QueryCache{nodes: make(map[string]Node)}
}

// Compile parses src, or returns the tree parsed for it before.
func (c *QueryCache) Compile(src string) (Node, error) {
	if n, ok := c.nodes[src]; ok {
		return n, nil
	}
	n, err := ParseExpression(src)
	if err != nil {
		return nil, err
	}
	c.nodes[src] = n
	return n, nil
}

// CompileQuery preprocesses tokens and compiles the resulting expression. An empty token
// list yields a nil predicate, which matches everything.
func (c *QueryCache) CompileQuery(tokens []string) (Node, error) {
	if len(strings.TrimSpace(strings.Join(tokens, ""))) == 0 {
		return nil, nil
	}
	return c.Compile(PreprocessQuery(tokens))
}
