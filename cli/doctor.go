package cli

import (
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/alecthomas/repr"

	"github.com/robinvdvleuten/dinero/ledger"
)

// DoctorCmd provides doctor utilities for debugging ledger files and queries.
type DoctorCmd struct {
	Expr  ExprCmd  `cmd:"" help:"Show the syntax tree of an expression."`
	Query QueryCmd `cmd:"" help:"Show how command line query terms are rewritten and parsed."`
}

// ExprCmd parses an expression and dumps its syntax tree.
type ExprCmd struct {
	Expression string `help:"Expression to parse, for example 'account =~ /^Expenses/ and amount > 10 EUR'." arg:""`
}

// Run executes the expr command.
func (cmd *ExprCmd) Run(ctx *kong.Context) error {
	node, err := ledger.ParseExpression(cmd.Expression)
	if err != nil {
		return err
	}
	dumpNode(ctx, node)
	return nil
}

// QueryCmd shows the expression built from query terms.
type QueryCmd struct {
	Terms []string `help:"Query terms as given to print or balance." arg:""`
}

// Run executes the query command.
func (cmd *QueryCmd) Run(ctx *kong.Context) error {
	src := ledger.PreprocessQuery(cmd.Terms)
	_, _ = fmt.Fprintf(ctx.Stdout, "%s %s\n", infoStyle.Render("query:"), src)

	node, err := ledger.ParseExpression(src)
	if err != nil {
		return err
	}
	dumpNode(ctx, node)
	return nil
}

// dumpNode prints the canonical form of node and its structure.
func dumpNode(ctx *kong.Context, node ledger.Node) {
	_, _ = fmt.Fprintf(ctx.Stdout, "%s %s\n", infoStyle.Render("canonical:"), node)
	_, _ = fmt.Fprintln(ctx.Stdout, repr.String(node, repr.Indent("  "), repr.OmitEmpty(true)))
}
