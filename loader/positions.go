package loader

import (
	"github.com/robinvdvleuten/dinero/ast"
	"gopkg.in/yaml.v3"
)

// stampPositions copies line and column of every list item in doc onto the matching
// element of tree. Positions already present in the document are kept.
func stampPositions(filename string, doc *yaml.Node, tree *ast.Ledger) {
	at := func(n *yaml.Node, pos *ast.Position) {
		if pos.Filename == "" {
			pos.Filename = filename
		}
		if pos.Line == 0 {
			pos.Line, pos.Column = n.Line, n.Column
		}
	}

	for i, n := range items(doc, "accounts") {
		if i < len(tree.Accounts) {
			at(n, &tree.Accounts[i].Pos)
		}
	}
	for i, n := range items(doc, "commodities") {
		if i < len(tree.Commodities) {
			at(n, &tree.Commodities[i].Pos)
		}
	}
	for i, n := range items(doc, "payees") {
		if i < len(tree.Payees) {
			at(n, &tree.Payees[i].Pos)
		}
	}
	for i, n := range items(doc, "prices") {
		if i < len(tree.Prices) {
			at(n, &tree.Prices[i].Pos)
		}
	}
	for i, n := range items(doc, "transactions") {
		if i >= len(tree.Transactions) {
			break
		}
		txn := tree.Transactions[i]
		at(n, &txn.Pos)
		for j, pn := range items(n, "postings") {
			if j < len(txn.Postings) {
				at(pn, &txn.Postings[j].Pos)
			}
		}
	}
}

// items returns the elements of the sequence stored under key in mapping n.
func items(n *yaml.Node, key string) []*yaml.Node {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value != key {
			continue
		}
		seq := n.Content[i+1]
		if seq.Kind == yaml.AliasNode {
			seq = seq.Alias
		}
		if seq == nil || seq.Kind != yaml.SequenceNode {
			return nil
		}
		return seq.Content
	}
	return nil
}
