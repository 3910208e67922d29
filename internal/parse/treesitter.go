package parse

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

func parseTree(lang *sitter.Language, content []byte) (*sitter.Node, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing failed: %w", err)
	}
	return tree.RootNode(), nil
}

// walk visits every node below root depth-first.
func walk(root *sitter.Node, visit func(n *sitter.Node)) {
	iter := sitter.NewIterator(root, sitter.DFSMode)
	for {
		n, err := iter.Next()
		if err != nil || n == nil {
			return
		}
		visit(n)
	}
}

func unquote(s string) string {
	return strings.Trim(s, "\"'`")
}

// GoImports extracts import paths from Go source.
type GoImports struct{}

// Extract implements Extractor.
func (GoImports) Extract(content []byte) ([]string, error) {
	root, err := parseTree(golang.GetLanguage(), content)
	if err != nil {
		return nil, err
	}

	var ids []string
	walk(root, func(n *sitter.Node) {
		if n.Type() != "import_spec" {
			return
		}
		if path := n.ChildByFieldName("path"); path != nil {
			ids = append(ids, unquote(path.Content(content)))
		}
	})
	return distinct(ids), nil
}

// JSImports extracts module specifiers from the JavaScript family: static
// imports, re-exports, dynamic import() and require(). The zero value parses
// JavaScript.
type JSImports struct {
	grammar *sitter.Language
}

// TypeScriptImports parses .ts sources, including import x = require("y").
func TypeScriptImports() JSImports {
	return JSImports{grammar: typescript.GetLanguage()}
}

// TSXImports parses .tsx sources.
func TSXImports() JSImports {
	return JSImports{grammar: tsx.GetLanguage()}
}

// Extract implements Extractor.
func (j JSImports) Extract(content []byte) ([]string, error) {
	lang := j.grammar
	if lang == nil {
		lang = javascript.GetLanguage()
	}
	root, err := parseTree(lang, content)
	if err != nil {
		return nil, err
	}

	var ids []string
	walk(root, func(n *sitter.Node) {
		switch n.Type() {
		case "import_statement", "export_statement":
			if src := n.ChildByFieldName("source"); src != nil {
				ids = append(ids, unquote(src.Content(content)))
			}
		case "import_require_clause":
			if src := firstString(n, content); src != "" {
				ids = append(ids, src)
			}
		case "call_expression":
			if src := callSource(n, content); src != "" {
				ids = append(ids, src)
			}
		}
	})
	return distinct(ids), nil
}

// callSource returns the string argument of import("x") or require("x").
func callSource(n *sitter.Node, content []byte) string {
	if n.ChildCount() < 2 {
		return ""
	}

	callee := n.Child(0)
	switch {
	case callee == nil:
		return ""
	case callee.Type() == "import":
	case callee.Type() == "identifier" && callee.Content(content) == "require":
	default:
		return ""
	}

	args := n.Child(1)
	if args == nil || args.Type() != "arguments" {
		return ""
	}
	return firstString(args, content)
}

// firstString returns the first string literal directly under n, unquoted.
func firstString(n *sitter.Node, content []byte) string {
	for i := 0; i < int(n.ChildCount()); i++ {
		if child := n.Child(i); child != nil && child.Type() == "string" {
			return unquote(child.Content(content))
		}
	}
	return ""
}
