package parser

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
)

// Node tags shared by all language parsers.
const (
	TagFunction = "function"
	TagMethod   = "method"
	TagClass    = "class"
)

// GoParser extracts top-level declarations from Go source using the
// standard library AST. It holds no state; every Parse call builds its
// own FileSet, so instances are safe to share across workers.
type GoParser struct{}

// Language returns the language tag this parser handles.
func (p *GoParser) Language() string { return "go" }

// Parse returns the file's top-level function, method, and type
// declarations in source order. It iterates the file's declaration
// list directly rather than walking the AST, so closures and other
// nested declarations never become nodes.
func (p *GoParser) Parse(src []byte) ([]Node, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "src.go", src, 0)
	if err != nil {
		return nil, fmt.Errorf("parse go source: %w", err)
	}

	nodes := make([]Node, 0, len(file.Decls))
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			tag := TagFunction
			if d.Recv != nil && len(d.Recv.List) > 0 {
				tag = TagMethod
			}
			nodes = append(nodes, p.node(fset, tag, d.Pos(), d.End()))
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			nodes = append(nodes, p.node(fset, TagClass, d.Pos(), d.End()))
		}
	}

	return nodes, nil
}

func (p *GoParser) node(fset *token.FileSet, tag string, pos, end token.Pos) Node {
	start := fset.Position(pos)
	stop := fset.Position(end)
	return Node{
		Tag:       tag,
		StartByte: start.Offset,
		EndByte:   stop.Offset,
		StartLine: start.Line,
		EndLine:   stop.Line,
	}
}
