package parser

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"sort"
	"unicode/utf8"
)

// DeclKind classifies a top-level Go declaration
type DeclKind string

const (
	KindFunction DeclKind = "function"
	KindMethod   DeclKind = "method"
	KindType     DeclKind = "type"
	KindConst    DeclKind = "const"
	KindVar      DeclKind = "var"
	KindImport   DeclKind = "import"
)

// Declaration is one top-level declaration. Start includes the doc comment.
// Offsets are in characters of the source text, End exclusive.
type Declaration struct {
	Kind      DeclKind
	Name      string
	Receiver  string
	Start     int
	End       int
	StartLine int
}

// Result holds the declarations recovered from one file
type Result struct {
	PackageName  string
	Declarations []Declaration
	Err          error // Syntax error, if any; Declarations may still be partial
}

// Boundaries returns the sorted, distinct declaration start offsets
func (r *Result) Boundaries() []int {
	if r == nil {
		return nil
	}
	out := make([]int, 0, len(r.Declarations))
	for _, d := range r.Declarations {
		if len(out) > 0 && out[len(out)-1] == d.Start {
			continue
		}
		out = append(out, d.Start)
	}
	return out
}

// Parser finds declaration boundaries in Go source using go/ast
type Parser struct{}

// New creates a new Parser instance
func New() *Parser {
	return &Parser{}
}

// Parse parses Go source text. Syntax errors are non-fatal: whatever the
// parser recovered is returned with Err set.
func (p *Parser) Parse(filename, src string) *Result {
	fset := token.NewFileSet()
	result := &Result{}

	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		result.Err = fmt.Errorf("syntax error: %w", err)
	}
	if file == nil {
		return result
	}
	if file.Name != nil {
		result.PackageName = file.Name.Name
	}

	tf := fset.File(file.Pos())
	if tf == nil {
		return result
	}
	conv := newOffsetConverter(src)

	for _, decl := range file.Decls {
		d := Declaration{}
		start := decl.Pos()

		switch n := decl.(type) {
		case *ast.FuncDecl:
			d.Kind = KindFunction
			d.Name = n.Name.Name
			if n.Recv != nil && len(n.Recv.List) > 0 {
				d.Kind = KindMethod
				d.Receiver = receiverName(n.Recv.List[0].Type)
			}
			if n.Doc != nil {
				start = n.Doc.Pos()
			}
		case *ast.GenDecl:
			d.Kind = genDeclKind(n.Tok)
			d.Name = genDeclName(n)
			if n.Doc != nil {
				start = n.Doc.Pos()
			}
		default:
			continue
		}

		if !start.IsValid() || !decl.End().IsValid() {
			continue
		}
		startByte := lineStart(src, tf.Offset(start))
		endByte := tf.Offset(decl.End())

		d.Start = conv.runeOffset(startByte)
		d.End = conv.runeOffset(endByte)
		d.StartLine = tf.Line(start)
		result.Declarations = append(result.Declarations, d)
	}

	sort.SliceStable(result.Declarations, func(i, j int) bool {
		return result.Declarations[i].Start < result.Declarations[j].Start
	})
	return result
}

// Boundaries is a shortcut for Parse(filename, src).Boundaries()
func (p *Parser) Boundaries(filename, src string) []int {
	return p.Parse(filename, src).Boundaries()
}

func genDeclKind(tok token.Token) DeclKind {
	switch tok {
	case token.TYPE:
		return KindType
	case token.CONST:
		return KindConst
	case token.IMPORT:
		return KindImport
	default:
		return KindVar
	}
}

// genDeclName names a declaration after its first spec
func genDeclName(g *ast.GenDecl) string {
	if len(g.Specs) == 0 {
		return ""
	}
	switch s := g.Specs[0].(type) {
	case *ast.TypeSpec:
		return s.Name.Name
	case *ast.ValueSpec:
		if len(s.Names) > 0 {
			return s.Names[0].Name
		}
	case *ast.ImportSpec:
		return s.Path.Value
	}
	return ""
}

func receiverName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverName(t.X)
	case *ast.IndexExpr:
		return receiverName(t.X)
	case *ast.IndexListExpr:
		return receiverName(t.X)
	case *ast.Ident:
		return t.Name
	}
	return ""
}

// lineStart moves a byte offset back to the beginning of its line
func lineStart(src string, off int) int {
	if off > len(src) {
		off = len(src)
	}
	for off > 0 && src[off-1] != '\n' {
		off--
	}
	return off
}

// offsetConverter maps byte offsets to character offsets. It remembers the
// last conversion and counts from there, so converting the offsets of a
// file's declarations in source order is linear in the file size.
type offsetConverter struct {
	src      string
	ascii    bool
	lastByte int
	lastRune int
}

func newOffsetConverter(src string) *offsetConverter {
	ascii := true
	for i := 0; i < len(src); i++ {
		if src[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	return &offsetConverter{src: src, ascii: ascii}
}

// runeOffset converts byteOff, which must fall on a character boundary
func (c *offsetConverter) runeOffset(byteOff int) int {
	if byteOff > len(c.src) {
		byteOff = len(c.src)
	}
	if c.ascii {
		return byteOff
	}
	if byteOff >= c.lastByte {
		c.lastRune += utf8.RuneCountInString(c.src[c.lastByte:byteOff])
	} else {
		c.lastRune -= utf8.RuneCountInString(c.src[byteOff:c.lastByte])
	}
	c.lastByte = byteOff
	return c.lastRune
}
