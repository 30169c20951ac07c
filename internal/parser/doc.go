// Package parser finds top-level declaration boundaries in Go source.
//
// The chunker prefers to cut Go files between declarations rather than in the
// middle of a function body. This package supplies those cut points using the
// standard go/parser and go/ast packages:
//
//	p := parser.New()
//	res := p.Parse("server.go", src)
//	for _, d := range res.Declarations {
//	    fmt.Printf("%s %s at %d\n", d.Kind, d.Name, d.Start)
//	}
//
// A declaration starts at the first line of its doc comment, so a function and
// its documentation land in the same chunk.
//
// Offsets are in characters, matching the chunker's rune-based windows, not
// the byte offsets go/token reports.
//
// # Error Handling
//
// Syntax errors are non-fatal. go/parser returns a partial AST for broken
// files and the declarations it recovered are still reported, with Result.Err
// describing the failure. The chunker falls back to textual separators for
// the rest.
package parser
