// Package chunker splits decoded source files into bounded, overlapping chunks.
//
// Every language has a ChunkPolicy (see package language) with a maximum chunk
// size and an overlap, both counted in characters. The chunker moves a window of
// MaxSize characters over the file and cuts each window at the best boundary it
// can find in the window's upper half:
//
//  1. For Go, a top-level declaration start reported by package parser.
//  2. A language marker from the separator registry, such as "\ndef " for
//     Python or "\n## " for Markdown, in priority order.
//  3. A paragraph break, then a line break, then a space.
//  4. The window edge, if nothing else matched.
//
// The next chunk starts Overlap characters before the previous cut, so
// dropping the first Overlap characters of every chunk after the first and
// concatenating the rest gives back the original text.
//
// # Basic Usage
//
//	c := chunker.New(logger)
//	chunks := c.Chunk(record, "https://github.com/acme/repo", language.PolicyFor(record.Tag))
//	for _, ch := range chunks {
//	    fmt.Printf("%s lines %d-%d\n", ch.Path, ch.StartLine, ch.EndLine)
//	}
//
// Tags without registry entries are split with the generic separators only.
// The chunker logs this once per tag and never fails.
package chunker
