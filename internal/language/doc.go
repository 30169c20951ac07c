// Package language classifies source files and holds the per-language chunking tables.
//
// Both tables are static data: an ordered extension table consulted by
// Classify, and a ChunkPolicy table consulted by PolicyFor. Extension
// ambiguity is resolved by table order, so ".h" belongs to CPP because CPP is
// listed before C.
//
//	tag := language.Classify("/src/include/util.h") // types.TagCPP
//	policy := language.PolicyFor(tag)               // 1500/300, structural
package language
