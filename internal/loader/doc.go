// Package loader reads source files and decodes them into text.
//
// Repositories mix encodings. Most files are UTF-8, but legacy trees carry
// CP949/EUC-KR sources and the occasional UTF-16 file with a byte order mark.
// The Resolver tries a BOM check first, then a statistical guess from
// github.com/saintfish/chardet, then a fixed fallback list:
//
//	utf-8, cp949, euc-kr, ascii
//
// A candidate only wins when it decodes the whole file strictly. Decoders from
// golang.org/x/text substitute U+FFFD for invalid input, so any replacement
// character in the output rejects the candidate.
//
// Files nothing can decode are reported as *LoadFailure and skipped by the
// pipeline; they never abort an ingestion run.
package loader
