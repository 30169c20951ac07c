package types

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// FileRecord is one decoded source file, alive only until its chunks are produced
type FileRecord struct {
	Path     string // Absolute path on disk
	RelPath  string // Path relative to the ingested root
	Tag      LanguageTag
	Content  string
	Encoding string // Name of the encoding that decoded Content
}

// Chunk is a bounded, possibly overlapping slice of one file's text
type Chunk struct {
	// Identification
	ID      string
	Source  string // Ingested tree: repository URL or absolute root path
	Path    string // Relative to the ingested root
	Tag     LanguageTag
	Ordinal int // Position within the file, 0-based

	// Content
	Text string

	// Location in characters of the decoded file, EndOffset exclusive
	StartOffset int
	EndOffset   int

	// Location in lines, 1-based and inclusive
	StartLine int
	EndLine   int
}

// ChunkID derives a stable chunk identifier from its provenance and ordinal
func ChunkID(source, path string, ordinal int) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(ordinal)))
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// Len returns the chunk length in characters
func (c *Chunk) Len() int {
	return c.EndOffset - c.StartOffset
}

// Validate checks basic chunk invariants
func (c *Chunk) Validate() error {
	if c.Text == "" {
		return ErrEmptyContent
	}
	if c.StartOffset > c.EndOffset {
		return ErrInvalidOffsets
	}
	return nil
}
