package chunker

import (
	"log/slog"
	"sync"

	"github.com/hyunolike/learnathon-1st-team1/internal/language"
	"github.com/hyunolike/learnathon-1st-team1/internal/parser"
	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

// Chunker splits decoded files into bounded, overlapping chunks
type Chunker struct {
	parser *parser.Parser
	logger *slog.Logger
	warned sync.Map // LanguageTag -> struct{}, tags already reported as unsplittable
}

// New creates a new Chunker instance
func New(logger *slog.Logger) *Chunker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chunker{
		parser: parser.New(),
		logger: logger,
	}
}

// Chunk splits record.Content according to policy. Chunk IDs derive from
// source, the record's relative path and the chunk ordinal.
// Empty content yields no chunks.
func (c *Chunker) Chunk(record *types.FileRecord, source string, policy language.ChunkPolicy) []types.Chunk {
	if record == nil || record.Content == "" {
		return nil
	}
	policy = policy.Normalize()

	text := []rune(record.Content)
	seps, structural := separatorsFor(record.Tag)
	if !structural {
		c.warnOnce(record.Tag)
	}

	var boundaries []int
	if record.Tag == types.TagGo && len(text) > policy.MaxSize {
		res := c.parser.Parse(record.Path, record.Content)
		if res.Err != nil {
			c.logger.Debug("go parse incomplete, using text separators", "path", record.Path, "error", res.Err)
		}
		boundaries = res.Boundaries()
	}

	spans := split(text, policy, boundaries, seps)
	lines := newLineIndex(text)

	path := record.RelPath
	if path == "" {
		path = record.Path
	}

	chunks := make([]types.Chunk, 0, len(spans))
	for i, sp := range spans {
		chunks = append(chunks, types.Chunk{
			ID:          types.ChunkID(source, path, i),
			Source:      source,
			Path:        path,
			Tag:         record.Tag,
			Ordinal:     i,
			Text:        string(text[sp.start:sp.end]),
			StartOffset: sp.start,
			EndOffset:   sp.end,
			StartLine:   lines.lineAt(sp.start),
			EndLine:     lines.lineAt(sp.end - 1),
		})
	}
	return chunks
}

func (c *Chunker) warnOnce(tag types.LanguageTag) {
	if _, loaded := c.warned.LoadOrStore(tag, struct{}{}); loaded {
		return
	}
	if isPlainText(tag) {
		c.logger.Debug("no structural splitter, using generic separators", "language", tag.String())
		return
	}
	c.logger.Warn("no structural splitter for language, falling back to generic separators", "language", tag.String())
}

func isPlainText(tag types.LanguageTag) bool {
	switch tag {
	case types.TagText, types.TagYAML, types.TagJSON, types.TagShell:
		return true
	}
	return false
}

type span struct {
	start, end int
}

// split walks text with a window of policy.MaxSize characters. Each window is
// cut at the best boundary in its upper half, or hard at the window edge, and
// the next window starts policy.Overlap characters before the cut.
func split(text []rune, policy language.ChunkPolicy, boundaries []int, seps []separator) []span {
	n := len(text)
	if n == 0 {
		return nil
	}

	minAdvance := policy.Overlap + 1
	if half := policy.MaxSize / 2; half > minAdvance {
		minAdvance = half
	}

	var spans []span
	start := 0
	for {
		if n-start <= policy.MaxSize {
			spans = append(spans, span{start, n})
			return spans
		}

		lo, hi := start+minAdvance, start+policy.MaxSize
		end := findCut(text, lo, hi, boundaries, seps)
		spans = append(spans, span{start, end})
		start = end - policy.Overlap
	}
}

// findCut picks a cut in [lo, hi]: declaration boundaries first, then
// separators in priority order, otherwise hi
func findCut(text []rune, lo, hi int, boundaries []int, seps []separator) int {
	for i := len(boundaries) - 1; i >= 0; i-- {
		b := boundaries[i]
		if b > hi {
			continue
		}
		if b >= lo {
			return b
		}
		break
	}

	for _, sep := range seps {
		if cut := sep.lastCut(text, lo, hi); cut >= 0 {
			return cut
		}
	}
	return hi
}

// lineIndex maps character offsets to 1-based line numbers
type lineIndex struct {
	newlines []int // offsets of '\n', ascending
}

func newLineIndex(text []rune) lineIndex {
	var nl []int
	for i, r := range text {
		if r == '\n' {
			nl = append(nl, i)
		}
	}
	return lineIndex{newlines: nl}
}

func (l lineIndex) lineAt(offset int) int {
	lo, hi := 0, len(l.newlines)
	for lo < hi {
		mid := (lo + hi) / 2
		if l.newlines[mid] < offset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo + 1
}
