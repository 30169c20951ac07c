package chunker

import (
	"bytes"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyunolike/learnathon-1st-team1/internal/language"
	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

func record(tag types.LanguageTag, content string) *types.FileRecord {
	return &types.FileRecord{Path: "/repo/file", RelPath: "file", Tag: tag, Content: content}
}

// reconstruct drops the overlap prefix of every chunk after the first
func reconstruct(chunks []types.Chunk, overlap int) string {
	var b strings.Builder
	for i, c := range chunks {
		text := []rune(c.Text)
		if i > 0 {
			text = text[overlap:]
		}
		b.WriteString(string(text))
	}
	return b.String()
}

func TestChunk_Empty(t *testing.T) {
	c := New(nil)

	assert.Empty(t, c.Chunk(record(types.TagGo, ""), "src", language.PolicyFor(types.TagGo)))
	assert.Empty(t, c.Chunk(nil, "src", language.PolicyFor(types.TagGo)))
}

func TestChunk_FitsInOne(t *testing.T) {
	c := New(nil)
	content := "package main\n\nfunc main() {}\n"

	chunks := c.Chunk(record(types.TagGo, content), "src", language.PolicyFor(types.TagGo))

	require.Len(t, chunks, 1)
	assert.Equal(t, content, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, len(content), chunks[0].EndOffset)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 3, chunks[0].EndLine)
	assert.Equal(t, types.ChunkID("src", "file", 0), chunks[0].ID)
	assert.Equal(t, "file", chunks[0].Path)
	assert.Equal(t, "src", chunks[0].Source)
}

func TestChunk_ExactlyMaxSize(t *testing.T) {
	c := New(nil)
	policy := language.ChunkPolicy{MaxSize: 50, Overlap: 10}

	chunks := c.Chunk(record(types.TagText, strings.Repeat("x", 50)), "src", policy)
	assert.Len(t, chunks, 1)

	chunks = c.Chunk(record(types.TagText, strings.Repeat("x", 51)), "src", policy)
	assert.Len(t, chunks, 2)
}

func TestChunk_CountWithoutSeparators(t *testing.T) {
	c := New(nil)

	tests := []struct {
		n, maxSize, overlap int
	}{
		{1000, 100, 20},
		{101, 100, 20},
		{5000, 1500, 300},
		{2400, 800, 150},
		{999, 600, 100},
		{300, 100, 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d/%d/%d", tt.n, tt.maxSize, tt.overlap), func(t *testing.T) {
			policy := language.ChunkPolicy{MaxSize: tt.maxSize, Overlap: tt.overlap}
			content := strings.Repeat("x", tt.n)

			chunks := c.Chunk(record(types.TagText, content), "src", policy)

			step := tt.maxSize - tt.overlap
			want := (tt.n - tt.overlap + step - 1) / step
			assert.Len(t, chunks, want)
			for _, ch := range chunks {
				assert.LessOrEqual(t, ch.Len(), tt.maxSize)
			}
			assert.Equal(t, content, reconstruct(chunks, tt.overlap))
		})
	}
}

func TestChunk_OverlapAndReconstruction(t *testing.T) {
	c := New(nil)
	rng := rand.New(rand.NewSource(7))
	words := []string{"alpha", "beta", "func", "def", "class", "값", "データ", "{", "}", "\n", "\n\n", "  "}

	for _, tag := range []types.LanguageTag{types.TagGo, types.TagPython, types.TagMarkdown, types.TagHTML, types.TagText, types.TagKotlin} {
		t.Run(tag.String(), func(t *testing.T) {
			var b strings.Builder
			for b.Len() < 20000 {
				b.WriteString(words[rng.Intn(len(words))])
				b.WriteString(" ")
			}
			content := b.String()
			policy := language.PolicyFor(tag)

			chunks := c.Chunk(record(tag, content), "src", policy)
			require.Greater(t, len(chunks), 1)

			runes := []rune(content)
			for i, ch := range chunks {
				assert.Equal(t, i, ch.Ordinal)
				assert.LessOrEqual(t, ch.Len(), policy.MaxSize)
				assert.Equal(t, string(runes[ch.StartOffset:ch.EndOffset]), ch.Text)
				if i > 0 {
					assert.Equal(t, chunks[i-1].EndOffset-policy.Overlap, ch.StartOffset)
				}
			}
			assert.Equal(t, 0, chunks[0].StartOffset)
			assert.Equal(t, len(runes), chunks[len(chunks)-1].EndOffset)
			assert.Equal(t, content, reconstruct(chunks, policy.Overlap))
		})
	}
}

func TestChunk_PythonPrefersDefBoundaries(t *testing.T) {
	c := New(nil)

	var b strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "def handler_%d(event):\n", i)
		for j := 0; j < 8; j++ {
			fmt.Fprintf(&b, "    value_%d = event.get(%d)\n", j, j)
		}
		b.WriteString("    return value_0\n")
	}
	content := b.String()
	runes := []rune(content)

	chunks := c.Chunk(record(types.TagPython, content), "src", language.PolicyFor(types.TagPython))
	require.Greater(t, len(chunks), 2)

	for _, ch := range chunks[:len(chunks)-1] {
		assert.True(t, strings.HasPrefix(string(runes[ch.EndOffset:]), "def handler_"),
			"chunk %d should end right before a def", ch.Ordinal)
	}
}

func TestChunk_GoPrefersDeclarations(t *testing.T) {
	c := New(nil)

	var b strings.Builder
	b.WriteString("package sample\n\n")
	for i := 0; i < 80; i++ {
		fmt.Fprintf(&b, "// Compute%d returns a constant.\n// It exists for testing.\nfunc Compute%d() int {\n\tx := %d\n\n\treturn x\n}\n\n", i, i, i)
	}
	content := b.String()
	runes := []rune(content)

	chunks := c.Chunk(record(types.TagGo, content), "src", language.PolicyFor(types.TagGo))
	require.Greater(t, len(chunks), 2)

	for _, ch := range chunks[:len(chunks)-1] {
		assert.True(t, strings.HasPrefix(string(runes[ch.EndOffset:]), "// Compute"),
			"chunk %d should end before a declaration's doc comment", ch.Ordinal)
	}
}

func TestChunk_GoSyntaxErrorFallsBack(t *testing.T) {
	c := New(nil)
	content := "package broken\n\nfunc ( {\n" + strings.Repeat("\tcall()\n", 400)

	chunks := c.Chunk(record(types.TagGo, content), "src", language.PolicyFor(types.TagGo))

	require.NotEmpty(t, chunks)
	assert.Equal(t, content, reconstruct(chunks, language.PolicyFor(types.TagGo).Overlap))
}

func TestChunk_UnicodeOffsets(t *testing.T) {
	c := New(nil)
	content := strings.Repeat("한글과 日本語 테스트 ", 200)
	policy := language.ChunkPolicy{MaxSize: 100, Overlap: 10}

	chunks := c.Chunk(record(types.TagText, content), "src", policy)
	runes := []rune(content)

	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len([]rune(ch.Text)), 100)
		assert.Equal(t, string(runes[ch.StartOffset:ch.EndOffset]), ch.Text)
	}
}

func TestChunk_LineNumbers(t *testing.T) {
	c := New(nil)
	var b strings.Builder
	for i := 1; i <= 100; i++ {
		fmt.Fprintf(&b, "line %03d\n", i)
	}
	policy := language.ChunkPolicy{MaxSize: 200, Overlap: 0}

	chunks := c.Chunk(record(types.TagText, b.String()), "src", policy)
	require.Greater(t, len(chunks), 1)

	// every line is 9 characters, cut on newlines
	for _, ch := range chunks {
		assert.Equal(t, ch.StartOffset/9+1, ch.StartLine)
		assert.Equal(t, (ch.EndOffset-1)/9+1, ch.EndLine)
		assert.True(t, strings.HasPrefix(ch.Text, "line "))
	}
	assert.Equal(t, 100, chunks[len(chunks)-1].EndLine)
}

func TestChunk_DegeneratePolicyIsNormalized(t *testing.T) {
	c := New(nil)

	chunks := c.Chunk(record(types.TagText, strings.Repeat("y", 95)), "src", language.ChunkPolicy{MaxSize: 10, Overlap: 10})

	require.NotEmpty(t, chunks)
	assert.Equal(t, strings.Repeat("y", 95), reconstruct(chunks, 2))
}

func TestChunk_UnknownTagWarnsOnce(t *testing.T) {
	var buf bytes.Buffer
	c := New(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))
	content := strings.Repeat("word ", 500)

	first := c.Chunk(record(types.LanguageTag("FORTRAN"), content), "src", language.DefaultPolicy)
	second := c.Chunk(record(types.LanguageTag("FORTRAN"), content), "src", language.DefaultPolicy)

	assert.NotEmpty(t, first)
	assert.Equal(t, len(first), len(second))
	assert.Equal(t, 1, strings.Count(buf.String(), "no structural splitter"))

	buf.Reset()
	c.Chunk(record(types.TagYAML, content), "src", language.DefaultPolicy)
	assert.Empty(t, buf.String(), "plain text tags log at debug only")
}

func TestChunk_IDsUniqueAndStable(t *testing.T) {
	c := New(nil)
	content := strings.Repeat("z", 5000)

	a := c.Chunk(record(types.TagText, content), "https://example.com/repo", language.DefaultPolicy)
	b := c.Chunk(record(types.TagText, content), "https://example.com/repo", language.DefaultPolicy)

	seen := make(map[string]bool)
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.False(t, seen[a[i].ID])
		seen[a[i].ID] = true
	}

	other := c.Chunk(record(types.TagText, content), "/other/root", language.DefaultPolicy)
	assert.NotEqual(t, a[0].ID, other[0].ID)
}

func TestRegistryMatchesPolicies(t *testing.T) {
	for _, tag := range types.AllTags {
		assert.Equal(t, language.HasStructuralSplitter(tag), HasStructuralSplitter(tag), "tag %s", tag)
	}
	assert.False(t, HasStructuralSplitter(types.Unknown))
}

func TestSeparator_Cut(t *testing.T) {
	text := []rune("one\n\ndef two():\n    pass\n")

	kw := newSeparator("\ndef ")
	assert.Equal(t, 1, kw.cut)
	assert.Equal(t, 5, kw.lastCut(text, 0, len(text)))

	para := newSeparator("\n\n")
	assert.Equal(t, 2, para.cut)
	assert.Equal(t, 5, para.lastCut(text, 0, len(text)))

	assert.Equal(t, -1, kw.lastCut(text, 6, len(text)))
}
