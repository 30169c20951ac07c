package language

import (
	"path/filepath"
	"strings"

	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

// extensionRule maps one tag to its extensions. Order in extensionTable is precedence.
type extensionRule struct {
	tag        types.LanguageTag
	extensions []string
}

var extensionTable = []extensionRule{
	{types.TagPython, []string{".py"}},
	{types.TagJS, []string{".js", ".jsx", ".mjs"}},
	{types.TagTS, []string{".ts", ".tsx"}},
	{types.TagJava, []string{".java"}},
	{types.TagCPP, []string{".cpp", ".hpp", ".cc", ".h", ".cxx", ".hxx"}},
	{types.TagGo, []string{".go"}},
	{types.TagRuby, []string{".rb", ".rake", ".gemspec"}},
	{types.TagRust, []string{".rs"}},
	{types.TagPHP, []string{".php"}},
	{types.TagProto, []string{".proto"}},
	{types.TagRST, []string{".rst"}},
	{types.TagScala, []string{".scala"}},
	{types.TagMarkdown, []string{".md", ".markdown"}},
	{types.TagLatex, []string{".tex"}},
	{types.TagHTML, []string{".html", ".htm"}},
	{types.TagSol, []string{".sol"}},
	{types.TagCSharp, []string{".cs"}},
	{types.TagCobol, []string{".cob", ".cbl"}},
	{types.TagC, []string{".c", ".h"}},
	{types.TagLua, []string{".lua"}},
	{types.TagPerl, []string{".pl", ".pm"}},
	{types.TagElixir, []string{".ex", ".exs"}},
	{types.TagKotlin, []string{".kt", ".kts"}},
	{types.TagText, []string{".txt"}},
	{types.TagYAML, []string{".yaml", ".yml"}},
	{types.TagJSON, []string{".json"}},
	{types.TagShell, []string{".sh", ".bash"}},
}

// byExtension is built once from extensionTable; the first tag claiming an extension keeps it
var byExtension = buildExtensionIndex()

func buildExtensionIndex() map[string]types.LanguageTag {
	index := make(map[string]types.LanguageTag)
	for _, rule := range extensionTable {
		for _, ext := range rule.extensions {
			if _, taken := index[ext]; !taken {
				index[ext] = rule.tag
			}
		}
	}
	return index
}

// Classify maps a file path to its LanguageTag by lower-cased extension.
// Unmapped extensions return types.Unknown.
func Classify(path string) types.LanguageTag {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return types.Unknown
	}
	return byExtension[ext]
}

// Extensions returns the extensions a tag owns after precedence is applied
func Extensions(tag types.LanguageTag) []string {
	var out []string
	for _, rule := range extensionTable {
		if rule.tag != tag {
			continue
		}
		for _, ext := range rule.extensions {
			if byExtension[ext] == tag {
				out = append(out, ext)
			}
		}
	}
	return out
}

var tagAliases = map[string]types.LanguageTag{
	"python":           types.TagPython,
	"javascript":       types.TagJS,
	"typescript":       types.TagTS,
	"c++":              types.TagCPP,
	"c#":               types.TagCSharp,
	"golang":           types.TagGo,
	"solidity":         types.TagSol,
	"tex":              types.TagLatex,
	"md":               types.TagMarkdown,
	"restructuredtext": types.TagRST,
	"bash":             types.TagShell,
	"yml":              types.TagYAML,
	"txt":              types.TagText,
}

// ParseTag parses a user-supplied language name, case-insensitively.
// It returns false for names that match no tag.
func ParseTag(name string) (types.LanguageTag, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Unknown, false
	}
	upper := types.LanguageTag(strings.ToUpper(name))
	if upper.IsKnown() {
		return upper, true
	}
	if tag, ok := tagAliases[strings.ToLower(name)]; ok {
		return tag, true
	}
	return types.Unknown, false
}
