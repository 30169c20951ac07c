package types

// LanguageTag identifies a supported programming or markup language
type LanguageTag string

// Unknown is the sentinel tag for files whose extension is not mapped
const Unknown LanguageTag = ""

const (
	TagPython   LanguageTag = "PYTHON"
	TagJS       LanguageTag = "JS"
	TagTS       LanguageTag = "TS"
	TagJava     LanguageTag = "JAVA"
	TagCPP      LanguageTag = "CPP"
	TagGo       LanguageTag = "GO"
	TagRuby     LanguageTag = "RUBY"
	TagRust     LanguageTag = "RUST"
	TagPHP      LanguageTag = "PHP"
	TagProto    LanguageTag = "PROTO"
	TagRST      LanguageTag = "RST"
	TagScala    LanguageTag = "SCALA"
	TagMarkdown LanguageTag = "MARKDOWN"
	TagLatex    LanguageTag = "LATEX"
	TagHTML     LanguageTag = "HTML"
	TagSol      LanguageTag = "SOL"
	TagCSharp   LanguageTag = "CSHARP"
	TagCobol    LanguageTag = "COBOL"
	TagC        LanguageTag = "C"
	TagLua      LanguageTag = "LUA"
	TagPerl     LanguageTag = "PERL"
	TagElixir   LanguageTag = "ELIXIR"
	TagKotlin   LanguageTag = "KOTLIN"

	// Plain-text tags without a structural splitter
	TagText  LanguageTag = "TEXT"
	TagYAML  LanguageTag = "YAML"
	TagJSON  LanguageTag = "JSON"
	TagShell LanguageTag = "SHELL"
)

// AllTags lists every known tag in classification precedence order
var AllTags = []LanguageTag{
	TagPython, TagJS, TagTS, TagJava, TagCPP, TagGo, TagRuby, TagRust, TagPHP,
	TagProto, TagRST, TagScala, TagMarkdown, TagLatex, TagHTML, TagSol, TagCSharp,
	TagCobol, TagC, TagLua, TagPerl, TagElixir, TagKotlin,
	TagText, TagYAML, TagJSON, TagShell,
}

// String returns the tag name, or "UNKNOWN" for the sentinel
func (t LanguageTag) String() string {
	if t == Unknown {
		return "UNKNOWN"
	}
	return string(t)
}

// IsKnown reports whether t is one of AllTags
func (t LanguageTag) IsKnown() bool {
	for _, known := range AllTags {
		if t == known {
			return true
		}
	}
	return false
}
