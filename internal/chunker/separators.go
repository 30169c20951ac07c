package chunker

import (
	"strings"

	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

// genericSeparators close every separator list: paragraph, line, word
var genericSeparators = []string{"\n\n", "\n", " "}

// registry holds language boundary markers in priority order. A tag missing
// here is split with genericSeparators only.
var registry = map[types.LanguageTag][]string{
	types.TagPython: {"\nclass ", "\ndef ", "\n\tdef ", "\n    def "},
	types.TagJS: {
		"\nfunction ", "\nconst ", "\nlet ", "\nvar ", "\nclass ", "\nexport ",
		"\nif ", "\nfor ", "\nwhile ", "\nswitch ", "\ncase ", "\ndefault ",
	},
	types.TagTS: {
		"\nenum ", "\ninterface ", "\nnamespace ", "\ntype ", "\nclass ", "\nfunction ",
		"\nexport ", "\nconst ", "\nlet ", "\nvar ", "\nif ", "\nfor ", "\nwhile ",
		"\nswitch ", "\ncase ", "\ndefault ",
	},
	types.TagJava: {
		"\nclass ", "\npublic ", "\nprotected ", "\nprivate ", "\nstatic ",
		"\nif ", "\nfor ", "\nwhile ", "\nswitch ", "\ncase ",
	},
	types.TagCPP: {
		"\nclass ", "\nvoid ", "\nint ", "\nfloat ", "\ndouble ",
		"\nif ", "\nfor ", "\nwhile ", "\nswitch ", "\ncase ",
	},
	types.TagC: {
		"\nstruct ", "\nvoid ", "\nint ", "\nfloat ", "\ndouble ", "\nstatic ",
		"\nif ", "\nfor ", "\nwhile ", "\nswitch ", "\ncase ",
	},
	types.TagGo: {
		"\nfunc ", "\nvar ", "\nconst ", "\ntype ",
		"\nif ", "\nfor ", "\nswitch ", "\ncase ",
	},
	types.TagRuby: {
		"\ndef ", "\nclass ", "\nmodule ", "\nif ", "\nunless ", "\nwhile ",
		"\nfor ", "\ndo ", "\nbegin ", "\nrescue ",
	},
	types.TagRust: {
		"\nfn ", "\npub fn ", "\nimpl ", "\nstruct ", "\nenum ", "\ntrait ", "\nmod ",
		"\nconst ", "\nlet ", "\nif ", "\nwhile ", "\nfor ", "\nloop ", "\nmatch ",
	},
	types.TagPHP: {
		"\nfunction ", "\nclass ", "\nif ", "\nforeach ", "\nwhile ",
		"\ndo ", "\nswitch ", "\ncase ",
	},
	types.TagProto: {
		"\nmessage ", "\nservice ", "\nenum ", "\noption ", "\nimport ", "\nsyntax ",
	},
	types.TagRST: {"\n===", "\n---", "\n***", "\n.. "},
	types.TagScala: {
		"\nclass ", "\nobject ", "\ntrait ", "\ndef ", "\nval ", "\nvar ",
		"\nif ", "\nfor ", "\nwhile ", "\nmatch ", "\ncase ",
	},
	types.TagMarkdown: {
		"\n# ", "\n## ", "\n### ", "\n#### ", "\n##### ", "\n###### ",
		"```\n", "\n***\n", "\n---\n", "\n___\n",
	},
	types.TagLatex: {
		"\n\\chapter{", "\n\\section{", "\n\\subsection{", "\n\\subsubsection{",
		"\n\\begin{enumerate}", "\n\\begin{itemize}", "\n\\begin{description}",
		"\n\\begin{list}", "\n\\begin{quote}", "\n\\begin{quotation}",
		"\n\\begin{verse}", "\n\\begin{verbatim}", "\n\\begin{align}", "$$",
	},
	types.TagHTML: {
		"<body", "<div", "<p", "<br", "<li", "<h1", "<h2", "<h3", "<h4", "<h5", "<h6",
		"<span", "<table", "<tr", "<td", "<ul", "<ol", "<header", "<footer", "<nav",
		"<head", "<style", "<script", "<meta", "<title",
	},
	types.TagSol: {
		"\npragma ", "\nusing ", "\ncontract ", "\ninterface ", "\nlibrary ",
		"\nconstructor ", "\ntype ", "\nfunction ", "\nevent ", "\nmodifier ",
		"\nerror ", "\nstruct ", "\nenum ", "\nif ", "\nfor ", "\nwhile ",
		"\ndo while ", "\nassembly ",
	},
	types.TagCSharp: {
		"\ninterface ", "\nenum ", "\nimplements ", "\ndelegate ", "\nevent ",
		"\nclass ", "\nabstract ", "\npublic ", "\nprotected ", "\nprivate ",
		"\nstatic ", "\nreturn ", "\nif ", "\ncontinue ", "\nfor ", "\nforeach ",
		"\nwhile ", "\nswitch ", "\nbreak ", "\ncase ", "\nelse ", "\ntry ",
		"\nthrow ", "\nfinally ", "\ncatch ",
	},
	types.TagCobol: {
		"\nIDENTIFICATION DIVISION.", "\nENVIRONMENT DIVISION.", "\nDATA DIVISION.",
		"\nPROCEDURE DIVISION.", "\nWORKING-STORAGE SECTION.", "\nLINKAGE SECTION.",
		"\nFILE SECTION.", "\nINPUT-OUTPUT SECTION.", "\nOPEN ", "\nCLOSE ",
		"\nREAD ", "\nWRITE ", "\nIF ", "\nELSE ", "\nMOVE ", "\nPERFORM ",
		"\nUNTIL ", "\nVARYING ", "\nACCEPT ", "\nDISPLAY ", "\nSTOP RUN.",
	},
	types.TagLua: {"\nlocal ", "\nfunction ", "\nif ", "\nfor ", "\nwhile ", "\nrepeat "},
	types.TagPerl: {"\npackage ", "\nsub ", "\nuse ", "\nif ", "\nforeach ", "\nwhile "},
	types.TagElixir: {
		"\ndefmodule ", "\ndefprotocol ", "\ndef ", "\ndefp ", "\ndefmacro ",
		"\ndefmacrop ", "\nif ", "\nunless ", "\nwhile ", "\ncase ", "\ncond ",
		"\nwith ", "\nfor ", "\ndo ",
	},
	types.TagKotlin: {
		"\nclass ", "\npublic ", "\nprotected ", "\nprivate ", "\ninternal ",
		"\ncompanion ", "\nfun ", "\nval ", "\nvar ", "\nif ", "\nfor ",
		"\nwhile ", "\nwhen ", "\nelse ",
	},
}

// HasStructuralSplitter reports whether tag has language boundary markers
func HasStructuralSplitter(tag types.LanguageTag) bool {
	return len(registry[tag]) > 0
}

// separatorsFor returns the full separator hierarchy for tag and whether
// the tag had language-specific entries
func separatorsFor(tag types.LanguageTag) ([]separator, bool) {
	lang, ok := registry[tag]
	seps := make([]separator, 0, len(lang)+len(genericSeparators))
	for _, s := range lang {
		seps = append(seps, newSeparator(s))
	}
	for _, s := range genericSeparators {
		seps = append(seps, newSeparator(s))
	}
	return seps, ok
}

// separator is a boundary marker plus the rune offset inside it where a cut goes
type separator struct {
	runes []rune
	cut   int
}

// newSeparator places the cut after whitespace-only markers, and after the
// leading newlines of keyword markers so the keyword opens the next chunk
func newSeparator(s string) separator {
	r := []rune(s)
	if strings.TrimSpace(s) == "" {
		return separator{runes: r, cut: len(r)}
	}
	cut := 0
	for cut < len(r) && r[cut] == '\n' {
		cut++
	}
	return separator{runes: r, cut: cut}
}

// lastCut returns the greatest cut position in [lo, hi] produced by an
// occurrence of sep in text, or -1
func (s separator) lastCut(text []rune, lo, hi int) int {
	n := len(s.runes)
	for i := hi - s.cut; i >= lo-s.cut; i-- {
		if i < 0 {
			break
		}
		if i+n > len(text) {
			continue
		}
		if matchAt(text, i, s.runes) {
			return i + s.cut
		}
	}
	return -1
}

func matchAt(text []rune, i int, sep []rune) bool {
	for j, r := range sep {
		if text[i+j] != r {
			return false
		}
	}
	return true
}
