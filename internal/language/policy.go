package language

import (
	"fmt"

	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

// ChunkPolicy bounds chunk size and overlap in characters for one language
type ChunkPolicy struct {
	MaxSize    int  `yaml:"max_size" json:"max_size"`
	Overlap    int  `yaml:"overlap" json:"overlap"`
	Structural bool `yaml:"-" json:"structural"`
}

// Default policy values for tags without an entry
const (
	DefaultMaxSize = 1000
	DefaultOverlap = 200
)

// DefaultPolicy is used for tags missing from the policy table
var DefaultPolicy = ChunkPolicy{MaxSize: DefaultMaxSize, Overlap: DefaultOverlap}

var policyTable = map[types.LanguageTag]ChunkPolicy{
	types.TagJava:   {MaxSize: 1500, Overlap: 300},
	types.TagCPP:    {MaxSize: 1500, Overlap: 300},
	types.TagCSharp: {MaxSize: 1500, Overlap: 300},
	types.TagGo:     {MaxSize: 1500, Overlap: 300},
	types.TagRust:   {MaxSize: 1500, Overlap: 300},

	types.TagPython: {MaxSize: 1000, Overlap: 200},
	types.TagJS:     {MaxSize: 1000, Overlap: 200},
	types.TagTS:     {MaxSize: 1000, Overlap: 200},
	types.TagRuby:   {MaxSize: 1000, Overlap: 200},
	types.TagPHP:    {MaxSize: 1000, Overlap: 200},
	types.TagPerl:   {MaxSize: 1000, Overlap: 200},

	types.TagHTML:     {MaxSize: 800, Overlap: 150},
	types.TagMarkdown: {MaxSize: 800, Overlap: 150},
	types.TagRST:      {MaxSize: 800, Overlap: 150},
	types.TagLatex:    {MaxSize: 800, Overlap: 150},

	types.TagProto: {MaxSize: 600, Overlap: 100},
}

// structuralTags are the tags with a grammar-aware separator set
var structuralTags = map[types.LanguageTag]bool{
	types.TagPython: true, types.TagJS: true, types.TagTS: true, types.TagJava: true,
	types.TagCPP: true, types.TagGo: true, types.TagRuby: true, types.TagRust: true,
	types.TagPHP: true, types.TagProto: true, types.TagRST: true, types.TagScala: true,
	types.TagMarkdown: true, types.TagLatex: true, types.TagHTML: true, types.TagSol: true,
	types.TagCSharp: true, types.TagCobol: true, types.TagC: true, types.TagLua: true,
	types.TagPerl: true, types.TagElixir: true, types.TagKotlin: true,
}

// HasStructuralSplitter reports whether tag has grammar-aware boundaries
func HasStructuralSplitter(tag types.LanguageTag) bool {
	return structuralTags[tag]
}

// PolicyFor returns the chunk policy for tag, falling back to DefaultPolicy
func PolicyFor(tag types.LanguageTag) ChunkPolicy {
	p, ok := policyTable[tag]
	if !ok {
		p = DefaultPolicy
	}
	p.Structural = HasStructuralSplitter(tag)
	return p
}

// Validate checks the overlap < maxSize invariant
func (p ChunkPolicy) Validate() error {
	if p.MaxSize <= 0 {
		return fmt.Errorf("%w: max size must be positive, got %d", types.ErrInvalidInput, p.MaxSize)
	}
	if p.Overlap < 0 || p.Overlap >= p.MaxSize {
		return fmt.Errorf("%w: overlap %d must be in [0, %d)", types.ErrInvalidInput, p.Overlap, p.MaxSize)
	}
	return nil
}

// Normalize clamps a policy into a valid one. Non-positive sizes take the default.
func (p ChunkPolicy) Normalize() ChunkPolicy {
	if p.MaxSize <= 0 {
		p.MaxSize = DefaultMaxSize
	}
	if p.Overlap < 0 {
		p.Overlap = 0
	}
	if p.Overlap >= p.MaxSize {
		p.Overlap = p.MaxSize / 5
	}
	return p
}

// Policies resolves chunk policies with optional per-tag overrides
type Policies struct {
	overrides map[types.LanguageTag]ChunkPolicy
}

// NewPolicies creates a resolver; overrides are normalized and keep the tag's structural flag
func NewPolicies(overrides map[types.LanguageTag]ChunkPolicy) *Policies {
	normalized := make(map[types.LanguageTag]ChunkPolicy, len(overrides))
	for tag, p := range overrides {
		p = p.Normalize()
		p.Structural = HasStructuralSplitter(tag)
		normalized[tag] = p
	}
	return &Policies{overrides: normalized}
}

// For returns the override for tag if one exists, otherwise PolicyFor(tag)
func (p *Policies) For(tag types.LanguageTag) ChunkPolicy {
	if p != nil {
		if o, ok := p.overrides[tag]; ok {
			return o
		}
	}
	return PolicyFor(tag)
}
