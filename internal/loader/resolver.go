package loader

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/saintfish/chardet"

	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

// DefaultFallbacks is tried in order after the detected charset
var DefaultFallbacks = []string{"utf-8", "cp949", "euc-kr", "ascii"}

// DefaultMinConfidence is the detector confidence (0-100) above which the
// detected charset is tried first
const DefaultMinConfidence = 70

// Detection is a charset guess with confidence in [0,100]
type Detection struct {
	Charset    string
	Confidence int
}

// Detector guesses the charset of raw bytes
type Detector interface {
	Detect(data []byte) (Detection, error)
}

// ChardetDetector wraps saintfish/chardet's text detector
type ChardetDetector struct {
	detector *chardet.Detector
}

// NewChardetDetector creates a detector for plain text input
func NewChardetDetector() *ChardetDetector {
	return &ChardetDetector{detector: chardet.NewTextDetector()}
}

// Detect returns the best guess for data
func (d *ChardetDetector) Detect(data []byte) (Detection, error) {
	res, err := d.detector.DetectBest(data)
	if err != nil {
		return Detection{}, err
	}
	return Detection{Charset: res.Charset, Confidence: res.Confidence}, nil
}

// Resolver loads files and decodes them to text
type Resolver struct {
	detector      Detector
	fallbacks     []string
	minConfidence int
	logger        *slog.Logger
}

// Option configures a Resolver
type Option func(*Resolver)

// WithDetector replaces the statistical detector
func WithDetector(d Detector) Option {
	return func(r *Resolver) { r.detector = d }
}

// WithFallbacks replaces the fallback encoding list
func WithFallbacks(names ...string) Option {
	return func(r *Resolver) { r.fallbacks = names }
}

// WithMinConfidence sets the confidence threshold for trusting detection
func WithMinConfidence(c int) Option {
	return func(r *Resolver) { r.minConfidence = c }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a resolver with chardet detection and the default fallbacks
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		detector:      NewChardetDetector(),
		fallbacks:     DefaultFallbacks,
		minConfidence: DefaultMinConfidence,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load reads path and decodes it. The returned record has Path, Content and
// Encoding set; the caller fills in RelPath and Tag.
func (r *Resolver) Load(path string) (*types.FileRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadFailure{Path: path, Cause: err}
	}

	content, enc, err := r.Decode(data)
	if err != nil {
		return nil, &LoadFailure{Path: path, Cause: err}
	}

	return &types.FileRecord{
		Path:     path,
		Content:  content,
		Encoding: enc,
	}, nil
}

// Decode returns data as text and the name of the encoding that decoded it
func (r *Resolver) Decode(data []byte) (string, string, error) {
	if len(data) == 0 {
		return "", "utf-8", nil
	}

	if name, ok := utf16ByBOM(data); ok {
		content, err := decodeAs(name, data)
		if err != nil {
			return "", "", fmt.Errorf("%s with byte order mark: %w", name, err)
		}
		return content, name, nil
	}

	var lastErr error
	for _, name := range r.candidates(data) {
		content, err := decodeAs(name, data)
		if err == nil {
			return content, name, nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return "", "", fmt.Errorf("%w: last error: %v", ErrUndecodable, lastErr)
	}
	return "", "", ErrUndecodable
}

// candidates orders the encodings to try: a confident detection first, then
// the fallbacks, without duplicates
func (r *Resolver) candidates(data []byte) []string {
	names := make([]string, 0, len(r.fallbacks)+1)

	if r.detector != nil {
		det, err := r.detector.Detect(data)
		switch {
		case err != nil:
			r.logger.Debug("charset detection failed", "error", err)
		case det.Confidence > r.minConfidence && det.Charset != "":
			names = append(names, det.Charset)
		}
	}
	names = append(names, r.fallbacks...)

	seen := make(map[string]bool, len(names))
	out := names[:0]
	for _, name := range names {
		key := normalizeName(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(name))
	}
	return out
}
