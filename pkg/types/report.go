package types

import "time"

// TagCount aggregates files and chunks for one language
type TagCount struct {
	Files  int `json:"files"`
	Chunks int `json:"chunks"`
}

// SkippedFile records why a file contributed no chunks
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// IngestionReport is the per-run outcome of ingesting one tree
type IngestionReport struct {
	Source       string                   `json:"source"`
	TotalFiles   int                      `json:"total_files"`
	TotalChunks  int                      `json:"total_chunks"`
	PerTag       map[LanguageTag]TagCount `json:"per_tag"`
	Skipped      []SkippedFile            `json:"skipped"`
	Warnings     []string                 `json:"warnings,omitempty"`
	Embedded     int                      `json:"embedded"`
	EmbedDropped int                      `json:"embed_dropped"`
	Duration     time.Duration            `json:"duration_ns"`
}

// NewIngestionReport returns an empty report for source
func NewIngestionReport(source string) *IngestionReport {
	return &IngestionReport{
		Source:  source,
		PerTag:  make(map[LanguageTag]TagCount),
		Skipped: make([]SkippedFile, 0),
	}
}

// Consistent reports whether per-tag sums match the totals
func (r *IngestionReport) Consistent() bool {
	files, chunks := 0, 0
	for _, c := range r.PerTag {
		files += c.Files
		chunks += c.Chunks
	}
	return files == r.TotalFiles && chunks == r.TotalChunks
}
