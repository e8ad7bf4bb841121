package model

import (
	"fmt"
	"strings"
	"time"
)

// ProcessingType names a transformation applied to an article body.
type ProcessingType string

const (
	Original    ProcessingType = "original"
	Neutralized ProcessingType = "neutralized"
	FactChecked ProcessingType = "factchecked"
)

// ParseProcessingType accepts the canonical names plus the verbs used on the
// command line (neutralize, fact-check).
func ParseProcessingType(s string) (ProcessingType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "original":
		return Original, nil
	case "neutralized", "neutralize", "neutral":
		return Neutralized, nil
	case "factchecked", "factcheck", "fact-check", "fact_check":
		return FactChecked, nil
	default:
		return "", fmt.Errorf("unknown processing type %q", s)
	}
}

func (t ProcessingType) Valid() bool {
	return t == Original || t == Neutralized || t == FactChecked
}

// Article is the ephemeral result of extracting a page.
// JSON names match the records written by the browser extension.
type Article struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Text        string    `json:"text"`
	TextContent string    `json:"textContent"`
	ScrapedAt   time.Time `json:"scrapedAt"`
	Domain      string    `json:"domain"`
}

// ProcessedVersion is one transformation result for an article.
type ProcessedVersion struct {
	Type        ProcessingType `json:"type"`
	Content     string         `json:"content"`
	ProcessedAt time.Time      `json:"processedAt"`
}

// SavedArticle is the persisted form of an article with its versions.
type SavedArticle struct {
	Article
	ID       string             `json:"id"`
	Versions []ProcessedVersion `json:"versions"`
	SavedAt  time.Time          `json:"savedAt"`
}

// NewSavedArticle builds the record for a first save. The id is derived from
// the url and the creation time so it stays stable whatever happens to the url.
func NewSavedArticle(a Article, first ProcessedVersion, now time.Time) SavedArticle {
	return SavedArticle{
		Article:  a,
		ID:       fmt.Sprintf("%s-%d", a.URL, now.UnixMilli()),
		Versions: []ProcessedVersion{first},
		SavedAt:  now,
	}
}

// Version returns the version of the given type, if any.
func (s SavedArticle) Version(t ProcessingType) (ProcessedVersion, bool) {
	for _, v := range s.Versions {
		if v.Type == t {
			return v, true
		}
	}
	return ProcessedVersion{}, false
}

// UpsertVersion returns a copy of versions where the entry with v.Type is
// replaced in place, or v is appended when no such entry exists.
func UpsertVersion(versions []ProcessedVersion, v ProcessedVersion) []ProcessedVersion {
	out := make([]ProcessedVersion, len(versions), len(versions)+1)
	copy(out, versions)
	for i := range out {
		if out[i].Type == v.Type {
			out[i] = v
			return out
		}
	}
	return append(out, v)
}
