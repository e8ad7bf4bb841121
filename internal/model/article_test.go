package model

import (
	"testing"
	"time"
)

func TestParseProcessingType(t *testing.T) {
	cases := map[string]ProcessingType{
		"original":      Original,
		"Neutralize":    Neutralized,
		"neutralized":   Neutralized,
		"fact-check":    FactChecked,
		" factchecked ": FactChecked,
	}
	for in, want := range cases {
		got, err := ParseProcessingType(in)
		if err != nil {
			t.Fatalf("ParseProcessingType(%q) error: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseProcessingType(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseProcessingType("summarized"); err == nil {
		t.Errorf("expected error for unknown type")
	}
}

func TestNewSavedArticleID(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	a := Article{URL: "https://x.com/a", Title: "A"}
	s := NewSavedArticle(a, ProcessedVersion{Type: Neutralized, Content: "n"}, now)
	if s.ID != "https://x.com/a-1700000000123" {
		t.Errorf("id = %q", s.ID)
	}
	if len(s.Versions) != 1 || s.Versions[0].Type != Neutralized {
		t.Errorf("versions = %+v", s.Versions)
	}
	if !s.SavedAt.Equal(now) {
		t.Errorf("savedAt = %v", s.SavedAt)
	}
}

func TestUpsertVersionReplacesInPlace(t *testing.T) {
	t0 := time.Unix(100, 0)
	t1 := time.Unix(200, 0)
	versions := []ProcessedVersion{
		{Type: Neutralized, Content: "n1", ProcessedAt: t0},
		{Type: FactChecked, Content: "f1", ProcessedAt: t0},
	}
	got := UpsertVersion(versions, ProcessedVersion{Type: Neutralized, Content: "n2", ProcessedAt: t1})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Type != Neutralized || got[0].Content != "n2" || !got[0].ProcessedAt.Equal(t1) {
		t.Errorf("first entry not replaced: %+v", got[0])
	}
	if got[1] != versions[1] {
		t.Errorf("second entry changed: %+v", got[1])
	}
	if versions[0].Content != "n1" {
		t.Errorf("input slice mutated")
	}
}

func TestUpsertVersionAppends(t *testing.T) {
	versions := []ProcessedVersion{{Type: Neutralized, Content: "n"}}
	got := UpsertVersion(versions, ProcessedVersion{Type: FactChecked, Content: "f"})
	if len(got) != 2 || got[0].Type != Neutralized || got[1].Type != FactChecked {
		t.Errorf("unexpected order: %+v", got)
	}
	if _, ok := (SavedArticle{Versions: got}).Version(FactChecked); !ok {
		t.Errorf("Version(FactChecked) not found")
	}
}
