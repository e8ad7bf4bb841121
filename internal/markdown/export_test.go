package markdown

import (
	"strings"
	"testing"
	"time"

	"neutral-reader/internal/model"
)

func sample() model.SavedArticle {
	saved := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return model.SavedArticle{
		Article: model.Article{
			URL:         "https://news.example.com/budget",
			Title:       "Council: approves \"budget\"",
			Text:        "The council voted on Tuesday.\n\nThe budget passed 5-2.",
			TextContent: "The council voted on Tuesday.\n\nThe budget passed 5-2.",
			Domain:      "news.example.com",
			ScrapedAt:   saved.Add(-time.Minute),
		},
		ID:      "https://news.example.com/budget-1709287200000",
		SavedAt: saved,
		Versions: []model.ProcessedVersion{
			{Type: model.Neutralized, Content: "The council approved the budget.\n\nIt passed 5-2.", ProcessedAt: saved},
			{Type: model.FactChecked, Content: "Claim: passed 5-2. Verdict: accurate.", ProcessedAt: saved.Add(time.Hour)},
		},
	}
}

func TestRenderArticle(t *testing.T) {
	out, err := RenderArticle(sample())
	if err != nil {
		t.Fatalf("RenderArticle: %v", err)
	}
	if !strings.HasPrefix(out, "---\n") {
		t.Fatalf("missing frontmatter: %q", out)
	}
	for _, want := range []string{"## source", "The council voted on Tuesday.", "## neutralized", "## factchecked", "It passed 5-2.", "Source: <https://news.example.com/budget>"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "## neutralized") > strings.Index(out, "## factchecked") {
		t.Errorf("versions out of order:\n%s", out)
	}
}

func TestRenderThenParseArticle(t *testing.T) {
	in := sample()
	out, err := RenderArticle(in)
	if err != nil {
		t.Fatalf("RenderArticle: %v", err)
	}
	doc, err := Parse(strings.NewReader(out))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got, err := ParseArticle(doc)
	if err != nil {
		t.Fatalf("ParseArticle: %v", err)
	}
	if got.URL != in.URL || got.Title != in.Title || got.ID != in.ID || got.Domain != in.Domain {
		t.Errorf("identity mismatch: %+v", got.Article)
	}
	if got.Text != in.Text || got.TextContent != in.Text {
		t.Errorf("extracted text = %q / %q, want %q", got.Text, got.TextContent, in.Text)
	}
	if !got.SavedAt.Equal(in.SavedAt) || !got.ScrapedAt.Equal(in.ScrapedAt) {
		t.Errorf("times mismatch: saved %v scraped %v", got.SavedAt, got.ScrapedAt)
	}
	if len(got.Versions) != 2 {
		t.Fatalf("versions = %d, want 2", len(got.Versions))
	}
	for i, v := range got.Versions {
		want := in.Versions[i]
		if v.Type != want.Type || v.Content != want.Content || !v.ProcessedAt.Equal(want.ProcessedAt) {
			t.Errorf("version %d = %+v, want %+v", i, v, want)
		}
	}
}

func TestParseArticleErrors(t *testing.T) {
	if _, err := ParseArticle(Document{Frontmatter: map[string]any{}, Body: "## neutralized\nx\n"}); err == nil {
		t.Error("expected error without url")
	}
	doc := Document{Frontmatter: map[string]any{"url": "https://a.example"}, Body: "# Title only\n"}
	if _, err := ParseArticle(doc); err == nil {
		t.Error("expected error without version sections")
	}
}

func TestFilename(t *testing.T) {
	if got := Filename(sample()); got != "20240301-council-approves-budget.md" {
		t.Errorf("Filename = %q", got)
	}
	a := sample()
	a.Title = "!!!"
	if got := Filename(a); got != "20240301-article.md" {
		t.Errorf("Filename = %q", got)
	}
}

func TestHeadingLikeContentStaysInItsSection(t *testing.T) {
	in := sample()
	in.Text = "Intro\n## neutralized\nstill source"
	in.Versions = []model.ProcessedVersion{
		{Type: model.Neutralized, Content: "Summary\n## factchecked\n\\## source\nend", ProcessedAt: in.SavedAt},
	}
	out, err := RenderArticle(in)
	if err != nil {
		t.Fatalf("RenderArticle: %v", err)
	}
	doc, err := Parse(strings.NewReader(out))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got, err := ParseArticle(doc)
	if err != nil {
		t.Fatalf("ParseArticle: %v", err)
	}
	if got.Text != in.Text {
		t.Errorf("text = %q, want %q", got.Text, in.Text)
	}
	if len(got.Versions) != 1 {
		t.Fatalf("versions = %+v, want exactly one", got.Versions)
	}
	if got.Versions[0].Content != in.Versions[0].Content {
		t.Errorf("content = %q, want %q", got.Versions[0].Content, in.Versions[0].Content)
	}
}
