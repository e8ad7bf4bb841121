package markdown

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseWithFrontmatter(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "article.md")
	content := "" +
		"---\n" +
		"title: \"Council approves budget\"\n" +
		"url: https://news.example.com/budget\n" +
		"saved_at: \"2024-03-01T10:00:00Z\"\n" +
		"---\n\n" +
		"## neutralized\n\nThe council approved the budget.\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	doc, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile error: %v", err)
	}
	for _, k := range []string{"title", "url", "saved_at"} {
		if _, ok := doc.Frontmatter[k]; !ok {
			t.Errorf("missing %s in frontmatter", k)
		}
	}
	if want := "## neutralized"; !strings.Contains(doc.Body, want) {
		t.Errorf("body missing %q; got: %q", want, doc.Body)
	}
	if strings.Contains(doc.Body, "---") {
		t.Errorf("frontmatter delimiter leaked into body: %q", doc.Body)
	}
}

func TestParseWithoutFrontmatter(t *testing.T) {
	body := "# Hello\n\nNo frontmatter here.\n"
	doc, err := Parse(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(doc.Frontmatter) != 0 {
		t.Fatalf("expected empty frontmatter, got: %+v", doc.Frontmatter)
	}
	if doc.Body != body {
		t.Errorf("body mismatch.\nwant: %q\n got: %q", body, doc.Body)
	}
}

func TestParseEmpty(t *testing.T) {
	doc, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if doc.Body != "" || len(doc.Frontmatter) != 0 {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestParseBadFrontmatter(t *testing.T) {
	if _, err := Parse(strings.NewReader("---\ntitle: [unclosed\n---\nbody\n")); err == nil {
		t.Fatal("expected yaml error")
	}
}
