package markdown

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"time"

	"neutral-reader/internal/model"

	"gopkg.in/yaml.v3"
)

type frontmatter struct {
	Title     string `yaml:"title"`
	URL       string `yaml:"url"`
	Domain    string `yaml:"domain,omitempty"`
	ID        string `yaml:"id"`
	SavedAt   string `yaml:"saved_at"`
	ScrapedAt string `yaml:"scraped_at,omitempty"`
}

type versionData struct {
	Type        string
	ProcessedAt string
	Content     string
}

type articleData struct {
	Frontmatter string
	Title       string
	URL         string
	Text        string
	Versions    []versionData
}

// sourceSection holds the extracted text, ahead of the version sections.
const sourceSection = "source"

//go:embed article.tmpl
var articleTpl string

var compiled = template.Must(template.New("article").Parse(articleTpl))

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// RenderArticle renders a saved article as Markdown with YAML frontmatter, a
// source section with the extracted text and one section per version, in
// version order.
func RenderArticle(a model.SavedArticle) (string, error) {
	fm, err := yaml.Marshal(frontmatter{
		Title:     a.Title,
		URL:       a.URL,
		Domain:    a.Domain,
		ID:        a.ID,
		SavedAt:   formatTime(a.SavedAt),
		ScrapedAt: formatTime(a.ScrapedAt),
	})
	if err != nil {
		return "", err
	}
	d := articleData{
		Frontmatter: strings.TrimRight(string(fm), "\n"),
		Title:       a.Title,
		URL:         a.URL,
		Text:        escapeHeadings(strings.TrimSpace(a.Text)),
	}
	for _, v := range a.Versions {
		d.Versions = append(d.Versions, versionData{
			Type:        string(v.Type),
			ProcessedAt: formatTime(v.ProcessedAt),
			Content:     escapeHeadings(strings.TrimSpace(v.Content)),
		})
	}
	var buf bytes.Buffer
	if err := compiled.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Filename returns a file name for an exported article.
func Filename(a model.SavedArticle) string {
	base := slugRe.ReplaceAllString(strings.ToLower(a.Title), "-")
	base = strings.Trim(base, "-")
	if len(base) > 60 {
		base = strings.Trim(base[:60], "-")
	}
	if base == "" {
		base = "article"
	}
	return fmt.Sprintf("%s-%s.md", a.SavedAt.UTC().Format("20060102"), base)
}

var (
	slugRe    = regexp.MustCompile(`[^a-z0-9]+`)
	sectionRe = regexp.MustCompile(`^## (source|original|neutralized|factchecked)\s*$`)
	// a content line that would read as a section heading, possibly already escaped
	headingRe = regexp.MustCompile(`^\\*## (source|original|neutralized|factchecked)\s*$`)
	stampRe   = regexp.MustCompile(`^<!-- processed_at: (\S*) -->\s*$`)
)

// ParseArticle rebuilds a saved article from a document produced by RenderArticle.
func ParseArticle(doc Document) (model.SavedArticle, error) {
	var a model.SavedArticle
	a.Title = fmString(doc.Frontmatter, "title")
	a.URL = fmString(doc.Frontmatter, "url")
	a.Domain = fmString(doc.Frontmatter, "domain")
	a.ID = fmString(doc.Frontmatter, "id")
	if a.URL == "" {
		return a, errors.New("frontmatter has no url")
	}
	var err error
	if a.SavedAt, err = parseTime(fmString(doc.Frontmatter, "saved_at")); err != nil {
		return a, fmt.Errorf("saved_at: %w", err)
	}
	if a.ScrapedAt, err = parseTime(fmString(doc.Frontmatter, "scraped_at")); err != nil {
		return a, fmt.Errorf("scraped_at: %w", err)
	}
	if a.ID == "" {
		a.ID = fmt.Sprintf("%s-%d", a.URL, a.SavedAt.UnixMilli())
	}

	var section string
	var cur *model.ProcessedVersion
	var body []string
	flush := func() {
		content := unescapeHeadings(strings.TrimSpace(strings.Join(body, "\n")))
		switch {
		case section == sourceSection:
			a.Text, a.TextContent = content, content
		case cur != nil:
			cur.Content = content
			a.Versions = model.UpsertVersion(a.Versions, *cur)
		}
		section, cur, body = "", nil, nil
	}
	for _, line := range strings.Split(doc.Body, "\n") {
		if m := sectionRe.FindStringSubmatch(line); m != nil {
			flush()
			section = m[1]
			if section != sourceSection {
				cur = &model.ProcessedVersion{Type: model.ProcessingType(section)}
			}
			continue
		}
		if section == "" {
			continue
		}
		if cur != nil && len(body) == 0 && cur.ProcessedAt.IsZero() {
			if m := stampRe.FindStringSubmatch(line); m != nil {
				if cur.ProcessedAt, err = parseTime(m[1]); err != nil {
					return a, fmt.Errorf("processed_at: %w", err)
				}
				continue
			}
		}
		body = append(body, line)
	}
	flush()
	if len(a.Versions) == 0 {
		return a, errors.New("document has no version sections")
	}
	return a, nil
}

// escapeHeadings prefixes content lines that look like section headings with
// a backslash so they stay part of their section.
func escapeHeadings(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if headingRe.MatchString(l) {
			lines[i] = `\` + l
		}
	}
	return strings.Join(lines, "\n")
}

func unescapeHeadings(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if strings.HasPrefix(l, `\`) && headingRe.MatchString(l) {
			lines[i] = l[1:]
		}
	}
	return strings.Join(lines, "\n")
}

func fmString(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
