package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
)

const (
	defaultUserAgent     = "Mozilla/5.0 (compatible; neutral-reader/1.0)"
	defaultMinTextLength = 200
	maxPageBytes         = 8 << 20
)

// HTTPSource fetches a page and isolates its main text with readability.
type HTTPSource struct {
	client        *http.Client
	userAgent     string
	minTextLength int
}

// NewHTTPSource creates a source. Zero values fall back to defaults.
func NewHTTPSource(userAgent string, timeout time.Duration, minTextLength int) *HTTPSource {
	if strings.TrimSpace(userAgent) == "" {
		userAgent = defaultUserAgent
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if minTextLength <= 0 {
		minTextLength = defaultMinTextLength
	}
	return &HTTPSource{
		client:        &http.Client{Timeout: timeout},
		userAgent:     userAgent,
		minTextLength: minTextLength,
	}
}

func (s *HTTPSource) Scrape(ctx context.Context, pageURL string) (string, string, error) {
	u, err := url.ParseRequestURI(pageURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	resp, err := s.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", "", err
	}
	title, text := ParseHTML(string(body), u, s.minTextLength)
	return title, text, nil
}

// ParseHTML extracts the title and readable text of an HTML document. When
// readability keeps less than minTextLength characters, paragraphs of the
// main content container are used instead.
func ParseHTML(raw string, pageURL *url.URL, minTextLength int) (title, text string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", ""
	}
	title = documentTitle(doc)

	doc.Find("script, style, noscript, iframe, embed, object, video, audio, canvas, nav, aside, footer, form").Remove()
	doc.Find("[class*='share'], [class*='social'], [class*='comment'], [id*='comment'], [class*='newsletter'], [class*='advert']").Remove()
	cleaned, err := doc.Html()
	if err != nil || cleaned == "" {
		cleaned = raw
	}

	if article, err := readability.FromReader(strings.NewReader(cleaned), pageURL); err == nil {
		var buf strings.Builder
		if err := article.RenderText(&buf); err == nil {
			text = normalizeText(buf.String())
		}
		if t := strings.TrimSpace(article.Title()); t != "" {
			title = t
		}
	}
	if len(text) < minTextLength {
		if p := paragraphText(doc); len(p) > len(text) {
			text = p
		}
	}
	return title, text
}

func documentTitle(doc *goquery.Document) string {
	if v, ok := doc.Find("meta[property='og:title']").Attr("content"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// paragraphText joins the <p> elements of the most likely article container.
func paragraphText(doc *goquery.Document) string {
	container := doc.Find("article, [class*='article-body'], [class*='post-content'], main").First()
	if container.Length() == 0 {
		container = doc.Find("body")
	}
	var parts []string
	container.Find("p").Each(func(_ int, p *goquery.Selection) {
		if t := strings.TrimSpace(p.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return normalizeText(strings.Join(parts, "\n\n"))
}

var (
	spaceRun = regexp.MustCompile(`[ \t\r\f\v]+`)
	blankRun = regexp.MustCompile(`\n{3,}`)
)

func normalizeText(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(spaceRun.ReplaceAllString(l, " "))
	}
	return strings.TrimSpace(blankRun.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}
