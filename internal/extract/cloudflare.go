package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CloudflareSource renders pages through the Cloudflare Browser Rendering
// markdown endpoint, for pages that only produce text after running scripts.
// See: https://developers.cloudflare.com/browser-rendering/rest-api/
type CloudflareSource struct {
	endpoint string
	token    string
	http     *http.Client
}

type markdownRequest struct {
	URL                  string   `json:"url"`
	RejectRequestPattern []string `json:"rejectRequestPattern,omitempty"`
}

type markdownResponse struct {
	Success bool   `json:"success"`
	Result  string `json:"result"`
	Errors  any    `json:"errors"`
}

// NewCloudflareSource creates a source for the given account.
// Endpoint: https://api.cloudflare.com/client/v4/accounts/<ACCOUNT_ID>/browser-rendering/markdown
func NewCloudflareSource(accountID, token string, timeout time.Duration) *CloudflareSource {
	endpoint := fmt.Sprintf("https://api.cloudflare.com/client/v4/accounts/%s/browser-rendering/markdown", strings.TrimSpace(accountID))
	return newCloudflareSource(endpoint, token, timeout)
}

func newCloudflareSource(endpoint, token string, timeout time.Duration) *CloudflareSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CloudflareSource{
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
		http:     &http.Client{Timeout: timeout},
	}
}

// Scrape returns the rendered markdown and its shallowest heading as title.
func (c *CloudflareSource) Scrape(ctx context.Context, pageURL string) (string, string, error) {
	if c == nil {
		return "", "", errors.New("nil cloudflare source")
	}
	if _, err := url.ParseRequestURI(pageURL); err != nil {
		return "", "", fmt.Errorf("invalid url: %w", err)
	}
	body, err := json.Marshal(markdownRequest{
		URL:                  pageURL,
		RejectRequestPattern: []string{"/^.*\\.(css)/"},
	})
	if err != nil {
		return "", "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", "", fmt.Errorf("cloudflare render failed: status=%d body=%s", resp.StatusCode, string(b))
	}
	var envelope markdownResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", "", err
	}
	if !envelope.Success {
		return "", "", fmt.Errorf("cloudflare render failed: %v", envelope.Errors)
	}
	content := strings.TrimSpace(envelope.Result)
	return markdownTitle(content), content, nil
}

// markdownTitle picks the heading with the fewest leading '#', first one wins on ties.
func markdownTitle(md string) string {
	best, depth := "", 0
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#") {
			continue
		}
		d := len(line) - len(strings.TrimLeft(line, "#"))
		if best == "" || d < depth {
			best, depth = strings.TrimSpace(line[d:]), d
		}
	}
	return best
}
