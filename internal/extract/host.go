package extract

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"neutral-reader/internal/model"
)

var (
	ErrHandlerNotResident = errors.New("could not establish connection: receiving end does not exist")
	ErrUnknownAction      = errors.New("unknown action")
	ErrRestrictedPage     = errors.New("cannot access contents of the page")
)

// Source turns a page url into its readable title and text.
type Source interface {
	Scrape(ctx context.Context, pageURL string) (title, content string, err error)
}

// ContentHost keeps one content handler per tab. Messages to a tab without a
// handler fail until Inject installs one.
type ContentHost struct {
	source Source
	now    func() time.Time

	mu       sync.Mutex
	handlers map[int]*contentHandler
}

func NewContentHost(source Source) *ContentHost {
	return &ContentHost{source: source, now: time.Now, handlers: map[int]*contentHandler{}}
}

type contentHandler struct {
	tab    Tab
	source Source
	now    func() time.Time
}

func (h *ContentHost) Send(ctx context.Context, tab Tab, msg Message) (*model.Article, error) {
	h.mu.Lock()
	ch, ok := h.handlers[tab.ID]
	h.mu.Unlock()
	if !ok || ch.tab.URL != tab.URL {
		return nil, ErrHandlerNotResident
	}
	return ch.handle(ctx, msg)
}

// Inject installs a handler for tab. Only http(s) pages accept one.
func (h *ContentHost) Inject(ctx context.Context, tab Tab) error {
	u, err := url.Parse(tab.URL)
	if err != nil {
		return fmt.Errorf("inject into tab %d: %w", tab.ID, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("inject into tab %d (%s): %w", tab.ID, tab.URL, ErrRestrictedPage)
	}
	h.mu.Lock()
	h.handlers[tab.ID] = &contentHandler{tab: tab, source: h.source, now: h.now}
	h.mu.Unlock()
	return nil
}

// Forget drops the handler of a closed tab.
func (h *ContentHost) Forget(tabID int) {
	h.mu.Lock()
	delete(h.handlers, tabID)
	h.mu.Unlock()
}

func (c *contentHandler) handle(ctx context.Context, msg Message) (*model.Article, error) {
	if msg.Action != ActionExtractArticle {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, msg.Action)
	}
	title, text, err := c.source.Scrape(ctx, c.tab.URL)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	domain := ""
	if u, err := url.Parse(c.tab.URL); err == nil {
		domain = u.Hostname()
	}
	return &model.Article{
		URL:         c.tab.URL,
		Title:       strings.TrimSpace(title),
		Text:        text,
		TextContent: text,
		ScrapedAt:   c.now().UTC(),
		Domain:      domain,
	}, nil
}
