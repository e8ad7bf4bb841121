package extract

import (
	"context"
	"fmt"
	"log/slog"

	"neutral-reader/internal/model"
)

// ActionExtractArticle is the only message the content handler answers.
const ActionExtractArticle = "extractArticle"

// Message is sent to the content handler resident in a tab.
type Message struct {
	Action string `json:"action"`
}

// Messenger delivers a message to the handler of a tab. A nil article with a
// nil error means the page had nothing readable.
type Messenger interface {
	Send(ctx context.Context, tab Tab, msg Message) (*model.Article, error)
}

// Injector installs the content handler into a tab.
type Injector interface {
	Inject(ctx context.Context, tab Tab) error
}

// TabSource resolves the tab extraction should target.
type TabSource interface {
	Active() (Tab, error)
}

// ExtractionError reports a page that could not be reached or read.
type ExtractionError struct {
	URL    string
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.URL, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// retryAfterSetup runs attempt; if it fails, runs setup once and retries
// attempt exactly once. The second failure is returned as is.
func retryAfterSetup[T any](ctx context.Context, attempt func(context.Context) (T, error), setup func(context.Context) error) (T, error) {
	v, err := attempt(ctx)
	if err == nil {
		return v, nil
	}
	slog.Debug("extract: first attempt failed, running setup", "error", err)
	if serr := setup(ctx); serr != nil {
		var zero T
		return zero, serr
	}
	return attempt(ctx)
}

// Bridge requests the active tab's article from its content handler,
// injecting the handler once when it is not resident yet.
type Bridge struct {
	Tabs      TabSource
	Messenger Messenger
	Injector  Injector
}

func NewBridge(tabs TabSource, host interface {
	Messenger
	Injector
}) *Bridge {
	return &Bridge{Tabs: tabs, Messenger: host, Injector: host}
}

// ExtractArticle returns the active tab's article, or nil when the page has
// no readable content. Transport failures are *ExtractionError.
func (b *Bridge) ExtractArticle(ctx context.Context) (*model.Article, error) {
	tab, err := b.Tabs.Active()
	if err != nil {
		return nil, &ExtractionError{Reason: "no active tab", Err: err}
	}
	msg := Message{Action: ActionExtractArticle}
	a, err := retryAfterSetup(ctx,
		func(ctx context.Context) (*model.Article, error) {
			return b.Messenger.Send(ctx, tab, msg)
		},
		func(ctx context.Context) error {
			slog.Info("extract: content handler missing, injecting", "tab", tab.ID, "url", tab.URL)
			return b.Injector.Inject(ctx, tab)
		},
	)
	if err != nil {
		return nil, &ExtractionError{URL: tab.URL, Reason: "content handler unreachable", Err: err}
	}
	return a, nil
}
