package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"neutral-reader/internal/ai"
	"neutral-reader/internal/model"
)

// Phase is the visible processing state of a session.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseExtracting    Phase = "extracting"
	PhaseExtracted     Phase = "extracted"
	PhaseExtractFailed Phase = "extract_failed"
	PhaseProcessing    Phase = "processing"
	PhaseProcessed     Phase = "processed"
	PhaseProcessFailed Phase = "process_failed"
)

// Variant styles a banner.
type Variant string

const (
	VariantError   Variant = "error"
	VariantInfo    Variant = "info"
	VariantSuccess Variant = "success"
)

type Banner struct {
	Text    string  `json:"text"`
	Variant Variant `json:"variant"`
}

// State is a snapshot of a session as views render it.
type State struct {
	Phase          Phase                `json:"phase"`
	Article        *model.Article       `json:"article,omitempty"`
	OriginalText   string               `json:"originalText,omitempty"`
	DisplayText    string               `json:"displayText"`
	Type           model.ProcessingType `json:"type,omitempty"`
	CanSave        bool                 `json:"canSave"`
	IsAlreadySaved bool                 `json:"isAlreadySaved"`
	Banner         *Banner              `json:"banner,omitempty"`
	Generation     uint64               `json:"generation"`
}

const (
	textIdle          = "Extracted text will appear here"
	textExtracting    = "Extracting article..."
	textNotReadable   = "Couldn't read from this page."
	textNoContent     = "No readable content found."
	textExtractFirst  = "Please extract an article first."
	textNothingToSave = "No article to save."
	textProcessFirst  = "Process the article before saving."
	textSaved         = "Article saved."
)

// Extractor returns the active page's article, or nil when nothing is readable.
type Extractor interface {
	ExtractArticle(ctx context.Context) (*model.Article, error)
}

// Store is the part of the article store a session needs.
type Store interface {
	FindByURL(ctx context.Context, url string) (model.SavedArticle, bool, error)
	HasVersion(ctx context.Context, url string, t model.ProcessingType) (bool, error)
	SaveVersion(ctx context.Context, a model.Article, v model.ProcessedVersion, now time.Time) error
}

// Controller drives one session: extraction, processing and saving.
//
// Every extraction or processing run takes a new generation number. When a
// run finishes after a newer one started, its result is dropped.
// Operations never return errors; failures end up in the state's banner.
type Controller struct {
	extractor Extractor
	store     Store
	model     ai.Caller
	now       func() time.Time

	mu    sync.Mutex
	gen   uint64
	state State
}

func NewController(extractor Extractor, store Store, caller ai.Caller) *Controller {
	return &Controller{
		extractor: extractor,
		store:     store,
		model:     caller,
		now:       time.Now,
		state:     State{Phase: PhaseIdle, DisplayText: textIdle},
	}
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() State {
	s := c.state
	if s.Article != nil {
		a := *s.Article
		s.Article = &a
	}
	if s.Banner != nil {
		b := *s.Banner
		s.Banner = &b
	}
	return s
}

func (c *Controller) DismissBanner() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Banner = nil
	return c.snapshot()
}

// Extract loads the active page. It runs on session open and on every
// active-tab change; one attempt per call.
func (c *Controller) Extract(ctx context.Context) State {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.state = State{Phase: PhaseExtracting, DisplayText: textExtracting, Generation: gen}
	c.mu.Unlock()

	article, err := c.extractor.ExtractArticle(ctx)
	var saved bool
	var lookupErr error
	if err == nil && article != nil {
		_, saved, lookupErr = c.store.FindByURL(ctx, article.URL)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		slog.Debug("session: dropping stale extraction", "generation", gen, "current", c.gen)
		return c.snapshot()
	}
	switch {
	case err != nil:
		slog.Warn("session: extraction failed", "error", err)
		c.state = State{
			Phase:       PhaseExtractFailed,
			DisplayText: textNotReadable,
			Banner:      &Banner{Text: err.Error(), Variant: VariantError},
			Generation:  gen,
		}
	case article == nil:
		c.state = State{Phase: PhaseExtractFailed, DisplayText: textNoContent, Generation: gen}
	default:
		c.state = State{
			Phase:          PhaseExtracted,
			Article:        article,
			OriginalText:   article.Text,
			DisplayText:    article.Text,
			Type:           model.Original,
			IsAlreadySaved: saved,
			Generation:     gen,
		}
		if lookupErr != nil {
			c.state.Banner = &Banner{Text: "Could not check saved articles: " + lookupErr.Error(), Variant: VariantError}
		}
		slog.Info("session: article extracted", "url", article.URL, "chars", len(article.Text), "saved", saved)
	}
	return c.snapshot()
}

func processingText(t model.ProcessingType) string {
	switch t {
	case model.Neutralized:
		return "Neutralizing text..."
	case model.FactChecked:
		return "Fact-checking text..."
	default:
		return "Processing text..."
	}
}

// Process transforms the extracted article with type t. The model always
// receives the original extracted text, never a previous result.
func (c *Controller) Process(ctx context.Context, t model.ProcessingType) State {
	c.mu.Lock()
	if c.state.Article == nil || !canProcess(c.state.Phase) {
		c.state.Banner = &Banner{Text: textExtractFirst, Variant: VariantInfo}
		defer c.mu.Unlock()
		return c.snapshot()
	}
	if _, err := ai.PromptFor(t); err != nil {
		c.state.Banner = &Banner{Text: err.Error(), Variant: VariantError}
		defer c.mu.Unlock()
		return c.snapshot()
	}
	c.gen++
	gen := c.gen
	article := *c.state.Article
	original := c.state.OriginalText
	c.state.Phase = PhaseProcessing
	c.state.Type = t
	c.state.DisplayText = processingText(t)
	c.state.CanSave = false
	c.state.Banner = nil
	c.state.Generation = gen
	c.mu.Unlock()

	result, err := ai.Process(ctx, c.model, t, original)
	var already bool
	var lookupErr error
	if err == nil {
		already, lookupErr = c.store.HasVersion(ctx, article.URL, t)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		slog.Debug("session: dropping stale result", "type", t, "generation", gen, "current", c.gen)
		return c.snapshot()
	}
	if err != nil {
		// the error text is shown but can never be saved as content
		c.state.Phase = PhaseProcessFailed
		c.state.DisplayText = fmt.Sprintf("Error: %s", err.Error())
		c.state.CanSave = false
		c.state.Banner = &Banner{Text: err.Error(), Variant: VariantError}
		return c.snapshot()
	}
	c.state.Phase = PhaseProcessed
	c.state.DisplayText = result
	c.state.CanSave = true
	c.state.IsAlreadySaved = already
	if lookupErr != nil {
		c.state.Banner = &Banner{Text: "Could not check saved articles: " + lookupErr.Error(), Variant: VariantError}
	}
	slog.Info("session: article processed", "url", article.URL, "type", t, "chars", len(result))
	return c.snapshot()
}

// canProcess includes PhaseProcessing: a new request supersedes the running one.
func canProcess(p Phase) bool {
	switch p {
	case PhaseExtracted, PhaseProcessing, PhaseProcessed, PhaseProcessFailed:
		return true
	}
	return false
}

// Save stores the displayed result as a version of the current article.
func (c *Controller) Save(ctx context.Context) State {
	c.mu.Lock()
	if c.state.Article == nil {
		c.state.Banner = &Banner{Text: textNothingToSave, Variant: VariantInfo}
		defer c.mu.Unlock()
		return c.snapshot()
	}
	if !c.state.CanSave {
		c.state.Banner = &Banner{Text: textProcessFirst, Variant: VariantInfo}
		defer c.mu.Unlock()
		return c.snapshot()
	}
	gen := c.gen
	article := *c.state.Article
	now := c.now()
	v := model.ProcessedVersion{Type: c.state.Type, Content: c.state.DisplayText, ProcessedAt: now}
	c.mu.Unlock()

	err := c.store.SaveVersion(ctx, article, v, now)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		slog.Error("session: save failed", "url", article.URL, "type", v.Type, "error", err)
		// a newer extraction or processing run owns the banner now
		if gen == c.gen {
			c.state.Banner = &Banner{Text: err.Error(), Variant: VariantError}
		}
		return c.snapshot()
	}
	slog.Info("session: version saved", "url", article.URL, "type", v.Type)
	if gen == c.gen {
		c.state.IsAlreadySaved = true
		c.state.Banner = &Banner{Text: textSaved, Variant: VariantSuccess}
	}
	return c.snapshot()
}
