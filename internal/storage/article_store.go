package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"neutral-reader/internal/kv"
	"neutral-reader/internal/model"
)

var (
	// ErrDuplicateArticle is returned when saving a url that already has a record.
	ErrDuplicateArticle = errors.New("this article has already been saved")
	// ErrNotFound is returned when no record matches a url.
	ErrNotFound = errors.New("article not found")
	// ErrIndexOutOfRange is returned by DeleteArticle for a position outside the collection.
	ErrIndexOutOfRange = errors.New("article index out of range")
	// ErrNoVersions rejects records that would be persisted without any version.
	ErrNoVersions = errors.New("article has no versions")
)

// ArticleStore owns every read/modify/write cycle on the saved-article
// collection. Mutations are serialized through mu: each one reads the full
// collection, changes it in memory and writes it back whole.
type ArticleStore struct {
	gw kv.Gateway
	mu sync.Mutex
}

func NewArticleStore(gw kv.Gateway) *ArticleStore {
	return &ArticleStore{gw: gw}
}

// GetSavedArticles returns the collection; a missing key yields an empty slice.
func (s *ArticleStore) GetSavedArticles(ctx context.Context) ([]model.SavedArticle, error) {
	vals, err := s.gw.Get(ctx, kv.KeySavedArticles)
	if err != nil {
		return nil, fmt.Errorf("load saved articles: %w", err)
	}
	return decodeArticles(vals[kv.KeySavedArticles])
}

func decodeArticles(raw []byte) ([]model.SavedArticle, error) {
	out := []model.SavedArticle{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode saved articles: %w", err)
	}
	if out == nil {
		out = []model.SavedArticle{}
	}
	return out, nil
}

func (s *ArticleStore) put(ctx context.Context, articles []model.SavedArticle) error {
	if articles == nil {
		articles = []model.SavedArticle{}
	}
	b, err := json.Marshal(articles)
	if err != nil {
		return err
	}
	if err := s.gw.Set(ctx, map[string][]byte{kv.KeySavedArticles: b}); err != nil {
		return fmt.Errorf("persist saved articles: %w", err)
	}
	return nil
}

// mutate runs fn against a freshly loaded collection and persists the result.
func (s *ArticleStore) mutate(ctx context.Context, fn func([]model.SavedArticle) ([]model.SavedArticle, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	articles, err := s.GetSavedArticles(ctx)
	if err != nil {
		return err
	}
	next, err := fn(articles)
	if err != nil {
		return err
	}
	return s.put(ctx, next)
}

// SaveArticle appends candidate unless a record with the same url exists.
func (s *ArticleStore) SaveArticle(ctx context.Context, candidate model.SavedArticle) error {
	if len(candidate.Versions) == 0 {
		return ErrNoVersions
	}
	return s.mutate(ctx, func(articles []model.SavedArticle) ([]model.SavedArticle, error) {
		for _, a := range articles {
			if a.URL == candidate.URL {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateArticle, candidate.URL)
			}
		}
		slog.Debug("storage: saving article", "url", candidate.URL, "id", candidate.ID)
		return append(articles, candidate), nil
	})
}

// UpdateArticleVersions replaces the versions of the record for url.
func (s *ArticleStore) UpdateArticleVersions(ctx context.Context, url string, versions []model.ProcessedVersion) error {
	if len(versions) == 0 {
		return ErrNoVersions
	}
	return s.mutate(ctx, func(articles []model.SavedArticle) ([]model.SavedArticle, error) {
		for i := range articles {
			if articles[i].URL == url {
				articles[i].Versions = append([]model.ProcessedVersion(nil), versions...)
				return articles, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	})
}

// DeleteArticle removes the record at index. An index outside the current
// collection fails with ErrIndexOutOfRange and nothing is written.
func (s *ArticleStore) DeleteArticle(ctx context.Context, index int) error {
	return s.mutate(ctx, func(articles []model.SavedArticle) ([]model.SavedArticle, error) {
		if index < 0 || index >= len(articles) {
			return nil, fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(articles))
		}
		return append(articles[:index], articles[index+1:]...), nil
	})
}

// ClearAllArticles replaces the collection with an empty one.
func (s *ArticleStore) ClearAllArticles(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(ctx, nil)
}

// FindByURL returns the record for url, if present.
func (s *ArticleStore) FindByURL(ctx context.Context, url string) (model.SavedArticle, bool, error) {
	articles, err := s.GetSavedArticles(ctx)
	if err != nil {
		return model.SavedArticle{}, false, err
	}
	for _, a := range articles {
		if a.URL == url {
			return a, true, nil
		}
	}
	return model.SavedArticle{}, false, nil
}

// HasVersion reports whether the record for url holds a version of type t.
func (s *ArticleStore) HasVersion(ctx context.Context, url string, t model.ProcessingType) (bool, error) {
	a, ok, err := s.FindByURL(ctx, url)
	if err != nil || !ok {
		return false, err
	}
	_, ok = a.Version(t)
	return ok, nil
}

// GetCredential returns the stored API key; ok is false when none is set.
func (s *ArticleStore) GetCredential(ctx context.Context) (string, bool, error) {
	vals, err := s.gw.Get(ctx, kv.KeyCredential)
	if err != nil {
		return "", false, fmt.Errorf("load credential: %w", err)
	}
	raw, ok := vals[kv.KeyCredential]
	if !ok || len(raw) == 0 {
		return "", false, nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false, fmt.Errorf("decode credential: %w", err)
	}
	return v, v != "", nil
}

func (s *ArticleStore) SetCredential(ctx context.Context, value string) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.gw.Set(ctx, map[string][]byte{kv.KeyCredential: b})
}

// OnChange calls fn with a freshly read collection each time the saved
// articles change. No copy is kept between notifications.
func (s *ArticleStore) OnChange(fn func([]model.SavedArticle)) func() {
	return s.gw.OnChange(func(c kv.Change) {
		if !c.Has(kv.KeySavedArticles) {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		articles, err := s.GetSavedArticles(ctx)
		if err != nil {
			slog.Error("storage: reload after change", "error", err)
			return
		}
		fn(articles)
	})
}

// OnCredentialChange calls fn whenever the credential key is written.
func (s *ArticleStore) OnCredentialChange(fn func()) func() {
	return s.gw.OnChange(func(c kv.Change) {
		if c.Has(kv.KeyCredential) {
			fn()
		}
	})
}
