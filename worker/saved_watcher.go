package worker

import (
	"context"
	"log/slog"

	"neutral-reader/internal/ai"
	"neutral-reader/internal/model"
	"neutral-reader/internal/search"
	"neutral-reader/internal/storage"
)

// SavedWatcher keeps the search index in step with the saved collection and
// drops the cached credential whenever a new one is written.
type SavedWatcher struct {
	Store *storage.ArticleStore
	Index *search.Index
	Creds *ai.CredentialCache
}

func (w *SavedWatcher) Start(ctx context.Context) error {
	// holds at most the latest collection; older pending ones are replaced
	changes := make(chan []model.SavedArticle, 1)
	unsubArticles := w.Store.OnChange(func(articles []model.SavedArticle) {
		for {
			select {
			case changes <- articles:
				return
			default:
			}
			select {
			case <-changes:
			default:
			}
		}
	})
	defer unsubArticles()

	if w.Creds != nil {
		unsubCreds := w.Store.OnCredentialChange(func() {
			w.Creds.Invalidate()
			slog.Info("saved-watcher: credential changed, cache cleared")
		})
		defer unsubCreds()
	}

	initial, err := w.Store.GetSavedArticles(ctx)
	if err != nil {
		slog.Error("saved-watcher: initial load", "error", err)
	} else {
		w.reindex(initial)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case articles := <-changes:
			w.reindex(articles)
		}
	}
}

func (w *SavedWatcher) reindex(articles []model.SavedArticle) {
	if err := w.Index.Rebuild(articles); err != nil {
		slog.Error("saved-watcher: rebuild index", "error", err)
		return
	}
	versions := 0
	for _, a := range articles {
		versions += len(a.Versions)
	}
	slog.Info("saved-watcher: collection changed", "articles", len(articles), "versions", versions)
}
