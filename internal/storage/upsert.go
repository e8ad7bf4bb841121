package storage

import (
	"context"
	"log/slog"
	"time"

	"neutral-reader/internal/model"
)

// SaveVersion stores v for article a. A url without a record gets a new one
// holding v; otherwise the version of the same type is replaced in place or
// v is appended. The record is re-read and rewritten inside one mutation, so
// overlapping saves for the same url never drop each other's versions.
func (s *ArticleStore) SaveVersion(ctx context.Context, a model.Article, v model.ProcessedVersion, now time.Time) error {
	return s.mutate(ctx, func(articles []model.SavedArticle) ([]model.SavedArticle, error) {
		for i := range articles {
			if articles[i].URL == a.URL {
				articles[i].Versions = model.UpsertVersion(articles[i].Versions, v)
				return articles, nil
			}
		}
		slog.Debug("storage: first version creates record", "url", a.URL, "type", v.Type)
		return append(articles, model.NewSavedArticle(a, v, now)), nil
	})
}
