package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"neutral-reader/internal/kv"
	"neutral-reader/internal/model"
)

// slowGateway widens the window between a read and the following write.
type slowGateway struct {
	*kv.MemoryGateway
}

func (g slowGateway) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	time.Sleep(20 * time.Millisecond)
	return g.MemoryGateway.Get(ctx, keys...)
}

func TestSaveVersionScenarios(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	a := article("https://x.com/a")

	// first save creates the record
	if err := s.SaveVersion(ctx, a, version(model.Neutralized, "neutral v1", 10), time.Unix(10, 0)); err != nil {
		t.Fatalf("SaveVersion neutralized: %v", err)
	}
	got := mustList(t, s)
	if len(got) != 1 || len(got[0].Versions) != 1 || got[0].Versions[0].Type != model.Neutralized {
		t.Fatalf("after first save: %+v", got)
	}
	id := got[0].ID

	// a different type is appended
	if err := s.SaveVersion(ctx, a, version(model.FactChecked, "checked", 20), time.Unix(20, 0)); err != nil {
		t.Fatalf("SaveVersion factchecked: %v", err)
	}
	got = mustList(t, s)
	if len(got) != 1 || len(got[0].Versions) != 2 {
		t.Fatalf("after second save: %+v", got)
	}
	if got[0].Versions[0].Type != model.Neutralized || got[0].Versions[1].Type != model.FactChecked {
		t.Fatalf("version order = %+v", got[0].Versions)
	}

	// same type again replaces in place
	if err := s.SaveVersion(ctx, a, version(model.Neutralized, "neutral v2", 30), time.Unix(30, 0)); err != nil {
		t.Fatalf("SaveVersion neutralized again: %v", err)
	}
	got = mustList(t, s)
	vs := got[0].Versions
	if len(vs) != 2 {
		t.Fatalf("len(versions) = %d, want 2", len(vs))
	}
	if vs[0].Type != model.Neutralized || vs[0].Content != "neutral v2" || !vs[0].ProcessedAt.Equal(time.Unix(30, 0)) {
		t.Errorf("neutralized entry not replaced: %+v", vs[0])
	}
	if !sameVersion(vs[1], version(model.FactChecked, "checked", 20)) {
		t.Errorf("factchecked entry changed: %+v", vs[1])
	}
	if got[0].ID != id {
		t.Errorf("id changed from %q to %q", id, got[0].ID)
	}
}

func TestConcurrentSavesAreSerialized(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	urls := []string{"https://x.com/1", "https://x.com/2", "https://x.com/3", "https://x.com/4"}
	var wg sync.WaitGroup
	for _, u := range urls {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			if err := s.SaveArticle(ctx, model.NewSavedArticle(article(u), version(model.Neutralized, u, 1), time.Now())); err != nil {
				t.Errorf("SaveArticle(%s): %v", u, err)
			}
		}(u)
	}
	wg.Wait()
	if got := mustList(t, s); len(got) != len(urls) {
		t.Fatalf("lost updates: have %d records, want %d", len(got), len(urls))
	}
}

func TestConcurrentVersionSavesKeepEveryType(t *testing.T) {
	ctx := context.Background()
	s := NewArticleStore(slowGateway{kv.NewMemoryGateway()})
	a := article("https://x.com/a")
	if err := s.SaveArticle(ctx, model.NewSavedArticle(a, version(model.Original, "orig", 1), time.Unix(1, 0))); err != nil {
		t.Fatalf("SaveArticle: %v", err)
	}

	var wg sync.WaitGroup
	for i, typ := range []model.ProcessingType{model.Neutralized, model.FactChecked} {
		wg.Add(1)
		go func(typ model.ProcessingType, at int64) {
			defer wg.Done()
			if err := s.SaveVersion(ctx, a, version(typ, string(typ), at), time.Unix(at, 0)); err != nil {
				t.Errorf("SaveVersion(%s): %v", typ, err)
			}
		}(typ, int64(10+i))
	}
	wg.Wait()

	got := mustList(t, s)
	if len(got) != 1 {
		t.Fatalf("records = %d, want 1", len(got))
	}
	if len(got[0].Versions) != 3 {
		t.Fatalf("versions after concurrent saves = %+v, want original, neutralized and factchecked", got[0].Versions)
	}
	for _, typ := range []model.ProcessingType{model.Original, model.Neutralized, model.FactChecked} {
		if _, ok := got[0].Version(typ); !ok {
			t.Errorf("missing %s version", typ)
		}
	}
}
