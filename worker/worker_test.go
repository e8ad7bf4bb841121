package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"neutral-reader/internal/ai"
	"neutral-reader/internal/kv"
	"neutral-reader/internal/model"
	"neutral-reader/internal/search"
	"neutral-reader/internal/storage"
)

func TestManagerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var stopped int32
	w := Func(func(ctx context.Context) error {
		<-ctx.Done()
		atomic.AddInt32(&stopped, 1)
		return nil
	})
	done := make(chan error, 1)
	go func() { done <- NewManager(w, w).Start(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not stop")
	}
	if atomic.LoadInt32(&stopped) != 2 {
		t.Fatalf("stopped = %d, want 2", stopped)
	}
}

func TestManagerFailureCancelsOthers(t *testing.T) {
	boom := errors.New("boom")
	failing := Func(func(ctx context.Context) error { return boom })
	waiting := Func(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	if err := NewManager(failing, waiting).Start(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Start = %v, want boom", err)
	}
}

type fakeListener struct {
	stop     chan struct{}
	startErr error
	shutdown int32
}

func (f *fakeListener) Start(addr string) error {
	if f.startErr != nil {
		return f.startErr
	}
	<-f.stop
	return nil
}

func (f *fakeListener) Shutdown(ctx context.Context) error {
	atomic.AddInt32(&f.shutdown, 1)
	close(f.stop)
	return nil
}

func TestHTTPServerGracefulShutdown(t *testing.T) {
	l := &fakeListener{stop: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- (&HTTPServer{Server: l, Addr: "127.0.0.1:0"}).Start(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
	if atomic.LoadInt32(&l.shutdown) != 1 {
		t.Fatal("Shutdown not called")
	}
}

func TestHTTPServerStartError(t *testing.T) {
	bind := errors.New("address in use")
	l := &fakeListener{startErr: bind}
	if err := (&HTTPServer{Server: l}).Start(context.Background()); !errors.Is(err, bind) {
		t.Fatalf("Start = %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met")
}

func TestSavedWatcherReindexes(t *testing.T) {
	store := storage.NewArticleStore(kv.NewMemoryGateway())
	idx, err := search.New()
	if err != nil {
		t.Fatalf("search.New: %v", err)
	}
	defer idx.Close()

	creds := ai.NewCredentialCache(store.GetCredential, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go (&SavedWatcher{Store: store, Index: idx, Creds: creds}).Start(ctx)

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	a := model.Article{URL: "https://news.example.com/storm", Title: "Storm", Text: "winds hit the harbour"}
	v := model.ProcessedVersion{Type: model.Neutralized, Content: "A storm arrived.", ProcessedAt: now}
	// the watcher subscribes asynchronously; keep saving until the index sees it
	waitFor(t, func() bool {
		if err := store.SaveVersion(ctx, a, v, now); err != nil {
			t.Fatalf("SaveVersion: %v", err)
		}
		n, _ := idx.Count()
		return n == 1
	})

	if err := store.SetCredential(ctx, "k1"); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	if got, err := creds.Resolve(ctx); err != nil || got != "k1" {
		t.Fatalf("Resolve = %q, %v", got, err)
	}
	if err := store.SetCredential(ctx, "k2"); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	if got, err := creds.Resolve(ctx); err != nil || got != "k2" {
		t.Fatalf("Resolve after change = %q, %v", got, err)
	}
}
