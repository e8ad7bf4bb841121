package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"neutral-reader/internal/ai"
	"neutral-reader/internal/extract"
	"neutral-reader/internal/kv"
	"neutral-reader/internal/search"
	"neutral-reader/internal/session"
	"neutral-reader/internal/storage"
)

type pageSource map[string]string

func (p pageSource) Scrape(ctx context.Context, pageURL string) (string, string, error) {
	return "Title of " + pageURL, p[pageURL], nil
}

type upperModel struct{}

func (upperModel) Call(ctx context.Context, prompt, text string) (string, error) {
	return strings.ToUpper(text), nil
}

type env struct {
	srv   *Server
	store *storage.ArticleStore
	index *search.Index
}

func newEnv(t *testing.T) env {
	t.Helper()
	gw := kv.NewMemoryGateway()
	store := storage.NewArticleStore(gw)
	idx, err := search.New()
	if err != nil {
		t.Fatalf("search.New: %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	tabs := extract.NewTabs()
	host := extract.NewContentHost(pageSource{
		"https://news.example.com/a": "the council approved the budget",
		"https://news.example.com/b": "",
	})
	ctrl := session.NewController(extract.NewBridge(tabs, host), store, upperModel{})
	creds := ai.NewCredentialCache(store.GetCredential, "")
	srv := NewServer(Deps{Tabs: tabs, Host: host, Session: ctrl, Store: store, Index: idx, Creds: creds, Health: gw})
	return env{srv: srv, store: store, index: idx}
}

func (e env) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) session.State {
	t.Helper()
	var st session.State
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode state: %v (%s)", err, rec.Body.String())
	}
	return st
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)
	if rec := e.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
}

func TestExtractProcessSave(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/api/tabs", `{"url":"https://news.example.com/a"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("open tab = %d: %s", rec.Code, rec.Body.String())
	}
	var opened tabResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &opened); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if opened.Session.Phase != session.PhaseExtracted || opened.Session.DisplayText != "the council approved the budget" {
		t.Fatalf("session after open = %+v", opened.Session)
	}

	rec = e.do(t, http.MethodPost, "/api/session/save", "")
	if st := decodeState(t, rec); st.Banner == nil || st.IsAlreadySaved {
		t.Fatalf("save before processing should be refused: %+v", st)
	}

	rec = e.do(t, http.MethodPost, "/api/session/process", `{"type":"neutralize"}`)
	st := decodeState(t, rec)
	if st.Phase != session.PhaseProcessed || !st.CanSave || st.DisplayText != "THE COUNCIL APPROVED THE BUDGET" {
		t.Fatalf("after process = %+v", st)
	}

	rec = e.do(t, http.MethodPost, "/api/session/save", "")
	if st := decodeState(t, rec); !st.IsAlreadySaved {
		t.Fatalf("after save = %+v", st)
	}

	articles, err := e.store.GetSavedArticles(context.Background())
	if err != nil {
		t.Fatalf("GetSavedArticles: %v", err)
	}
	if len(articles) != 1 || articles[0].Versions[0].Content != "THE COUNCIL APPROVED THE BUDGET" {
		t.Fatalf("stored = %+v", articles)
	}

	rec = e.do(t, http.MethodGet, "/api/articles/0/export", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "## neutralized") {
		t.Fatalf("export = %d: %s", rec.Code, rec.Body.String())
	}

	if err := e.index.Rebuild(articles); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	rec = e.do(t, http.MethodGet, "/api/search?q=council", "")
	var hits []search.Hit
	if err := json.Unmarshal(rec.Body.Bytes(), &hits); err != nil || len(hits) != 1 {
		t.Fatalf("search = %s (%v)", rec.Body.String(), err)
	}
}

func TestProcessRejectsUnknownType(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/api/session/process", `{"type":"summarize"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestEmptyPageAndTabSwitch(t *testing.T) {
	e := newEnv(t)
	e.do(t, http.MethodPost, "/api/tabs", `{"url":"https://news.example.com/a"}`)
	rec := e.do(t, http.MethodPost, "/api/tabs", `{"url":"https://news.example.com/b"}`)
	var resp tabResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Session.Phase != session.PhaseExtractFailed || resp.Session.Article != nil {
		t.Fatalf("empty page session = %+v", resp.Session)
	}

	rec = e.do(t, http.MethodPost, "/api/tabs/1/activate", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Tab.ID != 1 || resp.Session.Phase != session.PhaseExtracted {
		t.Fatalf("after activate = %+v", resp)
	}

	if rec := e.do(t, http.MethodPost, "/api/tabs/42/activate", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown tab = %d", rec.Code)
	}
}

func TestDeleteArticleOutOfRange(t *testing.T) {
	e := newEnv(t)
	if rec := e.do(t, http.MethodDelete, "/api/articles/0", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("delete = %d", rec.Code)
	}
	if rec := e.do(t, http.MethodDelete, "/api/articles/x", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("delete bad index = %d", rec.Code)
	}
	if rec := e.do(t, http.MethodDelete, "/api/articles", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("clear = %d", rec.Code)
	}
}

func TestPutCredential(t *testing.T) {
	e := newEnv(t)
	if rec := e.do(t, http.MethodPut, "/api/credential", `{"value":" key-123 "}`); rec.Code != http.StatusNoContent {
		t.Fatalf("put = %d", rec.Code)
	}
	v, ok, err := e.store.GetCredential(context.Background())
	if err != nil || !ok || v != "key-123" {
		t.Fatalf("credential = %q %v %v", v, ok, err)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	e := newEnv(t)
	if rec := e.do(t, http.MethodGet, "/api/search", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}
