package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"neutral-reader/internal/ai"
	"neutral-reader/internal/extract"
	"neutral-reader/internal/markdown"
	"neutral-reader/internal/model"
	"neutral-reader/internal/search"
	"neutral-reader/internal/session"
	"neutral-reader/internal/storage"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Pinger reports whether the persistence backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the panel API drives.
type Deps struct {
	Tabs    *extract.Tabs
	Host    *extract.ContentHost
	Session *session.Controller
	Store   *storage.ArticleStore
	Index   *search.Index
	Creds   *ai.CredentialCache
	Health  Pinger
}

// Server exposes one session and the saved collection over HTTP.
type Server struct {
	deps Deps
	e    *echo.Echo
}

func NewServer(d Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/healthz"
		},
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ctx := c.Request().Context()
			if v.Error == nil {
				slog.DebugContext(ctx, "web: request completed",
					"method", v.Method, "uri", v.URI, "status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				slog.WarnContext(ctx, "web: request failed",
					"method", v.Method, "uri", v.URI, "status", v.Status,
					"error", v.Error)
			}
			return nil
		},
	}))

	s := &Server{deps: d, e: e}
	e.GET("/healthz", s.health)

	api := e.Group("/api")
	api.GET("/tabs", s.listTabs)
	api.POST("/tabs", s.openTab)
	api.POST("/tabs/:id/activate", s.activateTab)
	api.DELETE("/tabs/:id", s.closeTab)

	api.GET("/session", s.state)
	api.POST("/session/extract", s.extract)
	api.POST("/session/process", s.process)
	api.POST("/session/save", s.save)
	api.DELETE("/session/banner", s.dismissBanner)

	api.GET("/articles", s.listArticles)
	api.DELETE("/articles", s.clearArticles)
	api.GET("/articles/:index/export", s.exportArticle)
	api.DELETE("/articles/:index", s.deleteArticle)
	api.GET("/search", s.search)

	api.PUT("/credential", s.putCredential)
	return s
}

// ServeHTTP lets tests and embedding servers use the router directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	err := s.e.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Health.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type tabRequest struct {
	URL string `json:"url"`
}

type tabResponse struct {
	Tab     extract.Tab   `json:"tab"`
	Session session.State `json:"session"`
}

func (s *Server) listTabs(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Tabs.List())
}

func (s *Server) openTab(c echo.Context) error {
	var req tabRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}
	tab := s.deps.Tabs.Open(req.URL)
	st := s.deps.Session.Extract(c.Request().Context())
	return c.JSON(http.StatusCreated, tabResponse{Tab: tab, Session: st})
}

func (s *Server) activateTab(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid tab id")
	}
	tab, err := s.deps.Tabs.Activate(id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	st := s.deps.Session.Extract(c.Request().Context())
	return c.JSON(http.StatusOK, tabResponse{Tab: tab, Session: st})
}

func (s *Server) closeTab(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid tab id")
	}
	s.deps.Tabs.Close(id)
	s.deps.Host.Forget(id)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) state(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Session.State())
}

func (s *Server) extract(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Session.Extract(c.Request().Context()))
}

type processRequest struct {
	Type string `json:"type"`
}

func (s *Server) process(c echo.Context) error {
	var req processRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	t, err := model.ParseProcessingType(req.Type)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, s.deps.Session.Process(c.Request().Context(), t))
}

func (s *Server) save(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Session.Save(c.Request().Context()))
}

func (s *Server) dismissBanner(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Session.DismissBanner())
}

func (s *Server) listArticles(c echo.Context) error {
	articles, err := s.deps.Store.GetSavedArticles(c.Request().Context())
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, articles)
}

func (s *Server) clearArticles(c echo.Context) error {
	if err := s.deps.Store.ClearAllArticles(c.Request().Context()); err != nil {
		return mapStoreError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) deleteArticle(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid index")
	}
	if err := s.deps.Store.DeleteArticle(c.Request().Context(), index); err != nil {
		return mapStoreError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) exportArticle(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid index")
	}
	articles, err := s.deps.Store.GetSavedArticles(c.Request().Context())
	if err != nil {
		return mapStoreError(err)
	}
	if index < 0 || index >= len(articles) {
		return mapStoreError(storage.ErrIndexOutOfRange)
	}
	out, err := markdown.RenderArticle(articles[index])
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "render failed")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+markdown.Filename(articles[index])+`"`)
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(out))
}

func (s *Server) search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	hits, err := s.deps.Index.Search(q, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, hits)
}

type credentialRequest struct {
	Value string `json:"value"`
}

func (s *Server) putCredential(c echo.Context) error {
	var req credentialRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := s.deps.Store.SetCredential(c.Request().Context(), strings.TrimSpace(req.Value)); err != nil {
		return mapStoreError(err)
	}
	if s.deps.Creds != nil {
		s.deps.Creds.Invalidate()
	}
	return c.NoContent(http.StatusNoContent)
}

func mapStoreError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, storage.ErrIndexOutOfRange), errors.Is(err, storage.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrDuplicateArticle):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		slog.Error("web: store error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "storage unavailable")
	}
}
