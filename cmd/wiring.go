package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"neutral-reader/internal/ai"
	"neutral-reader/internal/config"
	"neutral-reader/internal/extract"
	"neutral-reader/internal/kv"
	"neutral-reader/internal/redisclient"
	"neutral-reader/internal/storage"
)

// gateway is a kv backend that can report its health.
type gateway interface {
	kv.Gateway
	Ping(ctx context.Context) error
}

// openGateway connects the configured backend. The returned func releases it.
func openGateway(ctx context.Context, cfg config.Config) (gateway, func(), error) {
	switch strings.ToLower(cfg.Store.Backend) {
	case "redis":
		rdb, err := redisclient.Open(ctx, cfg.Redis, 3*time.Second)
		if err != nil {
			return nil, nil, err
		}
		gw, err := kv.NewRedisGateway(ctx, rdb, cfg.Store.Prefix)
		if err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		return gw, func() {
			_ = gw.Close()
			_ = rdb.Close()
		}, nil
	case "sqlite":
		gw, err := kv.OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return gw, func() { _ = gw.Close() }, nil
	case "memory":
		slog.Warn("store: using in-memory backend, nothing will be persisted")
		gw := kv.NewMemoryGateway()
		return gw, func() { _ = gw.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// app bundles what every command needs.
type app struct {
	cfg   config.Config
	gw    gateway
	store *storage.ArticleStore
	creds *ai.CredentialCache
	model *ai.OpenAIClient
	close func()
}

func newApp(ctx context.Context) (*app, error) {
	cfg := GetConfig()
	gw, closeGW, err := openGateway(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store := storage.NewArticleStore(gw)
	creds := ai.NewCredentialCache(store.GetCredential, cfg.Model.APIKey)
	model := ai.NewOpenAI(ai.Config{
		BaseURL:     cfg.Model.BaseURL,
		Model:       cfg.Model.Model,
		Timeout:     config.Duration(cfg.Model.Timeout, ai.DefaultTimeout),
		Temperature: cfg.Model.Temperature,
	}, creds)
	return &app{cfg: cfg, gw: gw, store: store, creds: creds, model: model, close: closeGW}, nil
}

// newSource builds the page reader selected by extract.source.
func newSource(cfg config.ExtractConfig) (extract.Source, error) {
	timeout := config.Duration(cfg.Timeout, 20*time.Second)
	switch strings.ToLower(cfg.Source) {
	case "http":
		return extract.NewHTTPSource(cfg.UserAgent, timeout, cfg.MinTextLength), nil
	case "cloudflare":
		if cfg.Cloudflare.AccountID == "" || cfg.Cloudflare.Token == "" {
			return nil, fmt.Errorf("extract.cloudflare.account_id and token are required")
		}
		return extract.NewCloudflareSource(cfg.Cloudflare.AccountID, cfg.Cloudflare.Token, timeout), nil
	default:
		return nil, fmt.Errorf("unknown extract source %q", cfg.Source)
	}
}

// openPage opens url as the active tab of a fresh tab registry.
func openPage(cfg config.ExtractConfig, url string) (*extract.Bridge, error) {
	src, err := newSource(cfg)
	if err != nil {
		return nil, err
	}
	tabs := extract.NewTabs()
	tabs.Open(url)
	return extract.NewBridge(tabs, extract.NewContentHost(src)), nil
}
