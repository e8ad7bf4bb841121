package cmd

import (
	"context"
	"log/slog"
	"time"

	"neutral-reader/internal/extract"
	"neutral-reader/internal/kv"
	"neutral-reader/internal/search"
	"neutral-reader/internal/session"
	"neutral-reader/internal/web"
	"neutral-reader/worker"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the panel API and the saved-article watcher",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		src, err := newSource(a.cfg.Extract)
		if err != nil {
			return err
		}
		tabs := extract.NewTabs()
		host := extract.NewContentHost(src)
		ctrl := session.NewController(extract.NewBridge(tabs, host), a.store, a.model)

		idx, err := search.New()
		if err != nil {
			return err
		}
		defer idx.Close()

		srv := web.NewServer(web.Deps{
			Tabs:    tabs,
			Host:    host,
			Session: ctrl,
			Store:   a.store,
			Index:   idx,
			Creds:   a.creds,
			Health:  a.gw,
		})

		slog.Info("serve: starting", "backend", a.cfg.Store.Backend, "model", a.cfg.Model.Model, "source", a.cfg.Extract.Source)
		ws := []worker.Worker{
			&worker.HTTPServer{Server: srv, Addr: a.cfg.Server.Addr},
			&worker.SavedWatcher{Store: a.store, Index: idx, Creds: a.creds},
		}
		// other processes (e.g. `key set`) write the same file; poll for their changes
		if sg, ok := a.gw.(*kv.SQLiteGateway); ok {
			ws = append(ws, worker.Func(func(ctx context.Context) error {
				return sg.Watch(ctx, 2*time.Second)
			}))
		}
		return worker.NewManager(ws...).Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
