package worker

import (
	"context"
	"log/slog"
	"time"
)

// Listener is an HTTP server that can be shut down gracefully.
type Listener interface {
	Start(addr string) error
	Shutdown(ctx context.Context) error
}

// HTTPServer serves the panel API until the context is cancelled.
type HTTPServer struct {
	Server          Listener
	Addr            string
	ShutdownTimeout time.Duration
}

func (w *HTTPServer) Start(ctx context.Context) error {
	if w.ShutdownTimeout <= 0 {
		w.ShutdownTimeout = 5 * time.Second
	}
	errc := make(chan error, 1)
	go func() {
		slog.Info("http-server: listening", "addr", w.Addr)
		errc <- w.Server.Start(w.Addr)
	}()

	select {
	case err := <-errc:
		if err != nil {
			slog.Error("http-server: stopped", "error", err)
		}
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), w.ShutdownTimeout)
	defer cancel()
	if err := w.Server.Shutdown(sctx); err != nil {
		slog.Error("http-server: shutdown", "error", err)
		return err
	}
	<-errc
	slog.Info("http-server: stopped")
	return nil
}
