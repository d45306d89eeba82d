// Package webui is the optional debug server: a live render stream over
// websocket, a spew dump of the controller state, health and metrics.
package webui

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pebfutar.app/internal/app"
)

const shutdownTimeout = 5 * time.Second

type WebUI struct {
	*app.Application
	Hub     *Hub
	Limiter *ClientRateLimiter
}

func New(a *app.Application, hub *Hub) *WebUI {
	return &WebUI{
		Application: a,
		Hub:         hub,
		Limiter:     NewClientRateLimiter(DefaultClientRate, DefaultClientBurst, a.Clock),
	}
}

// Routes builds the handler tree with its middleware.
func (webUI *WebUI) Routes() http.Handler {
	token := webUI.Config.Debug.Token
	guard := func(h http.Handler) http.Handler {
		return webUI.Limiter.Middleware(requireToken(token, h))
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", webUI.healthHandler)
	mux.Handle("GET /debug", GzipMiddleware(guard(http.HandlerFunc(webUI.debugIndexHandler))))
	mux.Handle("GET /metrics", GzipMiddleware(guard(
		promhttp.HandlerFor(webUI.Metrics.Registry, promhttp.HandlerOpts{}))))
	mux.Handle("GET /v1/ws", guard(http.HandlerFunc(webUI.wsHandler)))
	mux.Handle("GET /{file...}", GzipMiddleware(http.HandlerFunc(webUI.staticHandler)))

	var handler http.Handler = mux
	handler = MetricsHandler(webUI.Metrics)(handler)
	handler = NewRequestLoggingMiddleware(webUI.Logger)(handler)
	handler = RequestIDMiddleware(handler)
	return handler
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (webUI *WebUI) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           webUI.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		webUI.Logger.Info("debug server listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
