package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/BearBump/ShipDesk/internal/services/feed"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
)

type shipAPIOpts struct {
	httpAddr        string
	swaggerPath     string
	shutdownTimeout time.Duration

	topic         string
	consumerGroup string

	onListen func(httpAddr string)
}

type apiMounter interface {
	Mount(r chi.Router)
}

type statusFeed interface {
	Run(ctx context.Context) error
	Stats() feed.Stats
}

// runShipAPI поднимает HTTP и, если передан, консьюмер сканов. feed может быть nil.
func runShipAPI(ctx context.Context, opts shipAPIOpts, api apiMounter, sf statusFeed) error {
	if opts.swaggerPath == "" {
		return fmt.Errorf("swaggerPath env var is required")
	}
	if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
		return fmt.Errorf("swagger file not found: %s", opts.swaggerPath)
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runHTTPServer(ctx, lis, opts, api, sf)
	}()

	feedErr := make(chan error, 1)
	if sf != nil {
		go func() {
			slog.Info("kafka consumer started", "topic", opts.topic, "group", opts.consumerGroup)
			feedErr <- sf.Run(ctx)
		}()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-httpErr:
		return err
	case err := <-feedErr:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("status feed stopped: %w", err)
	}
}

func runHTTPServer(ctx context.Context, lis net.Listener, opts shipAPIOpts, api apiMounter, sf statusFeed) error {
	r := chi.NewRouter()
	r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		http.ServeFile(w, r, opts.swaggerPath)
	})

	swaggerURL := "/swagger.json"
	if fi, err := os.Stat(opts.swaggerPath); err == nil {
		swaggerURL = fmt.Sprintf("/swagger.json?v=%d", fi.ModTime().Unix())
	}
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))

	r.Get("/feed/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if sf == nil {
			_, _ = w.Write([]byte(`{"error":"status feed disabled"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(sf.Stats())
	})

	api.Mount(r)

	timeout := opts.shutdownTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	srv := &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return ctx.Err()
}
