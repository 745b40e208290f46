package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/fwojciec/fastlane/ingest"
	fprom "github.com/fwojciec/fastlane/prometheus"
	fws "github.com/fwojciec/fastlane/websocket"
)

// observers are the optional network surfaces a run feeds: Prometheus
// metrics and a WebSocket event stream.
type observers struct {
	collector *fprom.Collector
	hub       *fws.Hub
	servers   []*http.Server
	addrs     map[string]string // surface name to bound address
	logger    *slog.Logger
}

// newObservers starts a listener for each non-empty address. Listening
// happens before return so a bad address fails the run up front.
func newObservers(ctx context.Context, metricsAddr, wsAddr string, logger *slog.Logger) (*observers, error) {
	o := &observers{logger: logger, addrs: make(map[string]string)}
	if metricsAddr != "" {
		o.collector = fprom.NewCollector()
		reg, err := fprom.NewRegistry(o.collector)
		if err != nil {
			return nil, err
		}
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", fprom.Handler(reg))
		if err := o.serve(ctx, "metrics", metricsAddr, mux); err != nil {
			return nil, err
		}
	}
	if wsAddr != "" {
		o.hub = fws.NewHub(logger)
		mux := http.NewServeMux()
		mux.Handle("GET /events", o.hub)
		if err := o.serve(ctx, "events", wsAddr, mux); err != nil {
			o.Close()
			return nil, err
		}
	}
	return o, nil
}

func (o *observers) serve(ctx context.Context, name, addr string, h http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%s listener: %w", name, err)
	}
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	o.servers = append(o.servers, srv)
	o.addrs[name] = ln.Addr().String()
	o.logger.Info("serving", "surface", name, "addr", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			o.logger.Error("server stopped", "surface", name, "error", err)
		}
	}()
	return nil
}

// Options returns the session options that feed the running surfaces.
func (o *observers) Options() []ingest.Option {
	var opts []ingest.Option
	if o.collector != nil {
		opts = append(opts, ingest.WithEventHandler(o.collector.Handle))
	}
	if o.hub != nil {
		opts = append(opts, ingest.WithEventHandler(o.hub.Publish))
	}
	return opts
}

// Close disconnects WebSocket clients and shuts the servers down.
func (o *observers) Close() error {
	var errs []error
	if o.hub != nil {
		errs = append(errs, o.hub.Close())
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, srv := range o.servers {
		errs = append(errs, srv.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
