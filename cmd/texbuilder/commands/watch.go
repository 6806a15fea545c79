package commands

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/metrics"
	"git.home.luguber.info/inful/texbuilder/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	InputFlags  `embed:""`
	EngineFlags `embed:""`

	Debounce      time.Duration `help:"Quiet period after a change before rebuilding" default:"300ms"`
	Every         time.Duration `help:"Also rebuild at this interval (0 disables)"`
	MetricsListen string        `name:"metrics-listen" help:"Serve Prometheus metrics on this address; overrides metrics.listen"`
}

func (w *WatchCmd) Run(ctx context.Context, out io.Writer, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if err := w.EngineFlags.apply(cfg); err != nil {
		return err
	}
	req, err := w.InputFlags.request()
	if err != nil {
		return err
	}

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	var mu sync.Mutex
	rebuild := func(ctx context.Context) {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		report, err := rt.service.Run(ctx, req)
		rt.flushMetrics()
		if errors.HasCategory(err, errors.CategoryNotFound) {
			slog.Warn("Input missing, waiting for it to reappear", logfields.Source(req.Input))
			return
		}
		if err != nil {
			slog.Error("Rebuild failed", logfields.Source(req.Input), logfields.Error(err))
			return
		}
		printReport(out, report, false)
	}

	watcher, err := watch.NewWatcher(req.Input, w.Debounce, rebuild)
	if err != nil {
		return errors.FileSystemError("watch input").WithCause(err).WithContext("input", req.Input).Build()
	}
	defer func() { _ = watcher.Close() }()

	rebuild(ctx)

	if w.Every > 0 {
		sched, err := watch.NewScheduler()
		if err != nil {
			return errors.NewError(errors.CategoryRuntime, "create scheduler").WithCause(err).Build()
		}
		if _, err := sched.Every(w.Every, "periodic-rebuild", func() { rebuild(ctx) }); err != nil {
			return errors.ValidationError("invalid --every").WithCause(err).Build()
		}
		sched.Start()
		defer func() { _ = sched.Stop() }()
	}

	listen := cfg.Metrics.Listen
	if w.MetricsListen != "" {
		listen = w.MetricsListen
	}
	if listen != "" {
		srv := &http.Server{Addr: listen, Handler: metrics.HTTPHandler(rt.registry), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			slog.Info("Serving metrics", slog.String("addr", listen))
			if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", logfields.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	return watcher.Run(ctx)
}
