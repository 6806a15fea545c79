package commands

import (
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/texbuilder/internal/build"
	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/history"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/metrics"
	"git.home.luguber.info/inful/texbuilder/internal/notify"
	"git.home.luguber.info/inful/texbuilder/internal/retry"
)

// runtime owns the collaborators a build command needs for its lifetime.
type runtime struct {
	cfg       *config.Config
	service   *build.Service
	store     history.Store
	publisher notify.Publisher
	registry  *prom.Registry
}

func newRuntime(cfg *config.Config) (*runtime, error) {
	rt := &runtime{
		cfg:       cfg,
		store:     history.NoopStore{},
		publisher: notify.NoopPublisher{},
		registry:  prom.NewRegistry(),
	}

	if cfg.History.Enabled {
		store, err := history.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		rt.store = store
	}

	if cfg.Notify.Enabled() {
		policy := retry.NewPolicy(retry.Mode(cfg.Notify.RetryBackoff), 0, 0, cfg.Notify.Retries)
		pub, err := notify.NewNATSPublisher(cfg.Notify.NATSURL, cfg.Notify.Subject, notify.WithRetry(policy))
		if err != nil {
			slog.Warn("Build notifications disabled", logfields.Error(err))
		} else {
			rt.publisher = pub
		}
	}

	rt.service = build.NewService(cfg,
		build.WithHistory(rt.store),
		build.WithRecorder(metrics.NewPrometheusRecorder(rt.registry)),
		build.WithPublisher(rt.publisher),
		build.WithLogger(slog.Default()),
	)
	return rt, nil
}

// flushMetrics writes the textfile export when configured.
func (rt *runtime) flushMetrics() {
	path := rt.cfg.Metrics.Textfile
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(rt.registry, path); err != nil {
		slog.Warn("Could not write metrics textfile", logfields.Path(path), logfields.Error(err))
	}
}

func (rt *runtime) Close() {
	if err := rt.publisher.Close(); err != nil {
		slog.Warn("Could not close notification publisher", logfields.Error(err))
	}
	if err := rt.store.Close(); err != nil {
		slog.Warn("Could not close build history", logfields.Error(err))
	}
}
