package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pario-ai/anzscache/pkg/cache"
	"github.com/pario-ai/anzscache/pkg/config"
	"github.com/pario-ai/anzscache/pkg/store/memory"
	"github.com/pario-ai/anzscache/pkg/store/sqlite"
	"github.com/pario-ai/anzscache/pkg/tracker"
	"github.com/pario-ai/anzscache/pkg/upstream"
)

// app is the wired facade shared by every command.
type app struct {
	cfg   *config.Config
	log   zerolog.Logger
	cache *cache.Cache
	// usage is nil with the memory driver.
	usage *tracker.SQLiteTracker
	close func() error
}

func openApp(g *globalFlags) (*app, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	level := cfg.LogLevel
	if g.logLevel != "" {
		level = g.logLevel
	}
	log := newLogger(level)

	a := &app{cfg: cfg, log: log, close: func() error { return nil }}

	var (
		index   cache.Index
		details cache.Details
		queries cache.Queries
	)
	switch cfg.Storage.Driver {
	case "memory":
		st := memory.New()
		index, details, queries = st.Index(), st.Details(), st.Queries()
	default:
		db, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		index, details, queries = db.Index(), db.Details(), db.Queries()

		tr, err := tracker.New(cfg.DBPath)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("open usage ledger: %w", err)
		}
		a.usage = tr
		a.close = func() error {
			return errors.Join(tr.Close(), db.Close())
		}
	}

	catalog := upstream.NewCatalog(cfg.Catalog, log)
	opts := []cache.Option{
		cache.WithLogger(log),
		cache.WithSections(cfg.Cache.Sections),
		cache.WithRetention(cfg.Cache.Retention),
		cache.WithFillTimeout(cfg.Cache.FillTimeout),
	}
	if cfg.Cache.EvictOnWrite {
		opts = append(opts, cache.WithEvictOnWrite(cfg.Cache.EvictInterval))
	}
	var genOpts []upstream.GeneratorOption
	if a.usage != nil {
		genOpts = append(genOpts, upstream.WithUsageRecorder(a.usage))
	}
	a.cache = cache.New(index, details, queries, cache.Sources{
		Classifier: catalog,
		Details:    catalog,
		Generator:  upstream.NewGenerator(cfg, log, genOpts...),
	}, opts...)

	log.Debug().Str("driver", cfg.Storage.Driver).Str("db_path", cfg.DBPath).Msg("cache opened")
	return a, nil
}

func (a *app) Close() {
	if err := a.close(); err != nil {
		a.log.Warn().Err(err).Msg("close store")
	}
}
