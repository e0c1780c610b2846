// Package searchpanel serves read-only diagnostic panels for a hosted search
// integration.
//
// For each host request every registered collector runs once and produces
// an immutable snapshot; each snapshot is handed to the renderer paired
// with its topic. Remote lookups go through a SQLite transient cache with a
// fixed thirty minute lifetime.
//
//	request → collectors → snapshots → renderers → HTML / JSON / text
//
// Usage:
//
//	p, err := searchpanel.New(cfg)
//	defer p.Close()
//	p.Start(ctx)
//	http.ListenAndServe(cfg.Listen, p.Handler())
//	p.RegisterMCP(mcpServer)
package searchpanel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hazyhaar/qmsearch/dbopen"
	"github.com/hazyhaar/qmsearch/host"
	"github.com/hazyhaar/qmsearch/kit"
	"github.com/hazyhaar/qmsearch/observability"
	"github.com/hazyhaar/qmsearch/searchindex"
	"github.com/hazyhaar/qmsearch/searchpanel/internal/collect"
	"github.com/hazyhaar/qmsearch/searchpanel/internal/render"
	"github.com/hazyhaar/qmsearch/searchpanel/internal/seo"
	"github.com/hazyhaar/qmsearch/searchpanel/internal/snapshot"
	"github.com/hazyhaar/qmsearch/searchpanel/internal/store"
	"github.com/hazyhaar/qmsearch/trace"
)

// ErrUnknownTopic is returned when a requested topic has no collector.
var ErrUnknownTopic = errors.New("searchpanel: unknown topic")

// View is the display tree of one panel.
type View = render.Panel

// Renderer turns a snapshot into a View.
type Renderer = render.Renderer

// Collector gathers one topic's facts for a request.
type Collector = collect.Collector

// Snapshot is a collector's immutable output.
type Snapshot = snapshot.Snapshot

// SnapshotBuilder assembles a Snapshot inside a custom Collector.
type SnapshotBuilder = snapshot.Builder

// NewSnapshotBuilder starts a snapshot for topic with the given sections
// declared.
func NewSnapshotBuilder(topic string, sections ...string) *SnapshotBuilder {
	return snapshot.NewBuilder(topic, sections...)
}

// Panel is the orchestrator: it owns the cache database, the guarded search
// client, the collectors and their renderers.
type Panel struct {
	cfg       *Config
	db        *sql.DB
	ownDB     bool
	cache     *store.Cache
	source    searchindex.Source
	guard     *searchindex.Guarded
	registry  *collect.Registry
	renderers map[string]render.Renderer
	constants *collect.Constants
	resolver  *seo.Resolver
	runs      *observability.RunLogger
	metrics   *observability.Metrics
	promReg   *prometheus.Registry
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Panel.
type Option func(*Panel)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(p *Panel) { p.logger = l } }

// WithDB uses an already opened database instead of opening cfg.DBPath.
// The caller keeps ownership.
func WithDB(db *sql.DB) Option { return func(p *Panel) { p.db = db } }

// WithSource replaces the search service client. The source is still
// wrapped by the guard.
func WithSource(src searchindex.Source) Option { return func(p *Panel) { p.source = src } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(p *Panel) { p.now = now } }

// New creates a Panel with the status, index-settings and constants topics
// registered.
func New(cfg *Config, opts ...Option) (*Panel, error) {
	cfg.defaults()
	p := &Panel{
		cfg:       cfg,
		renderers: make(map[string]render.Renderer),
		registry:  collect.NewRegistry(),
		resolver:  seo.NewResolver(),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(p)
	}

	if p.source == nil {
		client, err := searchindex.NewClient(searchindex.ClientConfig{
			AppID:        cfg.Search.AppID,
			APIKey:       cfg.Search.APIKey,
			BaseURL:      cfg.Search.BaseURL,
			Timeout:      cfg.Search.Timeout,
			AllowPrivate: cfg.Search.AllowPrivate,
		})
		if err != nil {
			return nil, fmt.Errorf("searchpanel: %w", err)
		}
		p.source = client
	}

	if p.db == nil {
		opts := []dbopen.Option{
			dbopen.WithMkdirAll(),
			dbopen.WithSchema(store.Schema),
			dbopen.WithSchema(observability.Schema),
		}
		if cfg.BusyTimeout > 0 {
			opts = append(opts, dbopen.WithBusyTimeout(int(cfg.BusyTimeout.Milliseconds())))
		}
		if cfg.Synchronous != "" {
			opts = append(opts, dbopen.WithSynchronous(cfg.Synchronous))
		}
		if cfg.TraceSQL {
			if cfg.TraceSlow > 0 {
				trace.SetSlowThreshold(cfg.TraceSlow)
			}
			opts = append(opts, dbopen.WithDriver(trace.DriverName))
		}
		db, err := dbopen.Open(cfg.DBPath, opts...)
		if err != nil {
			return nil, fmt.Errorf("searchpanel: %w", err)
		}
		p.db, p.ownDB = db, true
	}

	p.promReg = prometheus.NewRegistry()
	p.promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	p.metrics = observability.NewMetrics(p.promReg)
	p.runs = observability.NewRunLogger(p.db, observability.WithRunClock(p.now))
	p.cache = store.New(p.db, store.WithClock(p.now), store.WithObserver(p.metrics.ObserveCache))
	p.guard = searchindex.Guard(p.source, searchindex.GuardOptions{
		Timeout:    cfg.Search.Timeout,
		MaxRetries: *cfg.Search.MaxRetries,
		Backoff:    cfg.Search.Backoff,
		Breaker:    searchindex.NewBreaker(cfg.Search.BreakerThreshold, cfg.Search.BreakerReset),
		Logger:     p.logger,
		Observer:   p.metrics.ObserveRemote,
	})

	deps := collect.Deps{Source: p.guard, Cache: p.cache, Logger: p.logger, Now: p.now}
	p.constants = &collect.Constants{Now: p.now}
	builtin := []struct {
		c collect.Collector
		r render.Renderer
	}{
		{&collect.Status{Deps: deps, Resolver: p.resolver, ContentDir: cfg.ContentDir}, render.Status},
		{&collect.IndexSettings{Deps: deps}, render.IndexSettings},
		{p.constants, render.Constants},
	}
	for _, b := range builtin {
		if err := p.Register(b.c, b.r); err != nil {
			p.Close()
			return nil, err
		}
	}
	return p, nil
}

// Register adds a collector and the renderer for its topic. A nil renderer
// shows the snapshot rows as plain tables.
func (p *Panel) Register(c Collector, r Renderer) error {
	if err := p.registry.Register(c); err != nil {
		return err
	}
	if r == nil {
		r = plainRenderer
	}
	p.renderers[c.Topic()] = r
	return nil
}

// Constants exposes the constants collector so callers can AddFilter.
func (p *Panel) Constants() *collect.Constants { return p.constants }

// Resolver exposes the SEO resolver so callers can Append variants.
func (p *Panel) Resolver() *seo.Resolver { return p.resolver }

// Topics lists the registered topics in collection order.
func (p *Panel) Topics() []string { return p.registry.Topics() }

// Metrics returns the prometheus registry backing /metrics.
func (p *Panel) Metrics() *prometheus.Registry { return p.promReg }

// Start launches the janitor that purges expired cache entries and old
// collection log rows.
func (p *Panel) Start(ctx context.Context) {
	go p.janitor(ctx)
	p.logger.Info("searchpanel: started", "db", p.cfg.DBPath, "topics", p.Topics())
}

func (p *Panel) janitor(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.JanitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *Panel) sweep(ctx context.Context) {
	expired, err := p.cache.DeleteExpired(ctx)
	if err != nil {
		p.logger.Warn("searchpanel: cache sweep failed", "error", err)
	}
	logs, err := observability.Cleanup(ctx, p.db, observability.RetentionConfig{
		CollectionLogDays: p.cfg.RetentionDays,
	}, p.now())
	if err != nil {
		p.logger.Warn("searchpanel: log retention failed", "error", err)
	}
	if expired > 0 || logs > 0 {
		p.logger.Debug("searchpanel: sweep", "expired_entries", expired, "log_rows", logs)
	}
}

// Close closes the database when the panel opened it.
func (p *Panel) Close() error {
	if p.ownDB {
		return p.db.Close()
	}
	return nil
}

// Purge removes every cache entry.
func (p *Panel) Purge(ctx context.Context) (int64, error) {
	return p.cache.Purge(ctx)
}

// CacheEntry describes one stored transient.
type CacheEntry struct {
	Key       string    `json:"key"`
	Bytes     int       `json:"bytes"`
	ExpiresAt time.Time `json:"expires_at"`
	Expired   bool      `json:"expired"`
}

// CacheEntries lists the stored transients, expired ones included until
// the janitor removes them.
func (p *Panel) CacheEntries(ctx context.Context) ([]CacheEntry, error) {
	entries, err := p.cache.Entries(ctx)
	if err != nil {
		return nil, err
	}
	now := p.now()
	out := make([]CacheEntry, len(entries))
	for i, e := range entries {
		out[i] = CacheEntry{
			Key:       e.Key,
			Bytes:     len(e.Value),
			ExpiresAt: e.ExpiresAt.UTC(),
			Expired:   !now.Before(e.ExpiresAt),
		}
	}
	return out, nil
}

// Forget removes one cache entry so the next request refetches it.
func (p *Panel) Forget(ctx context.Context, key string) error {
	return p.cache.Delete(ctx, key)
}

// Runs returns the latest collector runs.
func (p *Panel) Runs(ctx context.Context, limit int) ([]observability.Run, error) {
	return p.runs.Recent(ctx, limit)
}

// BreakerState reports the search service circuit breaker state.
func (p *Panel) BreakerState() string { return p.guard.Breaker().State().String() }

// Result is the outcome of one Collect call.
type Result struct {
	RequestID string               `json:"request_id,omitempty"`
	Snapshots []*snapshot.Snapshot `json:"snapshots"`
}

// Topic returns the snapshot for topic, or nil.
func (r *Result) Topic(topic string) *snapshot.Snapshot {
	for _, s := range r.Snapshots {
		if s.Topic() == topic {
			return s
		}
	}
	return nil
}

// Collect runs each requested collector once, in registration order. No
// topics means all of them. A collector error is logged and replaced by a
// failure snapshot; it never aborts the other topics.
func (p *Panel) Collect(ctx context.Context, req *host.Request, topics ...string) (*Result, error) {
	list, err := p.selected(topics)
	if err != nil {
		return nil, err
	}
	r := p.prepare(req)
	if r.ForceFresh {
		ctx = kit.WithForceFresh(ctx, true)
	}
	logger := p.logger.With("request_id", kit.GetRequestID(ctx))

	res := &Result{RequestID: kit.GetRequestID(ctx)}
	for _, c := range list {
		start := time.Now()
		snap, err := c.Collect(ctx, r)
		elapsed := time.Since(start)

		p.metrics.ObserveCollect(c.Topic(), elapsed)
		p.runs.Record(ctx, c.Topic(), elapsed, err)
		if err != nil {
			logger.Error("searchpanel: collector failed", "topic", c.Topic(), "error", err)
			snap = snapshot.Failed(c.Topic(), err, p.now())
		}
		res.Snapshots = append(res.Snapshots, snap)
	}
	return res, nil
}

func (p *Panel) selected(topics []string) ([]collect.Collector, error) {
	if len(topics) == 0 {
		return p.registry.Collectors(), nil
	}
	var out []collect.Collector
	for _, c := range p.registry.Collectors() {
		for _, t := range topics {
			if c.Topic() == t {
				out = append(out, c)
				break
			}
		}
	}
	for _, t := range topics {
		if _, ok := p.registry.Lookup(t); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, t)
		}
	}
	return out, nil
}

// prepare fills what the host left out from the configuration. Configured
// constants sit under the request's own, so every collector and the SEO
// resolver see the same set. The caller's request is not modified.
func (p *Panel) prepare(req *host.Request) *host.Request {
	r := &host.Request{}
	if req != nil {
		*r = *req
	}
	if r.Settings == nil {
		s := p.cfg.Settings
		r.Settings = &s
	}
	if r.SearchableTypes == nil {
		r.SearchableTypes = p.cfg.SearchableTypes
	}
	if len(p.cfg.Constants) > 0 {
		merged := maps.Clone(p.cfg.Constants)
		maps.Copy(merged, r.Constants)
		r.Constants = merged
	}
	r.ForceFresh = r.ForceFresh || p.cfg.ForceFresh
	return r
}

// Render builds the views for every snapshot in res.
func (p *Panel) Render(res *Result) []View {
	views := make([]View, 0, len(res.Snapshots))
	for _, s := range res.Snapshots {
		views = append(views, render.Render(p.renderers[s.Topic()], s))
	}
	return views
}

// WriteHTML writes views as a standalone HTML page.
func WriteHTML(w io.Writer, views []View) error {
	return render.WriteHTML(w, render.ProductName, views)
}

// WriteText writes views as terminal tables.
func WriteText(w io.Writer, views []View) error {
	return render.WriteText(w, views)
}

// plainRenderer shows every section of a snapshot as a title/value table.
func plainRenderer(s *snapshot.Snapshot) render.Panel {
	v := render.Panel{Title: s.Topic(), Menu: s.Topic()}
	for _, sec := range s.Sections() {
		if sec.Name == snapshot.SectionError {
			continue
		}
		t := render.Table{Rows: [][]render.Cell{}, Placeholder: render.None}
		for _, row := range sec.Rows {
			t.Rows = append(t.Rows, []render.Cell{{Text: row.Title}, {Text: row.Value}})
		}
		v.Sections = append(v.Sections, render.Section{Title: sec.Name, Tables: []render.Table{t}})
	}
	return v
}
